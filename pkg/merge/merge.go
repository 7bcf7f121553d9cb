package merge

import (
	"encoding/json"
	"fmt"

	"dario.cat/mergo"
)

// Clone returns a deep copy of value produced by a JSON round trip. Stored
// values are JSON-representable by contract, so the round trip is lossless
// for them. Cloning guarantees the caller cannot alias the original's nested
// maps or slices.
func Clone[T any](value T) (T, error) {
	var out T
	data, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("failed to marshal value for clone: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal cloned value: %w", err)
	}
	return out, nil
}

// Patch deep-merges patch into a copy of base and returns the result. Nested
// structs and maps merge field by field; non-zero fields of patch win over
// base, and slices from patch replace the base slice wholesale rather than
// concatenating. Neither input is modified.
func Patch[T any](base, patch T) (T, error) {
	next, err := Clone(base)
	if err != nil {
		return next, err
	}
	if err := mergo.Merge(&next, patch, mergo.WithOverride); err != nil {
		return next, fmt.Errorf("failed to merge patch: %w", err)
	}
	return next, nil
}

// Apply hands a deep-copied draft of base to update and returns the draft
// afterwards. The original base is never touched; update may mutate the draft
// freely. Errors from update propagate unchanged.
func Apply[T any](base T, update func(draft *T) error) (T, error) {
	draft, err := Clone(base)
	if err != nil {
		return draft, err
	}
	if err := update(&draft); err != nil {
		return draft, err
	}
	return draft, nil
}
