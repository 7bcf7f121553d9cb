package storage

import (
	"bytes"
	"context"
	"encoding/json"
)

// Adapter is the pluggable backend for a single stored value.
type Adapter interface {
	// GetItem retrieves the current backend value for key. Absence is
	// signaled by returning (nil, nil); errors are reserved for backend
	// failures and malformed stored data.
	GetItem(ctx context.Context, key string) (json.RawMessage, error)

	// SetItem writes value for key, fully replacing any prior value.
	// A nil value is the deletion convention for adapters that do not
	// implement ItemRemover.
	SetItem(ctx context.Context, key string, value json.RawMessage) error
}

// ItemRemover is implemented by adapters that can delete a key outright.
type ItemRemover interface {
	RemoveItem(ctx context.Context, key string) error
}

// ChangeObserver is implemented by adapters that want to see every committed
// value after initialization. It is invoked by the helper in addition to the
// persistence write, not instead of it.
type ChangeObserver interface {
	OnChange(key string, value, oldValue json.RawMessage)
}

// removeItem deletes key via ItemRemover when available, otherwise writes a
// nil value.
func removeItem(ctx context.Context, a Adapter, key string) error {
	if r, ok := a.(ItemRemover); ok {
		return r.RemoveItem(ctx, key)
	}
	return a.SetItem(ctx, key, nil)
}

var jsonNull = []byte("null")

// isAbsent reports whether raw encodes "no value": empty or a JSON null.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}
