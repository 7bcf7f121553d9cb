package sqlstore

import (
	"context"
	"encoding/json"
)

// StateStore is the row-level contract shared by the SQL backends.
type StateStore interface {
	// GetState returns the value stored for namespace/key, or nil when the
	// row does not exist.
	GetState(ctx context.Context, namespace, key string) (json.RawMessage, error)
	// SetState upserts the row for namespace/key.
	SetState(ctx context.Context, namespace, key string, value json.RawMessage) error
	// DeleteState removes the row for namespace/key. Deleting an absent row
	// is not an error.
	DeleteState(ctx context.Context, namespace, key string) error
	// Close releases the underlying database handle.
	Close() error
}
