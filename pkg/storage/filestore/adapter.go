package filestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/platinummonkey/stash/pkg/observability"
)

// Adapter routes one helper's reads and writes into a single namespace of an
// aggregated Store. Each adapter owns its namespace; the key stays a separate
// argument so many helpers can share one namespace.
type Adapter struct {
	store     *Store
	namespace string
	metrics   *observability.Metrics
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterMetrics instruments the adapter's operations.
func WithAdapterMetrics(m *observability.Metrics) AdapterOption {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter creates an adapter bound to namespace within store.
func NewAdapter(store *Store, namespace string, opts ...AdapterOption) *Adapter {
	a := &Adapter{store: store, namespace: namespace}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Namespace returns the namespace this adapter writes into.
func (a *Adapter) Namespace() string { return a.namespace }

// GetItem returns the raw value stored under key, or nil when absent.
func (a *Adapter) GetItem(ctx context.Context, key string) (json.RawMessage, error) {
	start := time.Now()
	raw := a.store.GetState(a.namespace)[key]
	a.metrics.ObserveStorageOperation("get", "file", start, nil)
	return raw, nil
}

// SetItem upserts key in the adapter's namespace. An absent value deletes the
// entry.
func (a *Adapter) SetItem(ctx context.Context, key string, value json.RawMessage) error {
	start := time.Now()
	a.store.SetState(a.namespace, key, value)
	a.metrics.ObserveStorageOperation("set", "file", start, nil)
	return nil
}

// RemoveItem deletes key from the adapter's namespace.
func (a *Adapter) RemoveItem(ctx context.Context, key string) error {
	start := time.Now()
	a.store.SetState(a.namespace, key, nil)
	a.metrics.ObserveStorageOperation("remove", "file", start, nil)
	return nil
}
