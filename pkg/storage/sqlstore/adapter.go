package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/platinummonkey/stash/pkg/observability"
)

// Adapter binds a StateStore to one namespace.
type Adapter struct {
	store     StateStore
	namespace string
	backend   string
	metrics   *observability.Metrics
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMetrics instruments the adapter's operations.
func WithMetrics(m *observability.Metrics) AdapterOption {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter creates an adapter writing into namespace. backend labels the
// adapter's metrics, e.g. "sqlite" or "postgres".
func NewAdapter(store StateStore, namespace, backend string, opts ...AdapterOption) *Adapter {
	a := &Adapter{store: store, namespace: namespace, backend: backend}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetItem returns the raw value stored under key, or nil when absent.
func (a *Adapter) GetItem(ctx context.Context, key string) (json.RawMessage, error) {
	start := time.Now()
	raw, err := a.store.GetState(ctx, a.namespace, key)
	a.metrics.ObserveStorageOperation("get", a.backend, start, err)
	return raw, err
}

// SetItem upserts key in the adapter's namespace. An absent value deletes
// the row instead.
func (a *Adapter) SetItem(ctx context.Context, key string, value json.RawMessage) error {
	if len(value) == 0 || string(value) == "null" {
		return a.RemoveItem(ctx, key)
	}
	start := time.Now()
	err := a.store.SetState(ctx, a.namespace, key, value)
	a.metrics.ObserveStorageOperation("set", a.backend, start, err)
	return err
}

// RemoveItem deletes key from the adapter's namespace.
func (a *Adapter) RemoveItem(ctx context.Context, key string) error {
	start := time.Now()
	err := a.store.DeleteState(ctx, a.namespace, key)
	a.metrics.ObserveStorageOperation("remove", a.backend, start, err)
	return err
}
