package filestore

import (
	"github.com/platinummonkey/stash/pkg/storage"
)

// NewHelper creates a storage helper persisting into one namespace of an
// aggregated store. This is the construction path application code should
// use; the raw Adapter is for wiring helpers by hand.
func NewHelper[T any](store *Store, namespace, key string, defaultValue T, opts ...storage.Option[T]) *storage.Helper[T] {
	base := []storage.Option[T]{
		storage.WithAdapter[T](NewAdapter(store, namespace)),
	}
	return storage.New(key, defaultValue, append(base, opts...)...)
}
