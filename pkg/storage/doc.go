// Package storage provides reactive, persistent key/value state containers
// with pluggable backends.
//
// # Overview
//
// A Helper owns one observable value under a fixed key. The value lives in
// memory, seeded with a default, and is kept durably synchronized with a
// backend through the Adapter contract. Application state objects only ever
// talk to the Helper surface: Get, Set, Merge, Clear.
//
// # Adapter Contract
//
// An Adapter reads and writes a single key's value as raw JSON:
//
//	type Adapter interface {
//		GetItem(ctx context.Context, key string) (json.RawMessage, error)
//		SetItem(ctx context.Context, key string, value json.RawMessage) error
//	}
//
// Absence is signaled by a nil value, never by an error; "not found" is a
// normal outcome of GetItem. Adapters may optionally implement ItemRemover to
// delete keys outright (callers otherwise fall back to writing nil) and
// ChangeObserver to be told about every committed value after initialization.
//
// Implementations in this repository:
//   - LocalAdapter: JSON over a synchronous single-value string Backend
//   - filestore.Adapter: one namespace of the aggregated JSON file store
//   - redisstore.Adapter: shared Redis backend with an LRU read cache
//   - sqlstore.Adapter: SQLite or PostgreSQL aggregated stores
//   - s3store.Adapter: one object per key in an S3 bucket
//
// # Initialization
//
// Init is single-flight and best-effort: the backend value is loaded once,
// replaces the default when present and different, and any failure is logged
// and swallowed; the consumer always has a usable value immediately. Writes
// back to the backend are strictly gated on initialization having completed,
// so loading a value never re-writes it.
//
// # Change Propagation
//
// Set, Merge and Clear commit to the observable box first; the box's change
// notification then drives persistence and the adapter's OnChange hook, at
// most once per committed change. A write failure is logged but never rolls
// back the in-memory value; in-memory state stays authoritative.
package storage
