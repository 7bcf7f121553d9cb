// Package filestore implements the aggregated on-disk state store: an
// in-memory map from namespace id to a key/value record, persisted as a
// single JSON document.
//
// Many independent storage helpers (one per feature) share one physical file
// through namespaced adapters, so state for every workspace lands in the same
// document without colliding. Saves are coalesced: mutations mark the store
// dirty and a single writer goroutine persists the whole document, so a burst
// of changes produces one write and a change arriving mid-write triggers a
// follow-up save rather than an overlapping one.
//
// The store degrades instead of failing: a missing or corrupt document loads
// as an empty store, and reads before Load yield empty records.
//
// Optional extras: fsnotify-based reload when another process modifies the
// document, and cron-scheduled backups of the file.
package filestore
