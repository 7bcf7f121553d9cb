// Package redisstore persists helper state in Redis, one Redis string per
// namespace/key pair. Reads go through a small in-process LRU so hot helpers
// do not hammer Redis; writes and removals keep the cache coherent.
package redisstore
