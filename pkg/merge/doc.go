// Package merge provides copy-on-write value transformation helpers for
// stored state: deep cloning of JSON-representable values and deep merging
// of partial updates, with object-merge / array-replace precedence.
package merge
