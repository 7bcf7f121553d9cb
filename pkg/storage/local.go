package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Backend is a synchronous single-value key/string store: the "local"
// backend. It has no notion of encoding; LocalAdapter layers JSON on top.
type Backend interface {
	Get(key string) (value string, ok bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryBackend is an in-process Backend implementation.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

func (b *MemoryBackend) Get(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.items[key]
	return value, ok
}

func (b *MemoryBackend) Set(key, value string) {
	b.mu.Lock()
	b.items[key] = value
	b.mu.Unlock()
}

func (b *MemoryBackend) Delete(key string) {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
}

// Len returns the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// LocalAdapter implements Adapter over a Backend, storing values as their
// JSON encoding.
type LocalAdapter struct {
	backend Backend
}

// NewLocalAdapter creates an adapter over backend.
func NewLocalAdapter(backend Backend) *LocalAdapter {
	return &LocalAdapter{backend: backend}
}

// GetItem returns the stored value for key, or (nil, nil) when absent.
// A stored entry that is not valid JSON is an error, not a panic.
func (a *LocalAdapter) GetItem(_ context.Context, key string) (json.RawMessage, error) {
	raw, ok := a.backend.Get(key)
	if !ok {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("malformed stored value for key %q", key)
	}
	return json.RawMessage(raw), nil
}

// SetItem stores value for key. Writing an absent value deletes the key
// rather than storing a literal null.
func (a *LocalAdapter) SetItem(_ context.Context, key string, value json.RawMessage) error {
	if isAbsent(value) {
		a.backend.Delete(key)
		return nil
	}
	a.backend.Set(key, string(value))
	return nil
}

// RemoveItem deletes the raw entry for key.
func (a *LocalAdapter) RemoveItem(_ context.Context, key string) error {
	a.backend.Delete(key)
	return nil
}
