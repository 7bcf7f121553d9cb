package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/stash/pkg/async"
	"github.com/platinummonkey/stash/pkg/merge"
	"github.com/platinummonkey/stash/pkg/observability"
	"github.com/platinummonkey/stash/pkg/observable"
)

// initTimeout bounds the background load kicked off at construction.
const initTimeout = 30 * time.Second

// Helper is a reactive, persistent container for one value of type T under a
// fixed key. The in-memory value is seeded with a default synchronously, so
// Get always returns a usable value; Init then reconciles it with the
// backend in the background.
type Helper[T any] struct {
	key          string
	defaultValue T
	box          *observable.Box[T]
	log          *observability.Logger

	mu       sync.Mutex
	adapter  Adapter
	suppress bool

	autoInit    bool
	initialized atomic.Bool
	flight      singleflight.Group
	ready       chan struct{}
	readyOnce   sync.Once
}

// Option configures a Helper at construction or via Configure.
type Option[T any] func(*Helper[T])

// WithAdapter sets the backend adapter. The default is a LocalAdapter over a
// fresh in-memory backend.
func WithAdapter[T any](adapter Adapter) Option[T] {
	return func(h *Helper[T]) {
		if adapter != nil {
			h.adapter = adapter
		}
	}
}

// WithEquality sets the change-detection policy of the value box. The default
// is observable.Shallow.
func WithEquality[T any](eq observable.Equality) Option[T] {
	return func(h *Helper[T]) { h.box.SetEquality(eq) }
}

// WithAutoInit controls whether construction kicks off Init in the
// background. Enabled by default.
func WithAutoInit[T any](enabled bool) Option[T] {
	return func(h *Helper[T]) { h.autoInit = enabled }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger[T any](log *observability.Logger) Option[T] {
	return func(h *Helper[T]) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates a Helper for key seeded with defaultValue. Unless disabled via
// WithAutoInit(false), initialization starts immediately in the background.
func New[T any](key string, defaultValue T, opts ...Option[T]) *Helper[T] {
	h := &Helper[T]{
		key:          key,
		defaultValue: defaultValue,
		box:          observable.NewBox(defaultValue),
		log:          observability.NopLogger(),
		autoInit:     true,
		ready:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.adapter == nil {
		h.adapter = NewLocalAdapter(NewMemoryBackend())
	}

	h.box.Subscribe(h.persist)

	if h.autoInit {
		async.SafeGo(context.Background(), initTimeout, h.log, "load stored value: "+h.key, func(ctx context.Context) error {
			h.Init(ctx)
			return nil
		})
	}
	return h
}

// Configure re-applies options after construction, typically to swap the
// adapter or the equality policy.
func (h *Helper[T]) Configure(opts ...Option[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, opt := range opts {
		opt(h)
	}
}

// Key returns the helper's storage key.
func (h *Helper[T]) Key() string { return h.key }

// DefaultValue returns the value the helper was seeded with.
func (h *Helper[T]) DefaultValue() T { return h.defaultValue }

// Initialized reports whether the initial backend load has completed.
func (h *Helper[T]) Initialized() bool { return h.initialized.Load() }

// Ready returns a channel that is closed once the initial load completes.
func (h *Helper[T]) Ready() <-chan struct{} { return h.ready }

// Init loads the backend value once. It is idempotent and single-flight:
// concurrent calls collapse into one attempt, and the first attempt is the
// only one. Failures are logged and swallowed and still complete the
// attempt, so the helper keeps serving the default value and later writes
// persist normally; a completed attempt is never re-run against a value the
// caller has since committed. A value that is absent or deep-equal to the
// default leaves the in-memory value untouched and never triggers a
// write-back.
func (h *Helper[T]) Init(ctx context.Context) {
	if h.initialized.Load() {
		return
	}
	h.flight.Do(h.key, func() (interface{}, error) {
		if h.initialized.Load() {
			return nil, nil
		}

		h.mu.Lock()
		adapter := h.adapter
		h.mu.Unlock()

		raw, err := adapter.GetItem(ctx, h.key)
		if err != nil {
			h.log.WithError(err).WithField("key", h.key).Warn("Failed to load stored value, keeping default")
		} else if !isAbsent(raw) {
			var value T
			if err := json.Unmarshal(raw, &value); err != nil {
				h.log.WithError(err).WithField("key", h.key).Warn("Malformed stored value, keeping default")
			} else if !observable.Deep(value, h.defaultValue) {
				// Persistence is still gated on initialized, so this
				// cannot echo the value back to the backend.
				h.box.Set(value)
			}
		}

		h.initialized.Store(true)
		h.readyOnce.Do(func() { close(h.ready) })
		return nil, nil
	})
}

// Get returns a snapshot of the current value. The snapshot is a deep copy;
// mutating it does not affect the stored state.
func (h *Helper[T]) Get() T {
	value := h.box.Get()
	clone, err := merge.Clone(value)
	if err != nil {
		h.log.WithError(err).WithField("key", h.key).Error("Failed to clone stored value")
		return value
	}
	return clone
}

// Set replaces the current value. Persistence is driven by the resulting
// change notification and happens at most once per committed change.
func (h *Helper[T]) Set(value T) {
	h.box.Set(value)
}

// Merge applies update to a draft copy of the current value and commits the
// result. The draft may be mutated freely; the previous snapshot is never
// modified. An error from update propagates and nothing is committed.
func (h *Helper[T]) Merge(update func(draft *T) error) error {
	next, err := merge.Apply(h.box.Get(), update)
	if err != nil {
		return err
	}
	h.box.Set(next)
	return nil
}

// MergePatch deep-merges a partial value into the current value and commits
// the result. Objects merge field by field; arrays from patch replace
// existing arrays.
func (h *Helper[T]) MergePatch(patch T) error {
	next, err := merge.Patch(h.box.Get(), patch)
	if err != nil {
		return err
	}
	h.box.Set(next)
	return nil
}

// Clear resets the value to the zero sentinel and removes the backend entry.
// Absence of the backend entry means "value is the default" on the next load;
// no tombstone is stored. The change hook fires only when the reset actually
// committed a change.
func (h *Helper[T]) Clear() {
	old := h.box.Get()

	var zero T
	h.mu.Lock()
	h.suppress = true
	h.mu.Unlock()

	changed := h.box.Set(zero)

	h.mu.Lock()
	h.suppress = false
	adapter := h.adapter
	h.mu.Unlock()

	if !h.initialized.Load() {
		return
	}

	if changed {
		if obs, ok := adapter.(ChangeObserver); ok {
			oldRaw, err := json.Marshal(old)
			if err != nil {
				oldRaw = nil
			}
			obs.OnChange(h.key, nil, oldRaw)
		}
	}

	if err := removeItem(context.Background(), adapter, h.key); err != nil {
		h.log.WithError(err).WithField("key", h.key).Error("Failed to remove stored value")
	}
}

// ToJSON returns the canonical JSON encoding of the current value,
// independent of the backend's own encoding.
func (h *Helper[T]) ToJSON() (string, error) {
	data, err := json.Marshal(h.box.Get())
	if err != nil {
		return "", fmt.Errorf("failed to encode stored value: %w", err)
	}
	return string(data), nil
}

// persist is the box change reaction: it forwards each committed post-init
// change to the adapter exactly once. Write failures never roll back the
// in-memory value.
func (h *Helper[T]) persist(value, old T) {
	if !h.initialized.Load() {
		return
	}

	h.mu.Lock()
	adapter := h.adapter
	suppressed := h.suppress
	h.mu.Unlock()
	if suppressed {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		h.log.WithError(err).WithField("key", h.key).Error("Failed to encode value for persistence")
		return
	}

	if obs, ok := adapter.(ChangeObserver); ok {
		oldRaw, err := json.Marshal(old)
		if err != nil {
			oldRaw = nil
		}
		obs.OnChange(h.key, raw, oldRaw)
	}

	ctx := context.Background()
	if isAbsent(raw) {
		err = removeItem(ctx, adapter, h.key)
	} else {
		err = adapter.SetItem(ctx, h.key, raw)
	}
	if err != nil {
		h.log.WithError(err).WithField("key", h.key).Error("Failed to persist value")
	}
}
