package observable

import "sync"

// Subscriber receives the committed value and the value it replaced.
type Subscriber[T any] func(value, oldValue T)

type subscription[T any] struct {
	id int
	fn Subscriber[T]
}

// Box is a mutable value cell. Writes that the equality policy judges equal
// to the current value are dropped; every other write notifies subscribers
// synchronously, in subscription order, after the value is committed.
type Box[T any] struct {
	mu     sync.RWMutex
	value  T
	equals Equality
	subs   []subscription[T]
	nextID int
}

// NewBox creates a box seeded with initial. The default equality policy is
// Shallow.
func NewBox[T any](initial T) *Box[T] {
	return &Box[T]{
		value:  initial,
		equals: Shallow,
	}
}

// SetEquality replaces the equality policy. A nil policy restores Shallow.
func (b *Box[T]) SetEquality(eq Equality) {
	if eq == nil {
		eq = Shallow
	}
	b.mu.Lock()
	b.equals = eq
	b.mu.Unlock()
}

// Get returns the current value.
func (b *Box[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set commits value and reports whether a change notification was emitted.
// Writes equal to the current value under the box's equality policy are
// suppressed.
func (b *Box[T]) Set(value T) bool {
	b.mu.Lock()
	old := b.value
	if b.equals(any(value), any(old)) {
		b.mu.Unlock()
		return false
	}
	b.value = value
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(value, old)
	}
	return true
}

// Subscribe registers fn and returns a function that removes it. Notifications
// run on the goroutine that called Set, after the write is committed.
func (b *Box[T]) Subscribe(fn Subscriber[T]) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}
