package observable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox_GetReturnsInitialValue(t *testing.T) {
	box := NewBox(42)
	assert.Equal(t, 42, box.Get())
}

func TestBox_SetNotifiesSubscribers(t *testing.T) {
	t.Run("subscriber sees value and old value", func(t *testing.T) {
		box := NewBox("a")

		var gotValue, gotOld string
		box.Subscribe(func(value, old string) {
			gotValue = value
			gotOld = old
		})

		changed := box.Set("b")
		assert.True(t, changed)
		assert.Equal(t, "b", gotValue)
		assert.Equal(t, "a", gotOld)
	})

	t.Run("equal write is suppressed", func(t *testing.T) {
		box := NewBox(7)

		calls := 0
		box.Subscribe(func(value, old int) { calls++ })

		assert.False(t, box.Set(7))
		assert.Equal(t, 0, calls)
	})

	t.Run("subscribers fire in subscription order", func(t *testing.T) {
		box := NewBox(0)

		var order []int
		box.Subscribe(func(value, old int) { order = append(order, 1) })
		box.Subscribe(func(value, old int) { order = append(order, 2) })
		box.Subscribe(func(value, old int) { order = append(order, 3) })

		box.Set(1)
		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		box := NewBox(0)

		calls := 0
		unsub := box.Subscribe(func(value, old int) { calls++ })
		box.Set(1)
		unsub()
		box.Set(2)

		assert.Equal(t, 1, calls)
	})
}

func TestBox_EqualityPolicies(t *testing.T) {
	type state struct {
		Open bool
		Tabs []string
	}

	t.Run("shallow treats non-comparable values as changed", func(t *testing.T) {
		box := NewBox(state{Open: true, Tabs: []string{"a"}})

		calls := 0
		box.Subscribe(func(value, old state) { calls++ })

		// Same content, but the slice field is not comparable so Shallow
		// counts it as changed.
		box.Set(state{Open: true, Tabs: []string{"a"}})
		assert.Equal(t, 1, calls)
	})

	t.Run("deep suppresses structurally equal values", func(t *testing.T) {
		box := NewBox(state{Open: true, Tabs: []string{"a"}})
		box.SetEquality(Deep)

		calls := 0
		box.Subscribe(func(value, old state) { calls++ })

		box.Set(state{Open: true, Tabs: []string{"a"}})
		assert.Equal(t, 0, calls)

		box.Set(state{Open: false, Tabs: []string{"a"}})
		assert.Equal(t, 1, calls)
	})

	t.Run("nil policy restores shallow", func(t *testing.T) {
		box := NewBox(1)
		box.SetEquality(nil)
		assert.False(t, box.Set(1))
		assert.True(t, box.Set(2))
	})
}

func TestEquality_Shallow(t *testing.T) {
	assert.True(t, Shallow(1, 1))
	assert.False(t, Shallow(1, 2))
	assert.False(t, Shallow(1, "1"))
	assert.True(t, Shallow(nil, nil))
	assert.False(t, Shallow(nil, 1))
	assert.False(t, Shallow([]int{1}, []int{1}))

	t.Run("compares exported struct fields", func(t *testing.T) {
		type point struct{ X, Y int }
		assert.True(t, Shallow(point{1, 2}, point{1, 2}))
		assert.False(t, Shallow(point{1, 2}, point{1, 3}))

		type sized struct {
			Name string
			Dims []int
		}
		// The slice field is not comparable, so equal content still counts
		// as changed.
		assert.False(t, Shallow(sized{"a", []int{1}}, sized{"a", []int{1}}))
		assert.False(t, Shallow(sized{"a", nil}, sized{"b", nil}))
	})

	t.Run("compares map entries", func(t *testing.T) {
		assert.True(t, Shallow(map[string]int{"a": 1}, map[string]int{"a": 1}))
		assert.False(t, Shallow(map[string]int{"a": 1}, map[string]int{"a": 2}))
		assert.False(t, Shallow(map[string]int{"a": 1}, map[string]int{"b": 1}))
		assert.False(t, Shallow(map[string]int{"a": 1}, map[string]int{"a": 1, "b": 2}))
	})
}

func TestEquality_IdentityIsStricterThanShallow(t *testing.T) {
	m1 := map[string]int{"a": 1}
	m2 := map[string]int{"a": 1}

	// Maps are not comparable, so Identity never matches them; Shallow
	// compares their entries.
	assert.False(t, Identity(m1, m2))
	assert.True(t, Shallow(m1, m2))

	type point struct{ X, Y int }
	assert.True(t, Identity(point{1, 2}, point{1, 2}))
}

func TestEquality_Deep(t *testing.T) {
	assert.True(t, Deep([]int{1, 2}, []int{1, 2}))
	assert.False(t, Deep([]int{1, 2}, []int{2, 1}))
	assert.True(t, Deep(map[string]int{"a": 1}, map[string]int{"a": 1}))
}
