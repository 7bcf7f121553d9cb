package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeGo_RunsTheTask(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, nil, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestSafeGo_RecoversFromPanic(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, nil, "panicking task", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	// Reaching this point without the test process dying is the assertion.
}

func TestSafeGo_EnforcesTimeout(t *testing.T) {
	var deadlineSet atomic.Bool
	done := make(chan struct{})
	SafeGo(context.Background(), 10*time.Millisecond, nil, "slow task", func(ctx context.Context) error {
		defer close(done)
		_, ok := ctx.Deadline()
		deadlineSet.Store(ok)
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
	assert.True(t, deadlineSet.Load())
}

func TestSafeGo_LogsErrorsWithoutPropagating(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, nil, "failing task", func(ctx context.Context) error {
		defer close(done)
		return errors.New("expected failure")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}
