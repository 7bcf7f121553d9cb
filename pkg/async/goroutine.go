package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/stash/pkg/observability"
)

// SafeGo runs fn in a goroutine with panic recovery and a timeout derived
// from parentCtx. Errors and panics are logged under the task name; nothing
// propagates to the caller.
func SafeGo(parentCtx context.Context, timeout time.Duration, log *observability.Logger, task string, fn func(context.Context) error) {
	if log == nil {
		log = observability.NopLogger()
	}

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"task":  task,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("Background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithError(err).WithField("task", task).Warn("Background task failed")
		}
	}()
}
