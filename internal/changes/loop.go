package changes

import (
	"context"
	"time"
)

// RunEvery invokes fn immediately, then again each interval after the
// previous invocation returns. Invocations never overlap: an invocation
// that outlives the interval delays the next. It returns the first error
// from fn, or the context error once the context ends.
func RunEvery(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(ctx); err != nil {
			return err
		}

		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
