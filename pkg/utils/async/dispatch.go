package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/utils/errutil"
	"github.com/simhud/simhud/pkg/utils/logging"
)

// Dispatch runs task in a new goroutine. The task gets a context that keeps
// ctx's logger but not its cancellation. Failures and panics are reported
// through errutil. The returned channel is closed when the task returns.
func Dispatch(ctx context.Context, name string, task func(ctx context.Context) error) <-chan struct{} {
	bgCtx := logging.With(context.Background(), logging.From(ctx).With("task", name))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New("panic in background task", goerr.V("panic", r)), "background task panicked")
			}
		}()

		if err := task(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "background task failed")
		}
	}()

	return done
}
