package async_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/simhud/simhud/pkg/utils/async"
	"github.com/simhud/simhud/pkg/utils/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func withLogger() (context.Context, *syncBuffer) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	return logging.With(context.Background(), logger), out
}

func TestDispatch(t *testing.T) {
	t.Run("detaches from the caller's cancellation", func(t *testing.T) {
		ctx, _ := withLogger()
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		var taskErr error
		<-async.Dispatch(ctx, "restore", func(ctx context.Context) error {
			taskErr = ctx.Err()
			return nil
		})
		gt.NoError(t, taskErr)
	})

	t.Run("logs failures with the task name", func(t *testing.T) {
		ctx, out := withLogger()
		<-async.Dispatch(ctx, "restore", func(ctx context.Context) error {
			return goerr.New("window host unavailable")
		})
		gt.String(t, out.String()).Contains("window host unavailable")
		gt.String(t, out.String()).Contains("restore")
	})

	t.Run("recovers from panics", func(t *testing.T) {
		ctx, out := withLogger()
		<-async.Dispatch(ctx, "restore", func(ctx context.Context) error {
			panic("boom")
		})
		gt.String(t, out.String()).Contains("background task panicked")
	})
}
