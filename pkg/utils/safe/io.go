package safe

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/simhud/simhud/pkg/utils/logging"
)

// Close closes an io.Closer and logs any error. It handles nil closers gracefully.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Remove deletes a leftover file such as a temporary write target and logs
// any error other than the file already being gone
func Remove(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.From(ctx).Warn("Failed to remove", slog.String("path", path), slog.Any("error", err))
	}
}
