package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/logging"
)

// Handle logs the error with a message and reports it to Sentry when a client
// is configured. It returns err unchanged so callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)
	logger.Error(msg, attrs(err)...)

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureException(err)
	}

	return err
}

// Warn logs an error that was recovered from, e.g. a corrupt file skipped
// during a listing
func Warn(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}
	logging.From(ctx).Warn(msg, attrs(err)...)
}

func attrs(err error) []any {
	var ge *goerr.Error
	if errors.As(err, &ge) {
		return []any{
			slog.String("error", err.Error()),
			slog.Any("values", ge.Values()),
		}
	}
	return []any{slog.String("error", err.Error())}
}

// StatusCode maps domain errors to HTTP status codes
func StatusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidSetting),
		errors.Is(err, model.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrLayoutNotFound),
		errors.Is(err, model.ErrOverlayNotFound),
		errors.Is(err, model.ErrStorageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleHTTP logs the error and writes a JSON error body with a status code
// derived from the error. Server errors are logged at error level, client
// errors at warn level.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
	} else {
		logging.From(ctx).Warn("HTTP request rejected", append(attrs(err), slog.Int("status", status))...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
