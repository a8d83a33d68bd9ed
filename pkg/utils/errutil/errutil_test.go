package errutil_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/errutil"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", goerr.Wrap(model.ErrValidation, "title is required"), http.StatusBadRequest},
		{"layout not found", goerr.Wrap(model.ErrLayoutNotFound, "missing", goerr.V(model.FilenameKey, "x.json")), http.StatusNotFound},
		{"overlay not found", goerr.Wrap(model.ErrOverlayNotFound, "missing"), http.StatusNotFound},
		{"resource", goerr.Wrap(model.ErrResource, "no window"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, errutil.StatusCode(tt.err)).Equal(tt.want)
		})
	}
}

func TestHandleHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), rec, goerr.Wrap(model.ErrLayoutNotFound, "layout not found"))

	gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	gt.Value(t, rec.Header().Get("Content-Type")).Equal("application/json")

	var body map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.String(t, body["error"]).Contains("layout not found")
}

func TestHandle_ReturnsSameError(t *testing.T) {
	err := goerr.New("boom")
	gt.Value(t, errutil.Handle(context.Background(), err, "failed")).Equal(err)
	gt.NoError(t, errutil.Handle(context.Background(), nil, "noop"))
}
