package http

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/usecase"
	"github.com/simhud/simhud/pkg/utils/errutil"
)

const maxBodyBytes = 1 << 20

type Server struct {
	router    *chi.Mux
	uc        *usecase.UseCases
	overlayFS fs.FS
}

type Options func(*Server)

// WithOverlayFS serves overlay package files under /overlays/
func WithOverlayFS(fsys fs.FS) Options {
	return func(s *Server) {
		s.overlayFS = fsys
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", s.listGames)
		r.Get("/overlays", s.listOverlays)
		r.Post("/overlays/{folderName}/reload", s.reloadOverlay)

		r.Get("/active", s.getActive)
		r.Put("/active", s.putActive)
		r.Put("/edit-mode", s.putEditMode)
		r.Put("/preview-mode", s.putPreviewMode)

		r.Route("/games/{game}", func(r chi.Router) {
			r.Get("/layouts", s.listLayouts)
			r.Post("/layouts", s.createLayout)
			r.Put("/layouts/{filename}", s.updateLayout)
			r.Delete("/layouts/{filename}", s.deleteLayout)

			r.Get("/order", s.getOrder)
			r.Put("/order", s.putOrder)

			r.Post("/layouts/{filename}/overlays", s.addOverlay)
			r.Delete("/layouts/{filename}/overlays/{id}", s.removeOverlay)
			r.Put("/layouts/{filename}/overlays/{id}/visible", s.putOverlayVisible)
			r.Put("/layouts/{filename}/overlays/{id}/bounds", s.putOverlayBounds)
		})
	})

	// Overlay pages loaded by the overlay windows
	if s.overlayFS != nil {
		r.Handle("/overlays/*", http.StripPrefix("/overlays/", http.FileServer(http.FS(s.overlayFS))))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "malformed request body", goerr.V("cause", err.Error()))
	}
	return nil
}

// pathParam returns the unescaped value of a route parameter
func pathParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "malformed path parameter", goerr.V("param", key))
	}
	return value, nil
}

func gameParam(r *http.Request) (types.GameName, error) {
	raw, err := pathParam(r, "game")
	if err != nil {
		return "", err
	}
	game, err := types.ParseGameName(raw)
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "unknown game", goerr.V(model.GameKey, raw))
	}
	return game, nil
}

// layoutParams extracts the game and layout filename of a layout route
func layoutParams(r *http.Request) (types.GameName, string, error) {
	game, err := gameParam(r)
	if err != nil {
		return "", "", err
	}
	filename, err := pathParam(r, "filename")
	if err != nil {
		return "", "", err
	}
	return game, filename, nil
}

// handle runs fn and writes its error, if any
func handle(w http.ResponseWriter, r *http.Request, fn func() error) {
	if err := fn(); err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
	}
}
