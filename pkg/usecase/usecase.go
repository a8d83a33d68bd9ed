package usecase

import (
	"github.com/simhud/simhud/pkg/domain/interfaces"
)

const (
	DefaultLayoutsDir     = "layouts"
	DefaultOverlaysDir    = "overlays"
	DefaultOverlayBaseURL = "http://127.0.0.1:8080/overlays"
)

type UseCases struct {
	storage interfaces.Storage

	layoutsDir     string
	overlaysDir    string
	overlayBaseURL string

	Manifests *ManifestLoader
	Catalog   *Catalog
}

type Option func(*UseCases)

func WithLayoutsDir(dir string) Option {
	return func(uc *UseCases) {
		uc.layoutsDir = dir
	}
}

func WithOverlaysDir(dir string) Option {
	return func(uc *UseCases) {
		uc.overlaysDir = dir
	}
}

// WithOverlayBaseURL sets the URL overlay package folders are served under
func WithOverlayBaseURL(url string) Option {
	return func(uc *UseCases) {
		uc.overlayBaseURL = url
	}
}

func New(storage interfaces.Storage, host interfaces.WindowHost, opts ...Option) *UseCases {
	uc := &UseCases{
		storage:        storage,
		layoutsDir:     DefaultLayoutsDir,
		overlaysDir:    DefaultOverlaysDir,
		overlayBaseURL: DefaultOverlayBaseURL,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Manifests = NewManifestLoader(storage, uc.overlaysDir, uc.overlayBaseURL)
	uc.Catalog = NewCatalog(&Env{
		Storage:    storage,
		Host:       host,
		Manifests:  uc.Manifests,
		LayoutsDir: uc.layoutsDir,
	})

	return uc
}

func (uc *UseCases) LayoutsDir() string  { return uc.layoutsDir }
func (uc *UseCases) OverlaysDir() string { return uc.overlaysDir }
