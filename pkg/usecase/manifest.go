package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/errutil"
	"github.com/tidwall/jsonc"
)

// ManifestFilename is the descriptor file inside every overlay package folder
const ManifestFilename = "manifest.json"

// ManifestLoader reads overlay package manifests from the overlays directory
// and caches them per folder
type ManifestLoader struct {
	storage     interfaces.Storage
	overlaysDir string
	baseURL     string

	mu    sync.Mutex
	cache map[string]*model.OverlayManifest
}

// ManifestEntry is one overlay package found in the overlays directory
type ManifestEntry struct {
	FolderName string                 `json:"folderName"`
	Manifest   *model.OverlayManifest `json:"manifest,omitempty"`
	Err        error                  `json:"-"`
}

func NewManifestLoader(storage interfaces.Storage, overlaysDir, baseURL string) *ManifestLoader {
	return &ManifestLoader{
		storage:     storage,
		overlaysDir: overlaysDir,
		baseURL:     strings.TrimRight(baseURL, "/"),
		cache:       make(map[string]*model.OverlayManifest),
	}
}

func validateFolderName(folderName string) error {
	if folderName == "" || folderName == "." || folderName == ".." ||
		strings.ContainsAny(folderName, `/\`) {
		return goerr.Wrap(model.ErrValidation, "invalid overlay folder name", goerr.V(model.FolderNameKey, folderName))
	}
	return nil
}

// Load returns the validated manifest of an overlay folder. Manifests may
// contain comments and trailing commas.
func (l *ManifestLoader) Load(ctx context.Context, folderName string) (*model.OverlayManifest, error) {
	if err := validateFolderName(folderName); err != nil {
		return nil, err
	}

	l.mu.Lock()
	cached, ok := l.cache[folderName]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	path := l.storage.Join(l.overlaysDir, folderName, ManifestFilename)
	data, err := l.storage.Read(ctx, path)
	if err != nil {
		if errors.Is(err, model.ErrStorageNotFound) {
			return nil, goerr.Wrap(model.ErrOverlayNotFound, "overlay manifest not found",
				goerr.V(model.FolderNameKey, folderName), goerr.V(model.PathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read overlay manifest", goerr.V(model.PathKey, path))
	}

	var manifest model.OverlayManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return nil, goerr.Wrap(model.ErrManifestInvalid, "malformed overlay manifest",
			goerr.V(model.PathKey, path), goerr.V("cause", err.Error()))
	}
	if err := manifest.Validate(); err != nil {
		return nil, goerr.Wrap(err, "overlay manifest failed validation", goerr.V(model.PathKey, path))
	}

	l.mu.Lock()
	l.cache[folderName] = &manifest
	l.mu.Unlock()
	return &manifest, nil
}

// Invalidate drops the cached manifest of a folder so the next Load rereads it
func (l *ManifestLoader) Invalidate(folderName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, folderName)
}

// Reload rereads the manifest of a folder, replacing the cached one. Layouts
// created afterwards use the new manifest.
func (l *ManifestLoader) Reload(ctx context.Context, folderName string) (*model.OverlayManifest, error) {
	l.Invalidate(folderName)
	return l.Load(ctx, folderName)
}

// List loads every overlay package under the overlays directory. Broken
// packages are logged and reported through ManifestEntry.Err.
func (l *ManifestLoader) List(ctx context.Context) ([]ManifestEntry, error) {
	folders, err := l.storage.ListDirs(ctx, l.overlaysDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list overlay folders", goerr.V(model.PathKey, l.overlaysDir))
	}

	entries := make([]ManifestEntry, 0, len(folders))
	for _, folder := range folders {
		manifest, err := l.Load(ctx, folder)
		if err != nil {
			errutil.Warn(ctx, err, "skipping overlay package")
		}
		entries = append(entries, ManifestEntry{FolderName: folder, Manifest: manifest, Err: err})
	}
	return entries, nil
}

// BaseURLFor returns the page URL of an overlay package, ending with a slash
func (l *ManifestLoader) BaseURLFor(folderName string) string {
	return l.baseURL + "/" + url.PathEscape(folderName) + "/"
}
