package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/utils/errutil"
	"github.com/simhud/simhud/pkg/utils/logging"
)

// Env holds the collaborators shared by every layout
type Env struct {
	Storage    interfaces.Storage
	Host       interfaces.WindowHost
	Manifests  *ManifestLoader
	LayoutsDir string
}

func (e *Env) gameDir(game types.GameName) string {
	return e.Storage.Join(e.LayoutsDir, game.DirName())
}

func (e *Env) layoutPath(game types.GameName, filename string) string {
	return e.Storage.Join(e.LayoutsDir, game.DirName(), filename)
}

func (e *Env) settingsPath(game types.GameName) string {
	return e.layoutPath(game, model.CatalogSettingsFilename)
}

// NormalizeFilename appends the layout extension when it is missing
func NormalizeFilename(filename string) string {
	if filename == "" || strings.HasSuffix(filename, model.LayoutFileExt) {
		return filename
	}
	return filename + model.LayoutFileExt
}

func validateFilename(filename string) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		return goerr.Wrap(model.ErrValidation, "invalid layout filename", goerr.V(model.FilenameKey, filename))
	}
	if filename == model.CatalogSettingsFilename {
		return goerr.Wrap(model.ErrValidation, "layout filename is reserved", goerr.V(model.FilenameKey, filename))
	}
	return nil
}

// Layout owns the overlay surfaces of one named layout and keeps its
// persisted file consistent with them
type Layout struct {
	env      *Env
	filename string
	game     types.GameName
	title    string
	screen   model.Screen

	overlays []*Surface
	folders  map[string]string
	// entries whose overlay package could not be loaded; written back as-is
	detached []model.OverlayEntry

	editMode bool
	shown    bool
}

// NewLayout creates an empty layout. Nothing is written until Save.
func NewLayout(env *Env, game types.GameName, filename, title string, screen model.Screen) *Layout {
	return &Layout{
		env:      env,
		filename: filename,
		game:     game,
		title:    title,
		screen:   screen,
		folders:  make(map[string]string),
	}
}

// LoadLayout reads a layout file and instantiates a hidden surface for each
// of its overlays
func LoadLayout(ctx context.Context, env *Env, game types.GameName, filename string) (*Layout, error) {
	path := env.layoutPath(game, filename)
	data, err := env.Storage.Read(ctx, path)
	if err != nil {
		if errors.Is(err, model.ErrStorageNotFound) {
			return nil, goerr.Wrap(model.ErrLayoutNotFound, "layout file not found",
				goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, game))
		}
		return nil, goerr.Wrap(err, "failed to read layout file", goerr.V(model.PathKey, path))
	}

	file, err := model.DecodeLayoutFile(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid layout file", goerr.V(model.PathKey, path))
	}
	return newLayoutFromFile(ctx, env, game, filename, file)
}

// newLayoutFromFile builds a layout from persisted data. Overlays whose
// package cannot be loaded are kept detached; a window allocation failure
// tears down the surfaces created so far.
func newLayoutFromFile(ctx context.Context, env *Env, game types.GameName, filename string, file *model.LayoutFile) (*Layout, error) {
	l := NewLayout(env, game, filename, file.Title, file.Screen)

	for _, entry := range dedupeEntries(ctx, file.Overlays) {
		surface, err := l.surfaceFromEntry(ctx, entry)
		if err != nil {
			if errors.Is(err, model.ErrResource) {
				l.Destroy(ctx)
				return nil, err
			}
			errutil.Warn(ctx, err, "keeping overlay without surface")
			l.detach(entry)
			continue
		}
		if err := l.AddOverlay(surface, entry.FolderName); err != nil {
			errutil.Warn(ctx, err, "skipping overlay")
			_ = surface.Destroy(ctx)
		}
	}
	return l, nil
}

// dedupeEntries keeps the first entry of each overlay id
func dedupeEntries(ctx context.Context, entries []model.OverlayEntry) []model.OverlayEntry {
	seen := make(map[string]bool, len(entries))
	result := make([]model.OverlayEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			logging.From(ctx).Warn("ignoring overlay without id", "folder_name", entry.FolderName)
			continue
		}
		if seen[entry.ID] {
			logging.From(ctx).Warn("ignoring duplicate overlay id", "overlay_id", entry.ID)
			continue
		}
		seen[entry.ID] = true
		result = append(result, entry)
	}
	return result
}

func (l *Layout) surfaceFromEntry(ctx context.Context, entry model.OverlayEntry) (*Surface, error) {
	manifest, err := l.env.Manifests.Load(ctx, entry.FolderName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load overlay package",
			goerr.V(model.OverlayIDKey, entry.ID), goerr.V(model.FolderNameKey, entry.FolderName))
	}

	settings := model.NormalizeSettings(entry.Settings)
	if err := manifest.ValidateSettings(settings); err != nil {
		errutil.Warn(ctx, err, "overlay settings do not match manifest")
	}

	baseURL := entry.BaseURL
	if baseURL == "" {
		baseURL = l.env.Manifests.BaseURLFor(entry.FolderName)
	}

	return NewSurface(ctx, l.env.Host, SurfaceConfig{
		ID:       entry.ID,
		BaseURL:  baseURL,
		Manifest: manifest,
		Bounds:   model.BoundsFor(entry.Position, entry.Size, manifest.Dimensions),
		Visible:  entry.Visible,
		Settings: settings,
	})
}

// Save writes the layout file. Game, filename, title and screen must be set.
func (l *Layout) Save(ctx context.Context) error {
	switch {
	case l.game.IsNone():
		return goerr.Wrap(model.ErrValidation, "layout game is not set", goerr.V(model.FilenameKey, l.filename))
	case l.screen.IsZero():
		return goerr.Wrap(model.ErrValidation, "layout screen size is not set", goerr.V(model.FilenameKey, l.filename))
	case l.filename == "":
		return goerr.Wrap(model.ErrValidation, "layout filename is not set")
	case l.title == "":
		return goerr.Wrap(model.ErrValidation, "layout title is not set", goerr.V(model.FilenameKey, l.filename))
	}

	file := model.LayoutFile{
		Title:    l.title,
		Screen:   l.screen,
		Overlays: make([]model.OverlayEntry, 0, len(l.overlays)),
	}
	for _, s := range l.overlays {
		file.Overlays = append(file.Overlays, s.Entry(ctx, l.folders[s.ID()]))
	}
	file.Overlays = append(file.Overlays, l.detached...)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode layout", goerr.V(model.FilenameKey, l.filename))
	}

	path := l.env.layoutPath(l.game, l.filename)
	if err := l.env.Storage.Write(ctx, path, data); err != nil {
		return goerr.Wrap(err, "failed to write layout", goerr.V(model.PathKey, path))
	}
	return nil
}

func validateLayoutData(data model.LayoutFile) error {
	if data.Title == "" {
		return goerr.Wrap(model.ErrValidation, "layout title is not set")
	}
	if data.Screen.IsZero() {
		return goerr.Wrap(model.ErrValidation, "layout screen size is not set",
			goerr.V("width", data.Screen.Width), goerr.V("height", data.Screen.Height))
	}
	for i, entry := range data.Overlays {
		if entry.ID == "" {
			return goerr.Wrap(model.ErrValidation, "overlay id is not set", goerr.V("index", i))
		}
		if entry.FolderName == "" {
			return goerr.Wrap(model.ErrValidation, "overlay folder name is not set", goerr.V(model.OverlayIDKey, entry.ID))
		}
	}
	return nil
}

// Update reconciles live surfaces against incoming layout data and saves.
// Invalid data is rejected before anything changes. Surfaces missing from the
// data are destroyed before new ones are created, so an id is never live twice.
func (l *Layout) Update(ctx context.Context, data model.LayoutFile) error {
	if err := validateLayoutData(data); err != nil {
		return goerr.Wrap(err, "invalid layout data", goerr.V(model.FilenameKey, l.filename))
	}

	incoming := dedupeEntries(ctx, data.Overlays)
	byID := make(map[string]model.OverlayEntry, len(incoming))
	for _, entry := range incoming {
		byID[entry.ID] = entry
	}

	for _, s := range append([]*Surface(nil), l.overlays...) {
		entry, ok := byID[s.ID()]
		if !ok {
			l.RemoveOverlayByID(ctx, s.ID())
			continue
		}
		if err := s.UpdateSettings(ctx, model.NormalizeSettings(entry.Settings)); err != nil {
			return goerr.Wrap(err, "failed to update overlay settings", goerr.V(model.OverlayIDKey, s.ID()))
		}
	}
	l.detached = slices.DeleteFunc(l.detached, func(entry model.OverlayEntry) bool {
		_, ok := byID[entry.ID]
		return !ok
	})

	var added []*Surface
	for _, entry := range incoming {
		if l.Overlay(entry.ID) != nil {
			continue
		}
		surface, err := l.surfaceFromEntry(ctx, entry)
		if err != nil {
			if errors.Is(err, model.ErrResource) {
				return err
			}
			errutil.Warn(ctx, err, "keeping overlay without surface")
			l.detach(entry)
			continue
		}
		l.undetach(entry.ID)
		if err := l.AddOverlay(surface, entry.FolderName); err != nil {
			_ = surface.Destroy(ctx)
			return err
		}
		added = append(added, surface)
	}

	l.title = data.Title
	l.screen = data.Screen

	if l.shown {
		for _, s := range added {
			if err := s.SetEditMode(ctx, l.editMode); err != nil {
				return err
			}
			if err := s.Show(ctx); err != nil {
				return err
			}
		}
	}

	return l.Save(ctx)
}

// SetOverlayVisibleByID applies visibility to one overlay right away. It
// reports false when the id is unknown.
func (l *Layout) SetOverlayVisibleByID(ctx context.Context, id string, visible bool) (bool, error) {
	s := l.Overlay(id)
	if s == nil {
		if i := l.detachedIndex(id); i >= 0 {
			l.detached[i].Visible = visible
			return true, nil
		}
		logging.From(ctx).Warn("overlay not found", "overlay_id", id, "filename", l.filename)
		return false, nil
	}
	if err := s.SetVisible(ctx, visible, true); err != nil {
		return true, err
	}
	return true, nil
}

// AddOverlay appends a surface and remembers the package it came from
func (l *Layout) AddOverlay(surface *Surface, folderName string) error {
	if l.Overlay(surface.ID()) != nil || l.detachedIndex(surface.ID()) >= 0 {
		return goerr.Wrap(model.ErrValidation, "overlay id already in layout",
			goerr.V(model.OverlayIDKey, surface.ID()), goerr.V(model.FilenameKey, l.filename))
	}
	l.overlays = append(l.overlays, surface)
	l.folders[surface.ID()] = folderName
	return nil
}

// RemoveOverlayByID destroys and evicts an overlay, reporting whether it existed
func (l *Layout) RemoveOverlayByID(ctx context.Context, id string) bool {
	for i, s := range l.overlays {
		if s.ID() != id {
			continue
		}
		if err := s.Destroy(ctx); err != nil {
			errutil.Warn(ctx, err, "failed to destroy overlay")
		}
		l.overlays = append(l.overlays[:i], l.overlays[i+1:]...)
		delete(l.folders, id)
		return true
	}
	return l.undetach(id)
}

func (l *Layout) detachedIndex(id string) int {
	return slices.IndexFunc(l.detached, func(entry model.OverlayEntry) bool { return entry.ID == id })
}

// detach keeps an entry that has no surface, replacing a previous one with the same id
func (l *Layout) detach(entry model.OverlayEntry) {
	if i := l.detachedIndex(entry.ID); i >= 0 {
		l.detached[i] = entry
		return
	}
	l.detached = append(l.detached, entry)
}

func (l *Layout) undetach(id string) bool {
	i := l.detachedIndex(id)
	if i < 0 {
		return false
	}
	l.detached = slices.Delete(l.detached, i, i+1)
	return true
}

// Show displays every visible overlay with the layout's edit mode applied
func (l *Layout) Show(ctx context.Context) error {
	l.shown = true
	for _, s := range l.overlays {
		if err := s.SetEditMode(ctx, l.editMode); err != nil {
			return err
		}
		if err := s.Show(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) Hide(ctx context.Context) error {
	l.shown = false
	for _, s := range l.overlays {
		if err := s.Hide(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) SetEditMode(ctx context.Context, enabled bool) error {
	l.editMode = enabled
	for _, s := range l.overlays {
		if err := s.SetEditMode(ctx, enabled); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) SetPreviewMode(ctx context.Context, enabled bool) error {
	for _, s := range l.overlays {
		if err := s.SetPreviewMode(ctx, enabled); err != nil {
			return err
		}
	}
	return nil
}

// Destroy destroys every overlay of the layout
func (l *Layout) Destroy(ctx context.Context) {
	l.shown = false
	for _, s := range l.overlays {
		if err := s.Destroy(ctx); err != nil {
			errutil.Warn(ctx, err, "failed to destroy overlay")
		}
	}
}

// Config returns the in-memory summary of the layout
func (l *Layout) Config() *model.LayoutConfig {
	cfg := &model.LayoutConfig{
		Filename: l.filename,
		Game:     l.game,
		Title:    l.title,
		Screen:   l.screen,
		Overlays: make([]model.OverlayConfig, 0, len(l.overlays)),
	}
	for _, s := range l.overlays {
		cfg.Overlays = append(cfg.Overlays, model.OverlayConfig{
			ID:         s.ID(),
			FolderName: l.folders[s.ID()],
			Visible:    s.Visible(),
			Manifest:   s.Manifest(),
		})
	}
	return cfg
}

// LayoutFile rereads the persisted layout. It returns nil and logs when the
// file is missing or invalid.
func (l *Layout) LayoutFile(ctx context.Context) *model.LayoutFile {
	path := l.env.layoutPath(l.game, l.filename)
	data, err := l.env.Storage.Read(ctx, path)
	if err != nil {
		errutil.Warn(ctx, goerr.Wrap(err, "failed to read layout file", goerr.V(model.PathKey, path)), "layout file unavailable")
		return nil
	}
	file, err := model.DecodeLayoutFile(data)
	if err != nil {
		errutil.Warn(ctx, goerr.Wrap(err, "invalid layout file", goerr.V(model.PathKey, path)), "layout file unavailable")
		return nil
	}
	return file
}

func (l *Layout) Filename() string     { return l.filename }
func (l *Layout) Game() types.GameName { return l.game }
func (l *Layout) Title() string        { return l.title }
func (l *Layout) Screen() model.Screen { return l.screen }
func (l *Layout) Shown() bool          { return l.shown }
func (l *Layout) EditMode() bool       { return l.editMode }

// Overlays returns the surfaces in layout order
func (l *Layout) Overlays() []*Surface {
	return append([]*Surface(nil), l.overlays...)
}

// Detached returns the entries kept without a surface because their overlay
// package could not be loaded
func (l *Layout) Detached() []model.OverlayEntry {
	return slices.Clone(l.detached)
}

// Overlay returns the surface with the given id or nil
func (l *Layout) Overlay(id string) *Surface {
	for _, s := range l.overlays {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// FolderName returns the overlay package folder an overlay was created from
func (l *Layout) FolderName(id string) (string, bool) {
	name, ok := l.folders[id]
	return name, ok
}
