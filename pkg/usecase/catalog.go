package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/utils/errutil"
	"github.com/simhud/simhud/pkg/utils/logging"
)

// Catalog is the process-wide directory of layouts for the selected game.
// It tracks the single active layout, the display order and the catalog
// settings persisted per game. All methods are serialized by one mutex.
type Catalog struct {
	mu  sync.Mutex
	env *Env

	game        types.GameName
	layouts     map[string]*Layout
	order       []string
	active      *Layout
	editMode    bool
	previewMode bool
}

func NewCatalog(env *Env) *Catalog {
	return &Catalog{
		env:     env,
		game:    types.GameNone,
		layouts: make(map[string]*Layout),
	}
}

func validateGame(game types.GameName) error {
	if !game.IsValid() {
		return goerr.Wrap(model.ErrValidation, "unknown game", goerr.V(model.GameKey, game))
	}
	return nil
}

// Load makes game the current game: the previous layouts are hidden and
// destroyed, every layout file of the game is instantiated and the
// remembered active layout and order are restored. The restored active
// layout is not shown. A layout that fails to load is logged and skipped;
// an error is returned only when no layout could get a window.
func (c *Catalog) Load(ctx context.Context, game types.GameName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, game)
}

func (c *Catalog) load(ctx context.Context, game types.GameName) error {
	if game == "" {
		game = types.GameNone
	}
	if err := validateGame(game); err != nil {
		return err
	}

	c.deactivate(ctx)
	for _, l := range c.layouts {
		l.Destroy(ctx)
	}
	c.layouts = make(map[string]*Layout)
	c.order = nil
	c.game = game

	if game.IsNone() {
		return nil
	}

	dir := c.env.gameDir(game)
	files, err := c.env.Storage.ListFiles(ctx, dir)
	if err != nil {
		return goerr.Wrap(err, "failed to list layouts", goerr.V(model.PathKey, dir))
	}
	var resourceErr error
	for _, filename := range files {
		if !isLayoutFilename(filename) {
			continue
		}
		l, err := LoadLayout(ctx, c.env, game, filename)
		if err != nil {
			if errors.Is(err, model.ErrResource) && resourceErr == nil {
				resourceErr = err
			}
			errutil.Warn(ctx, err, "skipping layout")
			continue
		}
		c.layouts[filename] = l
	}
	if resourceErr != nil && len(c.layouts) == 0 {
		return resourceErr
	}

	settings, err := c.readSettings(ctx, game)
	if err != nil {
		errutil.Warn(ctx, err, "ignoring catalog settings")
		return nil
	}
	c.order = settings.LayoutOrder
	if settings.ActiveLayoutFilename != nil {
		if l, ok := c.layouts[*settings.ActiveLayoutFilename]; ok {
			c.active = l
		} else {
			logging.From(ctx).Warn("remembered active layout not found",
				"filename", *settings.ActiveLayoutFilename, "game", game)
		}
	}

	logging.From(ctx).Info("catalog loaded", "game", game, "layouts", len(c.layouts))
	return nil
}

func isLayoutFilename(filename string) bool {
	return strings.HasSuffix(filename, model.LayoutFileExt) && filename != model.CatalogSettingsFilename
}

// deactivate hides the active layout and takes it out of edit mode. Failures
// are logged since its windows may already be gone.
func (c *Catalog) deactivate(ctx context.Context) {
	if c.active == nil {
		return
	}
	if err := c.active.Hide(ctx); err != nil {
		errutil.Warn(ctx, err, "failed to hide previous active layout")
	}
	if err := c.active.SetEditMode(ctx, false); err != nil {
		errutil.Warn(ctx, err, "failed to leave edit mode on previous active layout")
	}
	if err := c.active.SetPreviewMode(ctx, false); err != nil {
		errutil.Warn(ctx, err, "failed to leave preview mode on previous active layout")
	}
	c.active = nil
}

// readSettings returns the persisted catalog settings of game, or empty
// settings when there are none
func (c *Catalog) readSettings(ctx context.Context, game types.GameName) (*model.CatalogSettings, error) {
	path := c.env.settingsPath(game)
	data, err := c.env.Storage.Read(ctx, path)
	if err != nil {
		if errors.Is(err, model.ErrStorageNotFound) {
			return &model.CatalogSettings{LayoutOrder: []string{}}, nil
		}
		return nil, goerr.Wrap(err, "failed to read catalog settings", goerr.V(model.PathKey, path))
	}
	settings, err := model.DecodeCatalogSettings(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid catalog settings", goerr.V(model.PathKey, path))
	}
	return settings, nil
}

func (c *Catalog) writeSettings(ctx context.Context, game types.GameName, settings *model.CatalogSettings) error {
	if settings.LayoutOrder == nil {
		settings.LayoutOrder = []string{}
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode catalog settings")
	}
	path := c.env.settingsPath(game)
	if err := c.env.Storage.Write(ctx, path, data); err != nil {
		return goerr.Wrap(err, "failed to write catalog settings", goerr.V(model.PathKey, path))
	}
	return nil
}

// saveSettings persists the current game's state. Order entries whose layout
// file no longer exists are pruned here; files that merely failed to load
// keep their place.
func (c *Catalog) saveSettings(ctx context.Context) error {
	if c.game.IsNone() {
		return nil
	}
	c.order = slices.DeleteFunc(c.order, func(filename string) bool {
		if _, ok := c.layouts[filename]; ok {
			return false
		}
		exists, err := c.env.Storage.Exists(ctx, c.env.layoutPath(c.game, filename))
		if err != nil {
			errutil.Warn(ctx, err, "keeping layout order entry")
			return false
		}
		return !exists
	})

	settings := &model.CatalogSettings{LayoutOrder: slices.Clone(c.order)}
	if c.active != nil {
		filename := c.active.Filename()
		settings.ActiveLayoutFilename = &filename
	}
	return c.writeSettings(ctx, c.game, settings)
}

// SetEditMode applies catalog-wide edit mode to the active layout
func (c *Catalog) SetEditMode(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editMode == enabled {
		return nil
	}
	if c.active != nil {
		if err := c.active.SetEditMode(ctx, enabled); err != nil {
			return err
		}
	}
	c.editMode = enabled
	return nil
}

// SetPreviewMode switches the active layout's pages to preview data. The mode
// follows activation like edit mode.
func (c *Catalog) SetPreviewMode(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if err := c.active.SetPreviewMode(ctx, enabled); err != nil {
			return err
		}
	}
	c.previewMode = enabled
	return nil
}

func (c *Catalog) PreviewMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previewMode
}

// SetActiveLayout deactivates the current active layout and activates
// filename, switching game first when needed. An empty filename only clears
// the active layout. An unknown filename leaves no layout active.
func (c *Catalog) SetActiveLayout(ctx context.Context, filename string, game types.GameName, show bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deactivate(ctx)

	if game != c.game {
		if err := c.load(ctx, game); err != nil {
			return err
		}
		c.active = nil
	}

	if filename == "" {
		return nil
	}
	filename = NormalizeFilename(filename)

	l, ok := c.layouts[filename]
	if !ok {
		logging.From(ctx).Warn("layout to activate not found", "filename", filename, "game", game)
		return goerr.Wrap(model.ErrLayoutNotFound, "layout not found",
			goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, game))
	}

	c.active = l
	if err := c.saveSettings(ctx); err != nil {
		return err
	}

	if show {
		if err := l.SetEditMode(ctx, c.editMode); err != nil {
			return err
		}
		if err := l.SetPreviewMode(ctx, c.previewMode); err != nil {
			return err
		}
		if err := l.Show(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateLayout instantiates and persists a new layout for the current game.
// It is neither ordered nor activated.
func (c *Catalog) CreateLayout(ctx context.Context, filename string, data model.LayoutFile) (*model.LayoutConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createLayout(ctx, filename, data)
}

// CreateLayoutForGame makes game current when it is not, then creates the
// layout, without releasing the catalog in between
func (c *Catalog) CreateLayoutForGame(ctx context.Context, game types.GameName, filename string, data model.LayoutFile) (*model.LayoutConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateGame(game); err != nil {
		return nil, err
	}
	if game.IsNone() {
		return nil, goerr.Wrap(model.ErrValidation, "no game selected")
	}
	if game != c.game {
		if err := c.load(ctx, game); err != nil {
			return nil, err
		}
	}
	return c.createLayout(ctx, filename, data)
}

func (c *Catalog) createLayout(ctx context.Context, filename string, data model.LayoutFile) (*model.LayoutConfig, error) {
	if c.game.IsNone() {
		return nil, goerr.Wrap(model.ErrValidation, "no game selected")
	}
	filename = NormalizeFilename(filename)
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	if _, exists := c.layouts[filename]; exists {
		return nil, goerr.Wrap(model.ErrValidation, "layout already exists",
			goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, c.game))
	}

	l, err := newLayoutFromFile(ctx, c.env, c.game, filename, &data)
	if err != nil {
		return nil, err
	}
	if err := l.Save(ctx); err != nil {
		l.Destroy(ctx)
		return nil, err
	}

	c.layouts[filename] = l
	if err := c.saveSettings(ctx); err != nil {
		return nil, err
	}
	return l.Config(), nil
}

// DeleteLayout removes a layout from the order, tears it down when it belongs
// to the current game, and deletes its file for any game
func (c *Catalog) DeleteLayout(ctx context.Context, filename string, game types.GameName) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateGame(game); err != nil {
		return err
	}
	filename = NormalizeFilename(filename)
	if err := validateFilename(filename); err != nil {
		return err
	}

	live := false
	if game == c.game {
		c.order = slices.DeleteFunc(c.order, func(f string) bool { return f == filename })
		if l, ok := c.layouts[filename]; ok {
			live = true
			if c.active == l {
				c.active = nil
			}
			l.Destroy(ctx)
			delete(c.layouts, filename)
		}
		if err := c.saveSettings(ctx); err != nil {
			return err
		}
	} else {
		settings, err := c.readSettings(ctx, game)
		if err != nil {
			return err
		}
		settings.LayoutOrder = slices.DeleteFunc(settings.LayoutOrder, func(f string) bool { return f == filename })
		if settings.ActiveLayoutFilename != nil && *settings.ActiveLayoutFilename == filename {
			settings.ActiveLayoutFilename = nil
		}
		if err := c.writeSettings(ctx, game, settings); err != nil {
			return err
		}
	}

	path := c.env.layoutPath(game, filename)
	deleted, err := c.env.Storage.Delete(ctx, path)
	if err != nil {
		return goerr.Wrap(err, "failed to delete layout file", goerr.V(model.PathKey, path))
	}
	if !deleted && !live {
		return goerr.Wrap(model.ErrLayoutNotFound, "layout not found",
			goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, game))
	}
	return nil
}

// UpdateLayoutsOrder replaces the display order of game's layouts
func (c *Catalog) UpdateLayoutsOrder(ctx context.Context, order []string, game types.GameName) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateGame(game); err != nil {
		return err
	}
	normalized := make([]string, 0, len(order))
	for _, filename := range order {
		normalized = append(normalized, NormalizeFilename(filename))
	}

	if game == c.game {
		c.order = normalized
		return c.saveSettings(ctx)
	}

	settings, err := c.readSettings(ctx, game)
	if err != nil {
		return err
	}
	settings.LayoutOrder = normalized
	return c.writeSettings(ctx, game, settings)
}

// LayoutOrder returns the live order for the current game and the persisted
// order for any other game
func (c *Catalog) LayoutOrder(ctx context.Context, game types.GameName) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if game == c.game {
		return slices.Clone(c.order), nil
	}
	if err := validateGame(game); err != nil {
		return nil, err
	}
	settings, err := c.readSettings(ctx, game)
	if err != nil {
		return nil, err
	}
	return settings.LayoutOrder, nil
}

// withLayout runs fn on the live layout of the current game, or on a
// transient layout loaded from storage for any other game. The transient
// layout is torn down afterwards and the catalog is left untouched.
func (c *Catalog) withLayout(ctx context.Context, filename string, game types.GameName, fn func(*Layout) error) error {
	if err := validateGame(game); err != nil {
		return err
	}
	filename = NormalizeFilename(filename)

	if game == c.game {
		l, ok := c.layouts[filename]
		if !ok {
			return goerr.Wrap(model.ErrLayoutNotFound, "layout not found",
				goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, game))
		}
		return fn(l)
	}

	if err := validateFilename(filename); err != nil {
		return err
	}
	l, err := LoadLayout(ctx, c.env, game, filename)
	if err != nil {
		return err
	}
	defer l.Destroy(ctx)
	return fn(l)
}

// UpdateLayout reconciles a layout against new data and persists it
func (c *Catalog) UpdateLayout(ctx context.Context, filename string, data model.LayoutFile, game types.GameName) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.withLayout(ctx, filename, game, func(l *Layout) error {
		return l.Update(ctx, data)
	})
}

// Layouts reads every valid layout file of game, annotated with its filename.
// Invalid files are logged and skipped.
func (c *Catalog) Layouts(ctx context.Context, game types.GameName) ([]model.NamedLayoutFile, error) {
	if err := validateGame(game); err != nil {
		return nil, err
	}
	if game.IsNone() {
		return []model.NamedLayoutFile{}, nil
	}

	dir := c.env.gameDir(game)
	files, err := c.env.Storage.ListFiles(ctx, dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list layouts", goerr.V(model.PathKey, dir))
	}

	result := make([]model.NamedLayoutFile, 0, len(files))
	for _, filename := range files {
		if !isLayoutFilename(filename) {
			continue
		}
		path := c.env.Storage.Join(dir, filename)
		data, err := c.env.Storage.Read(ctx, path)
		if err != nil {
			errutil.Warn(ctx, goerr.Wrap(err, "failed to read layout", goerr.V(model.PathKey, path)), "skipping layout")
			continue
		}
		file, err := model.DecodeLayoutFile(data)
		if err != nil {
			errutil.Warn(ctx, goerr.Wrap(err, "invalid layout", goerr.V(model.PathKey, path)), "skipping layout")
			continue
		}
		result = append(result, model.NamedLayoutFile{Filename: filename, LayoutFile: *file})
	}
	return result, nil
}

// SortByOrder orders layouts by the given filename order; layouts missing
// from it follow in their original order
func SortByOrder(layouts []model.NamedLayoutFile, order []string) []model.NamedLayoutFile {
	rank := make(map[string]int, len(order))
	for i, filename := range order {
		if _, ok := rank[filename]; !ok {
			rank[filename] = i
		}
	}
	sorted := slices.Clone(layouts)
	slices.SortStableFunc(sorted, func(a, b model.NamedLayoutFile) int {
		ra, oka := rank[a.Filename]
		rb, okb := rank[b.Filename]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
	return sorted
}

func (c *Catalog) Game() types.GameName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

func (c *Catalog) EditMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editMode
}

// ActiveLayout returns the summary of the active layout or nil
func (c *Catalog) ActiveLayout() *model.LayoutConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	return c.active.Config()
}

// ActiveShown reports whether the active layout is currently displayed
func (c *Catalog) ActiveShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.Shown()
}

// Config returns the summary of a live layout of the current game
func (c *Catalog) Config(filename string) (*model.LayoutConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filename = NormalizeFilename(filename)
	l, ok := c.layouts[filename]
	if !ok {
		return nil, goerr.Wrap(model.ErrLayoutNotFound, "layout not found",
			goerr.V(model.FilenameKey, filename), goerr.V(model.GameKey, c.game))
	}
	return l.Config(), nil
}

// AddOverlay instantiates an overlay package into a layout with a fresh id,
// the manifest's default size and settings, and saves the layout
func (c *Catalog) AddOverlay(ctx context.Context, game types.GameName, filename, folderName string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	manifest, err := c.env.Manifests.Load(ctx, folderName)
	if err != nil {
		return "", err
	}

	id := model.NewOverlayID()
	err = c.withLayout(ctx, filename, game, func(l *Layout) error {
		surface, err := NewSurface(ctx, c.env.Host, SurfaceConfig{
			ID:       id,
			BaseURL:  c.env.Manifests.BaseURLFor(folderName),
			Manifest: manifest,
			Bounds:   model.BoundsFor(model.Position{}, model.Size{}, manifest.Dimensions),
			Visible:  true,
		})
		if err != nil {
			return err
		}
		if err := l.AddOverlay(surface, folderName); err != nil {
			_ = surface.Destroy(ctx)
			return err
		}
		if l.Shown() {
			if err := surface.SetEditMode(ctx, l.EditMode()); err != nil {
				return err
			}
			if err := surface.Show(ctx); err != nil {
				return err
			}
		}
		return l.Save(ctx)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveOverlay destroys an overlay and saves its layout
func (c *Catalog) RemoveOverlay(ctx context.Context, game types.GameName, filename, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.withLayout(ctx, filename, game, func(l *Layout) error {
		if !l.RemoveOverlayByID(ctx, id) {
			return goerr.Wrap(model.ErrOverlayNotFound, "overlay not found",
				goerr.V(model.OverlayIDKey, id), goerr.V(model.FilenameKey, l.Filename()))
		}
		return l.Save(ctx)
	})
}

// SetOverlayVisible changes an overlay's visibility and saves its layout
func (c *Catalog) SetOverlayVisible(ctx context.Context, game types.GameName, filename, id string, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.withLayout(ctx, filename, game, func(l *Layout) error {
		found, err := l.SetOverlayVisibleByID(ctx, id, visible)
		if err != nil {
			return err
		}
		if !found {
			return goerr.Wrap(model.ErrOverlayNotFound, "overlay not found",
				goerr.V(model.OverlayIDKey, id), goerr.V(model.FilenameKey, l.Filename()))
		}
		return l.Save(ctx)
	})
}

// SetOverlayBounds moves or resizes an overlay and saves its layout
func (c *Catalog) SetOverlayBounds(ctx context.Context, game types.GameName, filename, id string, bounds model.PartialBounds) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.withLayout(ctx, filename, game, func(l *Layout) error {
		s := l.Overlay(id)
		if s == nil {
			return goerr.Wrap(model.ErrOverlayNotFound, "overlay not found",
				goerr.V(model.OverlayIDKey, id), goerr.V(model.FilenameKey, l.Filename()))
		}
		if err := s.UpdateWindowBounds(ctx, bounds); err != nil {
			return err
		}
		return l.Save(ctx)
	})
}

// Manifests lists the overlay packages available to layouts
func (c *Catalog) Manifests(ctx context.Context) ([]ManifestEntry, error) {
	return c.env.Manifests.List(ctx)
}

// Close destroys every layout of the current game
func (c *Catalog) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = nil
	for _, l := range c.layouts {
		l.Destroy(ctx)
	}
	c.layouts = make(map[string]*Layout)
}
