package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/utils/errutil"
	"github.com/simhud/simhud/pkg/utils/logging"
)

// SurfaceConfig is the static identity and initial state of an overlay surface
type SurfaceConfig struct {
	ID       string
	BaseURL  string
	Manifest *model.OverlayManifest
	Bounds   model.Bounds
	Visible  bool
	// Nil settings take the manifest defaults
	Settings []model.OverlaySetting
}

// Surface owns one overlay window and drives it so the window reflects the
// latest applied settings and modes. A Surface is not goroutine-safe except
// for the window callbacks it installs.
type Surface struct {
	host     interfaces.WindowHost
	id       string
	baseURL  string
	manifest *model.OverlayManifest

	settings    []model.OverlaySetting
	visible     bool
	displayed   bool
	previewMode bool
	editMode    atomic.Bool

	boundsMu sync.Mutex
	bounds   model.Bounds

	handle            interfaces.WindowHandle
	loadedURL         string
	unsubscribe       []func()
	channelRegistered bool
	recreated         int
}

// NewSurface allocates the overlay window and registers the overlay channel.
// Window allocation failures are returned wrapping model.ErrResource.
func NewSurface(ctx context.Context, host interfaces.WindowHost, cfg SurfaceConfig) (*Surface, error) {
	if cfg.ID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "overlay id is required")
	}
	if cfg.Manifest == nil {
		return nil, goerr.Wrap(model.ErrValidation, "overlay manifest is required", goerr.V(model.OverlayIDKey, cfg.ID))
	}

	settings := cfg.Settings
	if settings == nil {
		settings = cfg.Manifest.DefaultSettings()
	}

	s := &Surface{
		host:     host,
		id:       cfg.ID,
		baseURL:  cfg.BaseURL,
		manifest: cfg.Manifest,
		settings: model.NormalizeSettings(settings),
		visible:  cfg.Visible,
		bounds:   cfg.Bounds,
	}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Surface) init(ctx context.Context) error {
	edit := s.editMode.Load()
	handle, err := s.host.Create(ctx, interfaces.WindowOptions{
		Title:       s.manifest.Title,
		Bounds:      s.Bounds(),
		Show:        false,
		Frameless:   true,
		Transparent: true,
		AlwaysOnTop: true,
		Resizable:   edit,
		Focusable:   false,
		IgnoreMouse: !edit,
	})
	if err != nil {
		return goerr.Wrap(model.ErrResource, "failed to create overlay window",
			goerr.V(model.OverlayIDKey, s.id), goerr.V("cause", err.Error()))
	}

	if err := s.host.RegisterChannel(handle, s.id, s.handleChannel); err != nil {
		_ = s.host.Destroy(ctx, handle)
		return goerr.Wrap(model.ErrResource, "failed to register overlay channel",
			goerr.V(model.OverlayIDKey, s.id), goerr.V("cause", err.Error()))
	}
	s.channelRegistered = true

	s.handle = handle
	s.loadedURL = ""
	s.unsubscribe = []func(){
		s.host.On(handle, interfaces.WindowEventResize, s.trackBounds),
		s.host.On(handle, interfaces.WindowEventMove, s.trackBounds),
	}
	return nil
}

// handleChannel answers the hosted page's state query
func (s *Surface) handleChannel(ctx context.Context, request any) (any, error) {
	return map[string]any{"editMode": s.editMode.Load()}, nil
}

func (s *Surface) trackBounds(b model.Bounds) {
	s.boundsMu.Lock()
	defer s.boundsMu.Unlock()
	s.bounds.X, s.bounds.Y = b.X, b.Y
	s.bounds.Width, s.bounds.Height = b.Width, b.Height
}

func (s *Surface) setBounds(b model.Bounds) {
	s.boundsMu.Lock()
	defer s.boundsMu.Unlock()
	s.bounds = b
}

// State reports whether the surface currently owns a live window. Windows
// destroyed out of band are detected through the host.
func (s *Surface) State() types.SurfaceState {
	if s.handle == "" || s.host.IsDestroyed(s.handle) {
		return types.SurfaceDestroyed
	}
	return types.SurfaceAlive
}

// Reinitialize drops whatever is left of the current window and allocates a new one
func (s *Surface) Reinitialize(ctx context.Context) error {
	s.release()
	if s.handle != "" && !s.host.IsDestroyed(s.handle) {
		if err := s.host.Destroy(ctx, s.handle); err != nil {
			errutil.Warn(ctx, err, "failed to destroy stale overlay window")
		}
	}
	s.handle = ""
	if err := s.init(ctx); err != nil {
		return err
	}
	s.recreated++
	return nil
}

// ensure reinitializes a destroyed surface before a host operation
func (s *Surface) ensure(ctx context.Context) error {
	if s.State() == types.SurfaceAlive {
		return nil
	}
	logging.From(ctx).Info("recreating overlay window", "overlay_id", s.id)
	return s.Reinitialize(ctx)
}

// release removes window listeners and the overlay channel, once per window
func (s *Surface) release() {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil

	if s.channelRegistered {
		s.host.RemoveChannel(s.handle, s.id)
		s.channelRegistered = false
	}
}

// URL builds the overlay page URL for the current settings and preview mode
func (s *Surface) URL() string {
	query := model.ConvertSettingsToQuery(s.settings)
	if s.previewMode {
		if query != "" {
			query += "&"
		}
		query += "preview=true"
	}
	return s.baseURL + "?" + query
}

// Load navigates the window to the current URL unless it is already loaded.
// Navigation failures are logged and the window keeps its previous page.
func (s *Surface) Load(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// load reports whether the window was presented after a navigation
func (s *Surface) load(ctx context.Context) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}

	url := s.URL()
	if url == s.loadedURL {
		return false, nil
	}

	if err := s.host.LoadURL(ctx, s.handle, url); err != nil {
		errutil.Warn(ctx, goerr.Wrap(model.ErrNavigation, "failed to load overlay page",
			goerr.V(model.OverlayIDKey, s.id), goerr.V(model.URLKey, url), goerr.V("cause", err.Error())),
			"overlay navigation failed")
		return false, nil
	}
	s.loadedURL = url

	if s.visible && s.displayed {
		return true, s.present(ctx)
	}
	return false, nil
}

// present shows the window without focus and re-applies its bounds
func (s *Surface) present(ctx context.Context) error {
	if err := s.host.Show(ctx, s.handle); err != nil {
		return goerr.Wrap(err, "failed to show overlay window", goerr.V(model.OverlayIDKey, s.id))
	}
	if err := s.host.SetBounds(ctx, s.handle, s.Bounds()); err != nil {
		return goerr.Wrap(err, "failed to apply overlay bounds", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

// UpdateSettings replaces the settings and reloads the page only when they changed
func (s *Surface) UpdateSettings(ctx context.Context, settings []model.OverlaySetting) error {
	if model.SettingsEqual(s.settings, settings) {
		return nil
	}
	s.settings = model.NormalizeSettings(settings)
	return s.Load(ctx)
}

// SetEditMode switches between draggable/resizable and click-through, and
// tells the page. It never reloads.
func (s *Surface) SetEditMode(ctx context.Context, enabled bool) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.editMode.Store(enabled)

	if err := s.host.SetResizable(ctx, s.handle, enabled); err != nil {
		return goerr.Wrap(err, "failed to set overlay resizable", goerr.V(model.OverlayIDKey, s.id))
	}
	if err := s.host.SetIgnoreMouseEvents(ctx, s.handle, !enabled); err != nil {
		return goerr.Wrap(err, "failed to set overlay mouse events", goerr.V(model.OverlayIDKey, s.id))
	}
	if err := s.host.PostMessage(ctx, s.handle, map[string]any{"editMode": enabled}); err != nil {
		return goerr.Wrap(err, "failed to notify overlay page", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

func (s *Surface) SetPreviewMode(ctx context.Context, enabled bool) error {
	if s.previewMode == enabled {
		return nil
	}
	s.previewMode = enabled
	return s.Load(ctx)
}

// SetVisible records the desired visibility and optionally applies it right away
func (s *Surface) SetVisible(ctx context.Context, visible, applyImmediately bool) error {
	s.visible = visible
	if !applyImmediately {
		return nil
	}
	if visible {
		return s.Show(ctx)
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}
	if err := s.host.Hide(ctx, s.handle); err != nil {
		return goerr.Wrap(err, "failed to hide overlay window", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

// Show loads and displays the window if the surface is marked visible.
// An invisible surface is left untouched.
func (s *Surface) Show(ctx context.Context) error {
	if !s.visible {
		return nil
	}
	s.displayed = true

	presented, err := s.load(ctx)
	if err != nil || presented || s.loadedURL == "" {
		return err
	}
	return s.present(ctx)
}

func (s *Surface) Hide(ctx context.Context) error {
	s.displayed = false
	if err := s.ensure(ctx); err != nil {
		return err
	}
	if err := s.host.Hide(ctx, s.handle); err != nil {
		return goerr.Wrap(err, "failed to hide overlay window", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

func (s *Surface) captureBounds(ctx context.Context) {
	b, err := s.host.GetBounds(ctx, s.handle)
	if err != nil {
		errutil.Warn(ctx, err, "failed to read overlay bounds")
		return
	}
	s.trackBounds(b)
}

// Close captures the window bounds and closes the window. The next host
// operation recreates it.
func (s *Surface) Close(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.captureBounds(ctx)
	s.displayed = false

	if err := s.host.SetClosable(ctx, s.handle, true); err != nil {
		return goerr.Wrap(err, "failed to make overlay closable", goerr.V(model.OverlayIDKey, s.id))
	}
	if err := s.host.Close(ctx, s.handle); err != nil {
		return goerr.Wrap(err, "failed to close overlay window", goerr.V(model.OverlayIDKey, s.id))
	}
	s.release()
	return nil
}

// Destroy captures the window bounds, destroys the window and releases the
// listeners and overlay channel. Destroying a dead surface only releases.
func (s *Surface) Destroy(ctx context.Context) error {
	s.displayed = false
	defer s.release()

	if s.State() == types.SurfaceDestroyed {
		return nil
	}
	s.captureBounds(ctx)
	if err := s.host.Destroy(ctx, s.handle); err != nil {
		return goerr.Wrap(err, "failed to destroy overlay window", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

// GetWindowBounds returns the live window bounds, or the last captured ones
// when the window is gone
func (s *Surface) GetWindowBounds(ctx context.Context) model.Bounds {
	current := s.Bounds()
	if s.State() == types.SurfaceDestroyed {
		return current
	}
	b, err := s.host.GetBounds(ctx, s.handle)
	if err != nil {
		errutil.Warn(ctx, err, "failed to read overlay bounds")
		return current
	}
	current.X, current.Y, current.Width, current.Height = b.X, b.Y, b.Width, b.Height
	return current
}

// UpdateWindowBounds merges partial bounds over the current ones and applies them
func (s *Surface) UpdateWindowBounds(ctx context.Context, partial model.PartialBounds) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	b := s.GetWindowBounds(ctx).Merge(partial)
	s.setBounds(b)

	if err := s.host.SetBounds(ctx, s.handle, b); err != nil {
		return goerr.Wrap(err, "failed to apply overlay bounds", goerr.V(model.OverlayIDKey, s.id))
	}
	return nil
}

// Entry serializes the surface into its persisted form using live bounds
func (s *Surface) Entry(ctx context.Context, folderName string) model.OverlayEntry {
	b := s.GetWindowBounds(ctx)
	return model.OverlayEntry{
		ID:         s.id,
		BaseURL:    s.baseURL,
		Title:      s.manifest.Title,
		Position:   b.Position(),
		Size:       b.Size(),
		Settings:   s.Settings(),
		Visible:    s.visible,
		FolderName: folderName,
	}
}

func (s *Surface) ID() string                       { return s.id }
func (s *Surface) BaseURL() string                  { return s.baseURL }
func (s *Surface) Manifest() *model.OverlayManifest { return s.manifest }
func (s *Surface) Visible() bool                    { return s.visible }
func (s *Surface) Displayed() bool                  { return s.displayed }
func (s *Surface) EditMode() bool                   { return s.editMode.Load() }
func (s *Surface) PreviewMode() bool                { return s.previewMode }
func (s *Surface) LoadedURL() string                { return s.loadedURL }
func (s *Surface) Handle() interfaces.WindowHandle  { return s.handle }

// Recreated returns how many times the window was reinitialized
func (s *Surface) Recreated() int { return s.recreated }

// Settings returns a copy of the current settings
func (s *Surface) Settings() []model.OverlaySetting {
	result := make([]model.OverlaySetting, len(s.settings))
	copy(result, s.settings)
	return result
}

func (s *Surface) Bounds() model.Bounds {
	s.boundsMu.Lock()
	defer s.boundsMu.Unlock()
	return s.bounds
}
