package host

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/simhud/simhud/pkg/utils/safe"
)

// Headless is an in-process WindowHost. It keeps the full state of every
// live window (page, geometry, visibility, mode flags, pushed messages)
// without drawing anything, which makes it the host for servers, dry runs
// and tests. Closed and destroyed windows are forgotten.
type Headless struct {
	mu      sync.Mutex
	windows map[interfaces.WindowHandle]*window
	nextID  int
	creates int

	createHook func(opts interfaces.WindowOptions) error
	navigate   func(ctx context.Context, url string) error
}

type window struct {
	handle      interfaces.WindowHandle
	title       string
	url         string
	loads       int
	shows       int
	visible     bool
	closable    bool
	resizable   bool
	ignoreMouse bool
	bounds      model.Bounds
	messages    []any
	listeners   map[interfaces.WindowEvent]map[int]func(model.Bounds)
	nextSub     int
	channels    map[string]interfaces.ChannelHandler
}

var _ interfaces.WindowHost = &Headless{}

type Option func(*Headless)

// WithCreateHook runs before every window allocation; a returned error fails Create
func WithCreateHook(hook func(opts interfaces.WindowOptions) error) Option {
	return func(h *Headless) {
		h.createHook = hook
	}
}

// WithNavigator replaces page loading. A returned error fails LoadURL and the
// window keeps its previous page.
func WithNavigator(navigate func(ctx context.Context, url string) error) Option {
	return func(h *Headless) {
		h.navigate = navigate
	}
}

// WithPageCheck makes LoadURL fetch the page and fail on transport errors or
// status codes >= 400, so broken overlay packages surface as navigation errors
func WithPageCheck(client *http.Client) Option {
	if client == nil {
		client = http.DefaultClient
	}
	return WithNavigator(func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return goerr.Wrap(err, "failed to build page request", goerr.V(model.URLKey, url))
		}
		resp, err := client.Do(req)
		if err != nil {
			return goerr.Wrap(err, "failed to fetch page", goerr.V(model.URLKey, url))
		}
		defer safe.Close(ctx, resp.Body)

		if resp.StatusCode >= http.StatusBadRequest {
			return goerr.New("page responded with error status",
				goerr.V(model.URLKey, url), goerr.V("status", resp.StatusCode))
		}
		return nil
	})
}

func NewHeadless(opts ...Option) *Headless {
	h := &Headless{
		windows: make(map[interfaces.WindowHandle]*window),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Headless) lookup(handle interfaces.WindowHandle) (*window, error) {
	w, ok := h.windows[handle]
	if !ok {
		return nil, goerr.New("window is destroyed", goerr.V("handle", handle))
	}
	return w, nil
}

func (h *Headless) Create(ctx context.Context, opts interfaces.WindowOptions) (interfaces.WindowHandle, error) {
	if h.createHook != nil {
		if err := h.createHook(opts); err != nil {
			return "", goerr.Wrap(err, "failed to allocate window", goerr.V("title", opts.Title))
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.creates++
	handle := interfaces.WindowHandle(fmt.Sprintf("window-%d", h.nextID))
	h.windows[handle] = &window{
		handle:      handle,
		title:       opts.Title,
		visible:     opts.Show,
		resizable:   opts.Resizable,
		ignoreMouse: opts.IgnoreMouse,
		bounds:      opts.Bounds,
		listeners:   make(map[interfaces.WindowEvent]map[int]func(model.Bounds)),
		channels:    make(map[string]interfaces.ChannelHandler),
	}

	logging.From(ctx).Debug("window created", "handle", handle, "title", opts.Title)
	return handle, nil
}

func (h *Headless) LoadURL(ctx context.Context, handle interfaces.WindowHandle, url string) error {
	h.mu.Lock()
	if _, err := h.lookup(handle); err != nil {
		h.mu.Unlock()
		return err
	}
	navigate := h.navigate
	h.mu.Unlock()

	// navigation runs unlocked: it may block on the network
	if navigate != nil {
		if err := navigate(ctx, url); err != nil {
			return goerr.Wrap(err, "failed to load page", goerr.V(model.URLKey, url))
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.url = url
	w.loads++
	return nil
}

func (h *Headless) setVisible(handle interfaces.WindowHandle, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.visible = visible
	if visible {
		w.shows++
	}
	return nil
}

func (h *Headless) Show(ctx context.Context, handle interfaces.WindowHandle) error {
	return h.setVisible(handle, true)
}

func (h *Headless) Hide(ctx context.Context, handle interfaces.WindowHandle) error {
	return h.setVisible(handle, false)
}

// Close closes a window. Windows that are not closable refuse.
func (h *Headless) Close(ctx context.Context, handle interfaces.WindowHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	if !w.closable {
		return goerr.New("window is not closable", goerr.V("handle", handle))
	}
	delete(h.windows, handle)
	logging.From(ctx).Debug("window closed", "handle", handle)
	return nil
}

func (h *Headless) Destroy(ctx context.Context, handle interfaces.WindowHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.lookup(handle); err != nil {
		return err
	}
	delete(h.windows, handle)
	logging.From(ctx).Debug("window destroyed", "handle", handle)
	return nil
}

func (h *Headless) IsDestroyed(handle interfaces.WindowHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.lookup(handle)
	return err != nil
}

func (h *Headless) GetBounds(ctx context.Context, handle interfaces.WindowHandle) (model.Bounds, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return model.Bounds{}, err
	}
	return w.bounds, nil
}

// SetBounds moves and resizes the window, clamping the size to its envelope
func (h *Headless) SetBounds(ctx context.Context, handle interfaces.WindowHandle, b model.Bounds) error {
	h.mu.Lock()
	w, err := h.lookup(handle)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	b.Width = clamp(b.Width, b.MinWidth, b.MaxWidth)
	b.Height = clamp(b.Height, b.MinHeight, b.MaxHeight)
	w.bounds = b
	h.mu.Unlock()
	return nil
}

func clamp(v, lo, hi int) int {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func (h *Headless) SetResizable(ctx context.Context, handle interfaces.WindowHandle, resizable bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.resizable = resizable
	return nil
}

func (h *Headless) SetIgnoreMouseEvents(ctx context.Context, handle interfaces.WindowHandle, ignore bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.ignoreMouse = ignore
	return nil
}

func (h *Headless) SetClosable(ctx context.Context, handle interfaces.WindowHandle, closable bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.closable = closable
	return nil
}

func (h *Headless) On(handle interfaces.WindowHandle, event interfaces.WindowEvent, cb func(model.Bounds)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return func() {}
	}
	subs, ok := w.listeners[event]
	if !ok {
		subs = make(map[int]func(model.Bounds))
		w.listeners[event] = subs
	}
	w.nextSub++
	id := w.nextSub
	subs[id] = cb

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(subs, id)
	}
}

func (h *Headless) RegisterChannel(handle interfaces.WindowHandle, id string, handler interfaces.ChannelHandler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	if _, exists := w.channels[id]; exists {
		return goerr.New("channel already registered",
			goerr.V("handle", handle), goerr.V(model.OverlayIDKey, id))
	}
	w.channels[id] = handler
	return nil
}

// RemoveChannel unbinds id from the window. Channels of forgotten windows are
// already gone.
func (h *Headless) RemoveChannel(handle interfaces.WindowHandle, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w, ok := h.windows[handle]; ok {
		delete(w.channels, id)
	}
}

func (h *Headless) PostMessage(ctx context.Context, handle interfaces.WindowHandle, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.lookup(handle)
	if err != nil {
		return err
	}
	w.messages = append(w.messages, payload)
	return nil
}

// Request invokes the channel handler registered under id on the window, the
// way a hosted page queries its overlay
func (h *Headless) Request(ctx context.Context, handle interfaces.WindowHandle, id string, request any) (any, error) {
	h.mu.Lock()
	var handler interfaces.ChannelHandler
	if w, ok := h.windows[handle]; ok {
		handler = w.channels[id]
	}
	h.mu.Unlock()

	if handler == nil {
		return nil, goerr.New("channel not registered",
			goerr.V("handle", handle), goerr.V(model.OverlayIDKey, id))
	}
	return handler(ctx, request)
}

// MoveWindow changes the window geometry as if the user dragged or resized it
// and notifies move/resize subscribers
func (h *Headless) MoveWindow(handle interfaces.WindowHandle, b model.Bounds) error {
	h.mu.Lock()
	w, err := h.lookup(handle)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	prev := w.bounds
	w.bounds = b

	var callbacks []func(model.Bounds)
	if prev.X != b.X || prev.Y != b.Y {
		for _, cb := range w.listeners[interfaces.WindowEventMove] {
			callbacks = append(callbacks, cb)
		}
	}
	if prev.Width != b.Width || prev.Height != b.Height {
		for _, cb := range w.listeners[interfaces.WindowEventResize] {
			callbacks = append(callbacks, cb)
		}
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(b)
	}
	return nil
}

// WindowSnapshot is the observable state of one window
type WindowSnapshot struct {
	Handle      interfaces.WindowHandle
	Title       string
	URL         string
	Loads       int
	Shows       int
	Visible     bool
	Resizable   bool
	IgnoreMouse bool
	Closable    bool
	Bounds      model.Bounds
	Messages    []any
}

func (w *window) snapshot() WindowSnapshot {
	messages := make([]any, len(w.messages))
	copy(messages, w.messages)
	return WindowSnapshot{
		Handle:      w.handle,
		Title:       w.title,
		URL:         w.url,
		Loads:       w.loads,
		Shows:       w.shows,
		Visible:     w.visible,
		Resizable:   w.resizable,
		IgnoreMouse: w.ignoreMouse,
		Closable:    w.closable,
		Bounds:      w.bounds,
		Messages:    messages,
	}
}

// Window returns the state of a live window
func (h *Headless) Window(handle interfaces.WindowHandle) (WindowSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, ok := h.windows[handle]
	if !ok {
		return WindowSnapshot{}, false
	}
	return w.snapshot(), true
}

// LiveWindows returns every live window in creation order
func (h *Headless) LiveWindows() []WindowSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]WindowSnapshot, 0, len(h.windows))
	for _, w := range h.windows {
		result = append(result, w.snapshot())
	}
	slices.SortFunc(result, func(a, b WindowSnapshot) int {
		return handleSeq(a.Handle) - handleSeq(b.Handle)
	})
	return result
}

func handleSeq(handle interfaces.WindowHandle) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(string(handle), "window-"))
	return n
}

// Creates returns how many windows were allocated so far
func (h *Headless) Creates() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.creates
}

// HasChannel reports whether any live window has a channel registered under id
func (h *Headless) HasChannel(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if _, ok := w.channels[id]; ok {
			return true
		}
	}
	return false
}

// ChannelCount returns how many channels are registered under id across all
// live windows
func (h *Headless) ChannelCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.windows {
		if _, ok := w.channels[id]; ok {
			n++
		}
	}
	return n
}

// WindowCount returns how many windows the host currently tracks
func (h *Headless) WindowCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.windows)
}
