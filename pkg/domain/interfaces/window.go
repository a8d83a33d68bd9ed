package interfaces

import (
	"context"

	"github.com/simhud/simhud/pkg/domain/model"
)

// WindowHandle identifies a window allocated by a WindowHost
type WindowHandle string

// WindowOptions describes how a new overlay window is created
type WindowOptions struct {
	Title       string
	Bounds      model.Bounds
	Show        bool
	Frameless   bool
	Transparent bool
	AlwaysOnTop bool
	Resizable   bool
	Focusable   bool
	// IgnoreMouse makes the window click-through
	IgnoreMouse bool
}

// WindowEvent names a window geometry event
type WindowEvent string

const (
	WindowEventResize WindowEvent = "resize"
	WindowEventMove   WindowEvent = "move"
)

// ChannelHandler answers a request sent by a hosted page over its overlay channel
type ChannelHandler func(ctx context.Context, request any) (any, error)

// WindowHost allocates and drives renderable windows that host overlay pages
type WindowHost interface {
	// Create allocates a new window. The window is not loaded with any page.
	Create(ctx context.Context, opts WindowOptions) (WindowHandle, error)

	// LoadURL navigates the window and blocks until the page finished or failed loading
	LoadURL(ctx context.Context, h WindowHandle, url string) error

	// Show displays the window without taking focus
	Show(ctx context.Context, h WindowHandle) error
	Hide(ctx context.Context, h WindowHandle) error
	Close(ctx context.Context, h WindowHandle) error
	Destroy(ctx context.Context, h WindowHandle) error

	// IsDestroyed reports true for unknown, closed or destroyed windows
	IsDestroyed(h WindowHandle) bool

	GetBounds(ctx context.Context, h WindowHandle) (model.Bounds, error)
	SetBounds(ctx context.Context, h WindowHandle, b model.Bounds) error

	SetResizable(ctx context.Context, h WindowHandle, resizable bool) error
	SetIgnoreMouseEvents(ctx context.Context, h WindowHandle, ignore bool) error
	SetClosable(ctx context.Context, h WindowHandle, closable bool) error

	// On subscribes to a window event and returns a function removing the subscription
	On(h WindowHandle, event WindowEvent, cb func(model.Bounds)) (unsubscribe func())

	// RegisterChannel binds a request handler to id for the page hosted in h.
	// Channels are scoped to their window; registering an id twice on the
	// same window fails.
	RegisterChannel(h WindowHandle, id string, handler ChannelHandler) error
	RemoveChannel(h WindowHandle, id string)

	// PostMessage pushes a message to the page hosted in the window
	PostMessage(ctx context.Context, h WindowHandle, payload any) error
}
