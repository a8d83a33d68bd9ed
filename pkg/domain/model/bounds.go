package model

// Bounds is the position, size and size envelope of an overlay window
type Bounds struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Width     int `json:"width"`
	Height    int `json:"height"`
	MinWidth  int `json:"minWidth,omitempty"`
	MinHeight int `json:"minHeight,omitempty"`
	MaxWidth  int `json:"maxWidth,omitempty"`
	MaxHeight int `json:"maxHeight,omitempty"`
}

// PartialBounds carries only the bounds fields a caller wants to change
type PartialBounds struct {
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// Merge returns b with every non-nil field of p applied
func (b Bounds) Merge(p PartialBounds) Bounds {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	return b
}

// Position returns the top-left corner as a persisted position
func (b Bounds) Position() Position {
	return Position{X: b.X, Y: b.Y}
}

// Size returns the width and height as a persisted size
func (b Bounds) Size() Size {
	return Size{Width: b.Width, Height: b.Height}
}

// BoundsFor builds window bounds for a persisted overlay entry, taking the
// size envelope from the manifest. A zero persisted size falls back to the
// manifest default.
func BoundsFor(pos Position, size Size, dim Dimensions) Bounds {
	b := Bounds{
		X:         pos.X,
		Y:         pos.Y,
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  dim.MinWidth,
		MinHeight: dim.MinHeight,
		MaxWidth:  dim.MaxWidth,
		MaxHeight: dim.MaxHeight,
	}
	if b.Width <= 0 {
		b.Width = dim.DefaultWidth
	}
	if b.Height <= 0 {
		b.Height = dim.DefaultHeight
	}
	return b
}
