package model

import "github.com/google/uuid"

// NewOverlayID generates an identifier for an overlay added to a layout.
// Overlay ids are assigned here, never by the surface itself.
func NewOverlayID() string {
	return uuid.New().String()
}
