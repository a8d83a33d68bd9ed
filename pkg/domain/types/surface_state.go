package types

// SurfaceState reports whether an overlay surface currently owns a live window
type SurfaceState string

const (
	SurfaceAlive     SurfaceState = "alive"
	SurfaceDestroyed SurfaceState = "destroyed"
)

func (s SurfaceState) String() string {
	return string(s)
}
