package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/types"
)

// CatalogSettingsFilename is the reserved per-game file holding catalog state.
// It is never treated as a layout.
const CatalogSettingsFilename = "settings.json"

// LayoutFileExt is the extension of persisted layout files
const LayoutFileExt = ".json"

// Screen is the target resolution of a layout
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either dimension is unset
func (s Screen) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Position is the persisted top-left corner of an overlay
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is the persisted size of an overlay
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LayoutFile is the durable form of a layout
type LayoutFile struct {
	Title    string         `json:"title"`
	Screen   Screen         `json:"screen"`
	Overlays []OverlayEntry `json:"overlays"`
}

// OverlayEntry is the durable form of one overlay inside a layout
type OverlayEntry struct {
	ID         string           `json:"id"`
	BaseURL    string           `json:"baseUrl"`
	Title      string           `json:"title"`
	Position   Position         `json:"position"`
	Size       Size             `json:"size"`
	Settings   []OverlaySetting `json:"settings"`
	Visible    bool             `json:"visible"`
	FolderName string           `json:"folderName"`
}

// Overlay returns the entry with the given id
func (f *LayoutFile) Overlay(id string) (OverlayEntry, bool) {
	for _, o := range f.Overlays {
		if o.ID == id {
			return o, true
		}
	}
	return OverlayEntry{}, false
}

// Validate checks a layout read back from storage
func (f *LayoutFile) Validate() error {
	if f.Title == "" {
		return goerr.Wrap(ErrParse, "layout title is missing")
	}
	if f.Screen.IsZero() {
		return goerr.Wrap(ErrParse, "layout screen size is missing",
			goerr.V("width", f.Screen.Width), goerr.V("height", f.Screen.Height))
	}

	seen := make(map[string]bool, len(f.Overlays))
	for i, o := range f.Overlays {
		if o.ID == "" {
			return goerr.Wrap(ErrParse, "overlay id is missing", goerr.V("index", i))
		}
		if seen[o.ID] {
			return goerr.Wrap(ErrParse, "duplicate overlay id", goerr.V(OverlayIDKey, o.ID))
		}
		seen[o.ID] = true
		if o.FolderName == "" {
			return goerr.Wrap(ErrParse, "overlay folder name is missing", goerr.V(OverlayIDKey, o.ID))
		}
		for _, s := range o.Settings {
			if s.ID == "" {
				return goerr.Wrap(ErrParse, "overlay setting id is missing", goerr.V(OverlayIDKey, o.ID))
			}
		}
	}
	return nil
}

// Normalize canonicalizes setting values and replaces nil lists with empty ones
func (f *LayoutFile) Normalize() {
	if f.Overlays == nil {
		f.Overlays = []OverlayEntry{}
	}
	for i := range f.Overlays {
		f.Overlays[i].Settings = NormalizeSettings(f.Overlays[i].Settings)
		if f.Overlays[i].Settings == nil {
			f.Overlays[i].Settings = []OverlaySetting{}
		}
	}
}

// DecodeLayoutFile parses and validates persisted layout JSON
func DecodeLayoutFile(data []byte) (*LayoutFile, error) {
	var f LayoutFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(ErrParse, "malformed layout JSON", goerr.V("cause", err.Error()))
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// NamedLayoutFile is a layout file annotated with its persistence key
type NamedLayoutFile struct {
	Filename string `json:"filename"`
	LayoutFile
}

// CatalogSettings is the durable per-game catalog state
type CatalogSettings struct {
	ActiveLayoutFilename *string  `json:"activeLayoutFilename"`
	LayoutOrder          []string `json:"layoutOrder"`
}

// DecodeCatalogSettings parses persisted catalog settings JSON
func DecodeCatalogSettings(data []byte) (*CatalogSettings, error) {
	var s CatalogSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, goerr.Wrap(ErrParse, "malformed catalog settings JSON", goerr.V("cause", err.Error()))
	}
	if s.LayoutOrder == nil {
		s.LayoutOrder = []string{}
	}
	return &s, nil
}

// LayoutConfig is the in-memory summary of a live layout handed to the UI
type LayoutConfig struct {
	Filename string          `json:"filename"`
	Game     types.GameName  `json:"game"`
	Title    string          `json:"title"`
	Screen   Screen          `json:"screen"`
	Overlays []OverlayConfig `json:"overlays"`
}

// OverlayConfig summarizes one live overlay
type OverlayConfig struct {
	ID         string           `json:"id"`
	FolderName string           `json:"folderName"`
	Visible    bool             `json:"visible"`
	Manifest   *OverlayManifest `json:"manifest"`
}
