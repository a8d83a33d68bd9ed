package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/types"
)

// OverlayManifest is the static descriptor of an overlay package
type OverlayManifest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Author         string              `json:"author,omitempty"`
	Version        string              `json:"version,omitempty"`
	Tags           []string            `json:"tags,omitempty"`
	Dimensions     Dimensions          `json:"dimentions"`
	RequiredFields []string            `json:"requiredFields,omitempty"`
	OptionalFields []string            `json:"optionalFields,omitempty"`
	FlatSettings   []SettingDescriptor `json:"settings,omitempty"`
	Pages          []SettingsPage      `json:"pages,omitempty"`
}

// Dimensions is the size envelope declared by a manifest
type Dimensions struct {
	DefaultWidth  int `json:"defaultWidth"`
	DefaultHeight int `json:"defaultHeight"`
	MinWidth      int `json:"minWidth,omitempty"`
	MinHeight     int `json:"minHeight,omitempty"`
	MaxWidth      int `json:"maxWidth,omitempty"`
	MaxHeight     int `json:"maxHeight,omitempty"`
}

// SettingsPage groups settings under a tab in the configurator
type SettingsPage struct {
	Title  string          `json:"title"`
	Icon   string          `json:"icon,omitempty"`
	Groups []SettingsGroup `json:"groups"`
}

// SettingsGroup holds settings for a default group or elements for a
// reorderable group
type SettingsGroup struct {
	Type     types.GroupType     `json:"type"`
	Title    string              `json:"title,omitempty"`
	Settings []SettingDescriptor `json:"settings,omitempty"`
	Elements []SettingDescriptor `json:"elements,omitempty"`
}

// Descriptors returns the group's settings or elements depending on its type
func (g SettingsGroup) Descriptors() []SettingDescriptor {
	if g.Type.Normalize() == types.GroupTypeReorderable {
		return g.Elements
	}
	return g.Settings
}

// SettingDescriptor declares one configurable setting
type SettingDescriptor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Type        types.SettingType `json:"type"`
	Default     any               `json:"defaultValue"`

	// slider and number
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`

	// select
	Options  []SettingOption `json:"options,omitempty"`
	Multiple bool            `json:"multiple,omitempty"`

	// string
	MaxLength int `json:"maxLength,omitempty"`
}

// SettingOption is one choice of a select setting
type SettingOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HasOption reports whether id is one of the declared option ids
func (d SettingDescriptor) HasOption(id string) bool {
	for _, opt := range d.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Settings returns every declared setting: top-level settings first, then
// page groups in declaration order
func (m *OverlayManifest) Settings() []SettingDescriptor {
	var all []SettingDescriptor
	all = append(all, m.FlatSettings...)
	for _, page := range m.Pages {
		for _, group := range page.Groups {
			all = append(all, group.Descriptors()...)
		}
	}
	return all
}

// Descriptor looks up a declared setting by id
func (m *OverlayManifest) Descriptor(id string) (SettingDescriptor, bool) {
	for _, d := range m.Settings() {
		if d.ID == id {
			return d, true
		}
	}
	return SettingDescriptor{}, false
}

// DefaultSettings returns one setting per declared descriptor holding its default
func (m *OverlayManifest) DefaultSettings() []OverlaySetting {
	descs := m.Settings()
	settings := make([]OverlaySetting, 0, len(descs))
	for _, d := range descs {
		settings = append(settings, OverlaySetting{ID: d.ID, Value: NormalizeValue(d.Default)})
	}
	return settings
}

// Validate checks the manifest's identity, size envelope and settings
func (m *OverlayManifest) Validate() error {
	if m.Title == "" {
		return goerr.Wrap(ErrManifestInvalid, "manifest title is required")
	}

	d := m.Dimensions
	if d.DefaultWidth < 0 || d.DefaultHeight < 0 {
		return goerr.Wrap(ErrManifestInvalid, "default size must not be negative",
			goerr.V("default_width", d.DefaultWidth), goerr.V("default_height", d.DefaultHeight))
	}
	if d.MinWidth > 0 && d.MaxWidth > 0 && d.MinWidth > d.MaxWidth {
		return goerr.Wrap(ErrManifestInvalid, "minimum width exceeds maximum width",
			goerr.V("min_width", d.MinWidth), goerr.V("max_width", d.MaxWidth))
	}
	if d.MinHeight > 0 && d.MaxHeight > 0 && d.MinHeight > d.MaxHeight {
		return goerr.Wrap(ErrManifestInvalid, "minimum height exceeds maximum height",
			goerr.V("min_height", d.MinHeight), goerr.V("max_height", d.MaxHeight))
	}

	for _, page := range m.Pages {
		for _, group := range page.Groups {
			if !group.Type.IsValid() {
				return goerr.Wrap(ErrManifestInvalid, "invalid group type",
					goerr.V("page", page.Title), goerr.V("type", group.Type))
			}
		}
	}

	seen := make(map[string]bool)
	for _, desc := range m.Settings() {
		if desc.ID == "" {
			return goerr.Wrap(ErrManifestInvalid, "setting id is required")
		}
		if seen[desc.ID] {
			return goerr.Wrap(ErrManifestInvalid, "duplicate setting id", goerr.V(SettingIDKey, desc.ID))
		}
		seen[desc.ID] = true

		if !desc.Type.IsValid() {
			return goerr.Wrap(ErrManifestInvalid, "invalid setting type",
				goerr.V(SettingIDKey, desc.ID), goerr.V("type", desc.Type))
		}
		if desc.Type == types.SettingTypeSelect && len(desc.Options) == 0 {
			return goerr.Wrap(ErrManifestInvalid, "select setting requires options",
				goerr.V(SettingIDKey, desc.ID))
		}
		if desc.Min != nil && desc.Max != nil && *desc.Min > *desc.Max {
			return goerr.Wrap(ErrManifestInvalid, "setting minimum exceeds maximum",
				goerr.V(SettingIDKey, desc.ID))
		}
		if err := ValidateSettingValue(desc, desc.Default); err != nil {
			return goerr.Wrap(ErrManifestInvalid, "invalid default value",
				goerr.V(SettingIDKey, desc.ID), goerr.V("cause", err.Error()))
		}
	}

	return nil
}

// ValidateSettings checks each setting against its declared descriptor.
// Settings the manifest no longer declares are ignored.
func (m *OverlayManifest) ValidateSettings(settings []OverlaySetting) error {
	for _, s := range settings {
		desc, ok := m.Descriptor(s.ID)
		if !ok {
			continue
		}
		if err := ValidateSettingValue(desc, s.Value); err != nil {
			return err
		}
	}
	return nil
}
