package types

// SettingType is the declared type of an overlay setting
type SettingType string

const (
	SettingTypeSlider SettingType = "slider"
	SettingTypeToggle SettingType = "toggle"
	SettingTypeSelect SettingType = "select"
	SettingTypeNumber SettingType = "number"
	SettingTypeString SettingType = "string"
	SettingTypeColor  SettingType = "color"
)

// AllSettingTypes returns all valid setting types
func AllSettingTypes() []SettingType {
	return []SettingType{
		SettingTypeSlider,
		SettingTypeToggle,
		SettingTypeSelect,
		SettingTypeNumber,
		SettingTypeString,
		SettingTypeColor,
	}
}

// IsValid checks if the setting type is valid
func (t SettingType) IsValid() bool {
	switch t {
	case SettingTypeSlider,
		SettingTypeToggle,
		SettingTypeSelect,
		SettingTypeNumber,
		SettingTypeString,
		SettingTypeColor:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether values of this type are numbers
func (t SettingType) IsNumeric() bool {
	return t == SettingTypeSlider || t == SettingTypeNumber
}

// String returns the string representation of the setting type
func (t SettingType) String() string {
	return string(t)
}

// GroupType is the presentation kind of a manifest settings group
type GroupType string

const (
	GroupTypeDefault     GroupType = "default"
	GroupTypeReorderable GroupType = "reorderable"
)

// Normalize treats an empty group type as GroupTypeDefault
func (t GroupType) Normalize() GroupType {
	if t == "" {
		return GroupTypeDefault
	}
	return t
}

// IsValid checks if the group type is valid
func (t GroupType) IsValid() bool {
	switch t.Normalize() {
	case GroupTypeDefault, GroupTypeReorderable:
		return true
	default:
		return false
	}
}
