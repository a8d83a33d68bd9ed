package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/types"
)

// OverlaySetting is one runtime setting value of an overlay
type OverlaySetting struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// NormalizeValue converts a setting value to its canonical dynamic type:
// numbers become float64 and string lists become []string. JSON-decoded and
// Go-constructed values therefore compare equal.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []string:
		copied := make([]string, len(val))
		copy(copied, val)
		return copied
	case []any:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				normalized := make([]any, len(val))
				for i, x := range val {
					normalized[i] = NormalizeValue(x)
				}
				return normalized
			}
			strs = append(strs, s)
		}
		return strs
	default:
		return val
	}
}

// NormalizeSettings returns a copy of settings with every value normalized
func NormalizeSettings(settings []OverlaySetting) []OverlaySetting {
	if settings == nil {
		return nil
	}
	out := make([]OverlaySetting, len(settings))
	for i, s := range settings {
		out[i] = OverlaySetting{ID: s.ID, Value: NormalizeValue(s.Value)}
	}
	return out
}

// SettingsEqual reports whether two settings lists are deep-equal, in order,
// after normalization
func SettingsEqual(a, b []OverlaySetting) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
		if !reflect.DeepEqual(NormalizeValue(a[i].Value), NormalizeValue(b[i].Value)) {
			return false
		}
	}
	return true
}

// StringifyValue renders a single setting value the way the overlay page expects it
func StringifyValue(v any) string {
	switch val := NormalizeValue(v).(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = StringifyValue(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// ConvertSettingsToQuery serializes settings as id=value pairs joined by '&'.
// Ids and values are percent-encoded; list values are encoded per element and
// joined by an unencoded comma.
func ConvertSettingsToQuery(settings []OverlaySetting) string {
	pairs := make([]string, 0, len(settings))
	for _, s := range settings {
		var value string
		switch val := NormalizeValue(s.Value).(type) {
		case []string:
			encoded := make([]string, len(val))
			for i, item := range val {
				encoded[i] = EncodeURIComponent(item)
			}
			value = strings.Join(encoded, ",")
		case []any:
			encoded := make([]string, len(val))
			for i, item := range val {
				encoded[i] = EncodeURIComponent(StringifyValue(item))
			}
			value = strings.Join(encoded, ",")
		default:
			value = EncodeURIComponent(StringifyValue(val))
		}
		pairs = append(pairs, EncodeURIComponent(s.ID)+"="+value)
	}
	return strings.Join(pairs, "&")
}

// EncodeURIComponent percent-encodes every byte except the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ), matching what overlay pages decode.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// ValidateSettingValue checks that value matches the declared type and
// constraints of desc
func ValidateSettingValue(desc SettingDescriptor, value any) error {
	v := NormalizeValue(value)
	typeErr := func(expected string) error {
		return goerr.Wrap(ErrInvalidSetting, "setting value has wrong type",
			goerr.V(SettingIDKey, desc.ID),
			goerr.V("expected", expected),
			goerr.V("actual", fmt.Sprintf("%T", value)))
	}

	switch desc.Type {
	case types.SettingTypeSlider, types.SettingTypeNumber:
		num, ok := v.(float64)
		if !ok {
			return typeErr("number")
		}
		if desc.Min != nil && num < *desc.Min {
			return goerr.Wrap(ErrInvalidSetting, "setting value below minimum",
				goerr.V(SettingIDKey, desc.ID), goerr.V("value", num), goerr.V("min", *desc.Min))
		}
		if desc.Max != nil && num > *desc.Max {
			return goerr.Wrap(ErrInvalidSetting, "setting value above maximum",
				goerr.V(SettingIDKey, desc.ID), goerr.V("value", num), goerr.V("max", *desc.Max))
		}
	case types.SettingTypeToggle:
		if _, ok := v.(bool); !ok {
			return typeErr("boolean")
		}
	case types.SettingTypeSelect:
		if desc.Multiple {
			ids, ok := v.([]string)
			if !ok {
				return typeErr("string list")
			}
			for _, id := range ids {
				if !desc.HasOption(id) {
					return goerr.Wrap(ErrInvalidSetting, "option not declared",
						goerr.V(SettingIDKey, desc.ID), goerr.V("option_id", id))
				}
			}
			return nil
		}
		id, ok := v.(string)
		if !ok {
			return typeErr("string")
		}
		if !desc.HasOption(id) {
			return goerr.Wrap(ErrInvalidSetting, "option not declared",
				goerr.V(SettingIDKey, desc.ID), goerr.V("option_id", id))
		}
	case types.SettingTypeString, types.SettingTypeColor:
		s, ok := v.(string)
		if !ok {
			return typeErr("string")
		}
		if desc.MaxLength > 0 && utf8.RuneCountInString(s) > desc.MaxLength {
			return goerr.Wrap(ErrInvalidSetting, "setting value too long",
				goerr.V(SettingIDKey, desc.ID), goerr.V("max_length", desc.MaxLength))
		}
	default:
		return goerr.Wrap(ErrInvalidSetting, "unsupported setting type",
			goerr.V(SettingIDKey, desc.ID), goerr.V("type", desc.Type))
	}
	return nil
}
