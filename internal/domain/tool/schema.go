package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// Type is the JSON type a property accepts.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
)

// Property constrains a single argument. Only type, enum, numeric bounds
// and a default are supported.
type Property struct {
	Type        Type     `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Schema is an object schema that rejects unknown properties.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// Bound returns a pointer to v for use as Property.Minimum or Property.Maximum.
func Bound(v float64) *float64 {
	return &v
}

// MarshalJSON renders the schema in JSON Schema form.
func (s Schema) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]Property{}
	}
	return json.Marshal(struct {
		Type                 string              `json:"type"`
		Properties           map[string]Property `json:"properties"`
		Required             []string            `json:"required,omitempty"`
		AdditionalProperties bool                `json:"additionalProperties"`
	}{
		Type:                 string(TypeObject),
		Properties:           props,
		Required:             s.Required,
		AdditionalProperties: false,
	})
}

// ArgumentError reports tool arguments that fail validation.
type ArgumentError struct {
	// Field is the offending argument, empty when the problem spans several.
	Field   string
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// InvalidArgument returns an ArgumentError for field.
func InvalidArgument(field, format string, a ...any) *ArgumentError {
	return &ArgumentError{Field: field, Message: fmt.Sprintf(format, a...)}
}

// Validate checks raw against the schema and returns the arguments with
// defaults filled in. A null value is treated as if the argument were absent.
func (s Schema) Validate(raw map[string]any) (Args, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make(Args, len(s.Properties))
	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok {
			return nil, InvalidArgument(name, "is not a recognised argument")
		}
		if raw[name] == nil {
			continue
		}
		v, err := prop.coerce(name, raw[name])
		if err != nil {
			return nil, err
		}
		args[name] = v
	}

	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return nil, InvalidArgument(name, "is required")
		}
	}
	for name, prop := range s.Properties {
		if _, ok := args[name]; !ok && prop.Default != nil {
			args[name] = prop.Default
		}
	}
	return args, nil
}

func (p Property) coerce(name string, v any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, InvalidArgument(name, "must be a string")
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
			return nil, InvalidArgument(name, "must be one of: %s", strings.Join(p.Enum, ", "))
		}
		return s, nil

	case TypeInteger, TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, InvalidArgument(name, "must be a %s", p.Type)
		}
		if p.Type == TypeInteger && f != math.Trunc(f) {
			return nil, InvalidArgument(name, "must be an integer")
		}
		if p.Minimum != nil && f < *p.Minimum {
			return nil, InvalidArgument(name, "must be >= %s", formatBound(*p.Minimum))
		}
		if p.Maximum != nil && f > *p.Maximum {
			return nil, InvalidArgument(name, "must be <= %s", formatBound(*p.Maximum))
		}
		if p.Type == TypeInteger {
			return int(f), nil
		}
		return f, nil

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, InvalidArgument(name, "must be a boolean")
		}
		return b, nil

	case TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, InvalidArgument(name, "must be an object")
		}
		return m, nil
	}
	return nil, InvalidArgument(name, "has unsupported schema type %q", p.Type)
}

// check verifies the schema is internally consistent.
func (s Schema) check() error {
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return fmt.Errorf("required field %q has no property", name)
		}
	}
	for name, prop := range s.Properties {
		switch prop.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject:
		default:
			return fmt.Errorf("property %q: unsupported type %q", name, prop.Type)
		}
		if len(prop.Enum) > 0 && prop.Type != TypeString {
			return fmt.Errorf("property %q: enum is only supported on strings", name)
		}
		if prop.Minimum != nil && prop.Maximum != nil && *prop.Minimum > *prop.Maximum {
			return fmt.Errorf("property %q: minimum exceeds maximum", name)
		}
		if prop.Default != nil {
			if _, err := prop.coerce(name, prop.Default); err != nil {
				return fmt.Errorf("property %q: default: %w", name, err)
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatBound(f float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%g", f), ".0")
}
