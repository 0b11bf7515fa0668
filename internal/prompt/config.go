// Package prompt implements tool option schemas and the prompt builder
// that turns a tool's base prompt plus user selections into the final
// instruction sent to the image model.  Everything here is pure: no
// database, no HTTP, so the whole package is unit-testable.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option types accepted in a tool's custom config.
const (
	TypeSelect   = "select"
	TypeColor    = "color"
	TypeText     = "text"
	TypeRange    = "range"
	TypeCheckbox = "checkbox"
	TypeTextarea = "textarea"
)

// Option describes one configurable knob of a tool.  Prompt is the text
// fragment merged into the base prompt when the user supplies a value;
// it carries a type-specific placeholder ({{ color }}, {{ choice }} or
// {{ value }}) that the builder substitutes.
type Option struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Default string   `json:"default,omitempty"`
}

// CustomConfig is the document stored in tools.custom_config.
type CustomConfig struct {
	Options []Option `json:"options"`
}

// ParseCustomConfig decodes a raw custom_config JSON document.  A nil or
// empty input yields an empty config, which is valid: the tool then has
// no options and its base prompt is used as-is.
func ParseCustomConfig(raw *string) (CustomConfig, error) {
	var cfg CustomConfig
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(*raw), &cfg); err != nil {
		return CustomConfig{}, fmt.Errorf("invalid custom config: %w", err)
	}
	return cfg, nil
}

// Validate checks structural rules enforced when an admin creates or
// updates a tool: every option needs a name and a known type, names must
// be unique, selects need at least one choice, and ranges need a
// consistent min/max pair.
func (c CustomConfig) Validate() error {
	seen := make(map[string]bool, len(c.Options))
	for i, opt := range c.Options {
		if strings.TrimSpace(opt.Name) == "" {
			return fmt.Errorf("option %d: name is required", i)
		}
		if seen[opt.Name] {
			return fmt.Errorf("option %q: duplicate name", opt.Name)
		}
		seen[opt.Name] = true
		switch opt.Type {
		case TypeSelect:
			if len(opt.Choices) == 0 {
				return fmt.Errorf("option %q: select requires at least one choice", opt.Name)
			}
		case TypeRange:
			if opt.Min != nil && opt.Max != nil && *opt.Min > *opt.Max {
				return fmt.Errorf("option %q: min is greater than max", opt.Name)
			}
		case TypeColor, TypeText, TypeCheckbox, TypeTextarea:
			// no extra structure required
		default:
			return fmt.Errorf("option %q: unknown type %q", opt.Name, opt.Type)
		}
	}
	return nil
}

// placeholder returns the token the option's prompt fragment uses for
// the user-supplied value.
func (o Option) placeholder() string {
	switch o.Type {
	case TypeColor:
		return "{{ color }}"
	case TypeSelect:
		return "{{ choice }}"
	default:
		return "{{ value }}"
	}
}
