// ABOUTME: This file defines the dashboard-facing selector configuration
// ABOUTME: Schema validation here is the one fatal error path of the service

package models

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks selector configuration that fails schema validation.
var ErrInvalidConfig = errors.New("invalid selector config")

// SyncDirection gates the entity sync protocol per direction.
type SyncDirection string

const (
	SyncBoth       SyncDirection = "both"
	SyncToEntity   SyncDirection = "to-entity"
	SyncFromEntity SyncDirection = "from-entity"
)

// AllowsPush reports whether local changes may be written to the entity.
func (d SyncDirection) AllowsPush() bool {
	return d == SyncBoth || d == SyncToEntity
}

// AllowsPull reports whether entity changes may be applied locally.
func (d SyncDirection) AllowsPull() bool {
	return d == SyncBoth || d == SyncFromEntity
}

// Button display modes for the today and compare buttons.
const (
	ButtonTypeIcon   = "icon"
	ButtonTypeText   = "text"
	ButtonTypeHidden = "hidden"
)

// SelectorConfig is the per-widget configuration supplied by the dashboard.
// Every field is optional; Normalize fills defaults and Validate rejects
// malformed shapes.
type SelectorConfig struct {
	SyncEntity           string        `json:"sync_entity,omitempty"`
	SyncDirection        SyncDirection `json:"sync_direction,omitempty"`
	PeriodButtons        []string      `json:"period_buttons,omitempty"`
	CustomPeriodLabel    string        `json:"custom_period_label,omitempty"`
	TodayButtonType      string        `json:"today_button_type,omitempty"`
	CompareButtonType    string        `json:"compare_button_type,omitempty"`
	LayoutMode           string        `json:"layout_mode,omitempty"`
	PrevNextButtons      *bool         `json:"prev_next_buttons,omitempty"`
	CardBackground       bool          `json:"card_background,omitempty"`
	CollectionKey        string        `json:"collection_key,omitempty"`
	WeekStartsOnOverride *int          `json:"week_starts_on,omitempty"`
}

// Normalize fills in defaults for unset fields.
func (c *SelectorConfig) Normalize() {
	if c.SyncDirection == "" {
		c.SyncDirection = SyncBoth
	}
	if c.LayoutMode == "" {
		c.LayoutMode = "standard"
	}
	if c.TodayButtonType == "" {
		c.TodayButtonType = ButtonTypeText
	}
	if c.PrevNextButtons == nil {
		enabled := true
		c.PrevNextButtons = &enabled
	}
}

// Validate checks the config shape. All failures wrap ErrInvalidConfig.
func (c *SelectorConfig) Validate() error {
	switch c.SyncDirection {
	case "", SyncBoth, SyncToEntity, SyncFromEntity:
	default:
		return fmt.Errorf("%w: sync_direction %q", ErrInvalidConfig, c.SyncDirection)
	}

	switch c.LayoutMode {
	case "", "standard", "compact":
	default:
		return fmt.Errorf("%w: layout_mode %q", ErrInvalidConfig, c.LayoutMode)
	}

	switch c.TodayButtonType {
	case "", ButtonTypeIcon, ButtonTypeText, ButtonTypeHidden:
	default:
		return fmt.Errorf("%w: today_button_type %q", ErrInvalidConfig, c.TodayButtonType)
	}

	switch c.CompareButtonType {
	case "", ButtonTypeIcon, ButtonTypeText:
	default:
		return fmt.Errorf("%w: compare_button_type %q", ErrInvalidConfig, c.CompareButtonType)
	}

	for _, p := range c.PeriodButtons {
		if _, err := ParsePeriodUnit(p); err != nil {
			return fmt.Errorf("%w: period_buttons entry %q", ErrInvalidConfig, p)
		}
	}

	if c.WeekStartsOnOverride != nil {
		if d := *c.WeekStartsOnOverride; d < 0 || d > 6 {
			return fmt.Errorf("%w: week_starts_on %d out of range", ErrInvalidConfig, d)
		}
	}

	return nil
}

// DefaultPeriodButtons is the button set rendered when none is configured.
var DefaultPeriodButtons = []string{
	string(PeriodDay),
	string(PeriodWeek),
	string(PeriodMonth),
	string(PeriodYear),
}

// EffectivePeriodButtons returns the configured buttons or the default set.
func (c *SelectorConfig) EffectivePeriodButtons() []string {
	if len(c.PeriodButtons) == 0 {
		return DefaultPeriodButtons
	}
	return c.PeriodButtons
}
