// ABOUTME: This file models external entity states and state_changed events
// ABOUTME: Includes the datetime parsing used by the entity sync pull path

package models

import (
	"fmt"
	"time"
)

// EntityState is the opaque state of a home platform entity as delivered by
// the states API or a state_changed event.
type EntityState struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
}

// StateChangedEvent is the platform's state_changed event payload.
type StateChangedEvent struct {
	EntityID string       `json:"entity_id"`
	OldState *EntityState `json:"old_state"`
	NewState *EntityState `json:"new_state"`
}

// stateTimeLayouts are tried in order when the entity only exposes a string
// value. The platform's datetime entities use the space-separated form.
var stateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDateTime extracts a timestamp from the entity state. Datetime entities
// expose discrete date/time attributes; date-only entities yield midnight of
// that date. A plain parseable string state is the fallback. Returns false
// when no timestamp can be derived.
func (s *EntityState) ParseDateTime(loc *time.Location) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	if s.attrBool("has_date") {
		year, okY := s.attrInt("year")
		month, okM := s.attrInt("month")
		day, okD := s.attrInt("day")
		if okY && okM && okD {
			if s.attrBool("has_time") {
				hour, _ := s.attrInt("hour")
				minute, _ := s.attrInt("minute")
				return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
			}
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
		}
	}

	for _, layout := range stateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s.State, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *EntityState) attrBool(key string) bool {
	v, ok := s.Attributes[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (s *EntityState) attrInt(key string) (int, bool) {
	switch v := s.Attributes[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// SetDateTimeRequest is the payload of the platform's set_datetime service
// call, formatted as "YYYY-MM-DD HH:MM:SS".
type SetDateTimeRequest struct {
	EntityID string `json:"entity_id"`
	DateTime string `json:"datetime"`
}

// NewSetDateTimeRequest formats t for the set_datetime service.
func NewSetDateTimeRequest(entityID string, t time.Time) SetDateTimeRequest {
	return SetDateTimeRequest{
		EntityID: entityID,
		DateTime: t.Format("2006-01-02 15:04:05"),
	}
}
