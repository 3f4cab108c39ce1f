// ABOUTME: This file defines the reporting period domain types for the selector
// ABOUTME: PeriodUnit drives all range arithmetic, inference and label dispatch

package models

import (
	"fmt"
	"time"
)

// PeriodUnit identifies the symbolic reporting period selected on the dashboard.
type PeriodUnit string

const (
	PeriodDay    PeriodUnit = "day"
	PeriodWeek   PeriodUnit = "week"
	PeriodMonth  PeriodUnit = "month"
	PeriodYear   PeriodUnit = "year"
	PeriodCustom PeriodUnit = "custom"
)

// ParsePeriodUnit converts a wire value into a PeriodUnit.
func ParsePeriodUnit(s string) (PeriodUnit, error) {
	switch PeriodUnit(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return PeriodUnit(s), nil
	default:
		return "", fmt.Errorf("unknown period unit: %q", s)
	}
}

// IsValid reports whether the unit is one of the known periods.
func (p PeriodUnit) IsValid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return true
	}
	return false
}

func (p PeriodUnit) String() string {
	return string(p)
}

// DateRange is a concrete [start, end] reporting window. End is the last
// instant of its unit (23:59:59.999 local) except for custom ranges, where
// it is the end of a user-chosen day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid reports whether the range is ordered.
func (r DateRange) IsValid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Days returns the whole-day difference between end and start.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Contains reports whether t falls inside the range, inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
