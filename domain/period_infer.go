// ABOUTME: This file classifies a concrete date range back into a symbolic period
// ABOUTME: Lossy by design; ranges off canonical unit boundaries become custom

package domain

import (
	"math"
	"time"

	"period-selector-sidecar/models"
)

// InferPeriod maps a [start, end] window onto the period unit it most likely
// represents. Once a selector is in custom mode it stays there: data refreshes
// must not snap the UI out of a user-chosen range.
//
// The classifier is a heuristic over the whole-day span, not an exact inverse
// of RangeFor. The month band covers 28 through 31 day months and the year
// band covers leap years; anything else is custom.
func InferPeriod(start, end time.Time, current models.PeriodUnit) models.PeriodUnit {
	if current == models.PeriodCustom {
		return models.PeriodCustom
	}

	// Calendar-day difference; rounding keeps DST transition months from
	// falling out of the 28..31 day band.
	dayDiff := int(math.Round(StartOfDay(end).Sub(StartOfDay(start)).Hours() / 24))
	switch {
	case dayDiff < 1:
		return models.PeriodDay
	case dayDiff == 6:
		return models.PeriodWeek
	case dayDiff > 26 && dayDiff < 31:
		return models.PeriodMonth
	case dayDiff == 364 || dayDiff == 365:
		return models.PeriodYear
	default:
		return models.PeriodCustom
	}
}
