// ABOUTME: This file implements calendar-aware period range and stepping arithmetic
// ABOUTME: All functions are pure; month/year steps clamp instead of overflowing

package domain

import (
	"strings"
	"time"

	"period-selector-sidecar/models"
)

// firstWeekdayByLocale maps a normalized BCP-47 tag (or bare language) to the
// first day of the week. Locales absent from the table start on Monday.
var firstWeekdayByLocale = map[string]time.Weekday{
	// Sunday-first locales
	"en-us": time.Sunday,
	"en-ca": time.Sunday,
	"es-mx": time.Sunday,
	"pt-br": time.Sunday,
	"ja":    time.Sunday,
	"ko":    time.Sunday,
	"zh-cn": time.Sunday,
	"zh-tw": time.Sunday,
	"he":    time.Sunday,
	"hi":    time.Sunday,
	"th":    time.Sunday,

	// Saturday-first locales
	"ar": time.Saturday,
	"fa": time.Saturday,
	"dv": time.Saturday,
}

// FirstWeekday derives the first day of the week for a locale tag such as
// "en-US" or "de". The full tag is checked before the bare language.
func FirstWeekday(locale string) time.Weekday {
	tag := strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
	if day, ok := firstWeekdayByLocale[tag]; ok {
		return day
	}
	if lang, _, found := strings.Cut(tag, "-"); found {
		if day, ok := firstWeekdayByLocale[lang]; ok {
			return day
		}
	}
	return time.Monday
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last represented instant of t's day (23:59:59.999).
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfWeek returns midnight of the first weekday on or before t.
func StartOfWeek(t time.Time, weekStartsOn time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStartsOn) + 7) % 7
	return StartOfDay(t.AddDate(0, 0, -offset))
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfYear returns midnight of January 1 of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// addMonthsClamped steps t by n calendar months, clamping the day-of-month to
// the target month's length so Jan 31 - 1 month lands on the end of February
// instead of overflowing into March.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	// Normalize the target month via a first-of-month date, which cannot overflow.
	anchor := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	if max := daysIn(anchor.Year(), anchor.Month(), t.Location()); day > max {
		day = max
	}
	hour, min, sec := t.Clock()
	return time.Date(anchor.Year(), anchor.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// RangeFor computes the concrete reporting window for an anchor date and
// period unit. For custom periods the anchor is taken as-is and the end is
// the anchor's end of day; callers substitute the user-chosen end date.
func RangeFor(anchor time.Time, unit models.PeriodUnit, weekStartsOn time.Weekday) models.DateRange {
	switch unit {
	case models.PeriodDay:
		return models.DateRange{Start: StartOfDay(anchor), End: EndOfDay(anchor)}
	case models.PeriodWeek:
		start := StartOfWeek(anchor, weekStartsOn)
		return models.DateRange{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
	case models.PeriodMonth:
		start := StartOfMonth(anchor)
		return models.DateRange{Start: start, End: EndOfDay(start.AddDate(0, 1, -1))}
	case models.PeriodYear:
		start := StartOfYear(anchor)
		return models.DateRange{Start: start, End: EndOfDay(time.Date(anchor.Year(), time.December, 31, 0, 0, 0, 0, anchor.Location()))}
	default:
		return models.DateRange{Start: anchor, End: EndOfDay(anchor)}
	}
}

// Step moves the anchor by exactly one unit in the given direction (+1 or -1).
// Custom periods step by single days, matching the navigation arrows.
func Step(anchor time.Time, unit models.PeriodUnit, direction int) time.Time {
	switch unit {
	case models.PeriodWeek:
		return anchor.AddDate(0, 0, 7*direction)
	case models.PeriodMonth:
		return addMonthsClamped(anchor, direction)
	case models.PeriodYear:
		return addMonthsClamped(anchor, 12*direction)
	default:
		return anchor.AddDate(0, 0, direction)
	}
}

// StartOfPeriod normalizes an anchor to the beginning of its unit.
func StartOfPeriod(anchor time.Time, unit models.PeriodUnit, weekStartsOn time.Weekday) time.Time {
	switch unit {
	case models.PeriodWeek:
		return StartOfWeek(anchor, weekStartsOn)
	case models.PeriodMonth:
		return StartOfMonth(anchor)
	case models.PeriodYear:
		return StartOfYear(anchor)
	default:
		return StartOfDay(anchor)
	}
}
