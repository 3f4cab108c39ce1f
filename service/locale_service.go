// ABOUTME: This file implements locale-aware date formatting for the selector UI
// ABOUTME: Formats are built once per locale and cached in an explicit map

package service

import (
	"sync"
	"time"

	"period-selector-sidecar/domain"
)

// localeFormats holds the date layouts for one locale
type localeFormats struct {
	full      string
	short     string
	monthYear string
	year      string
	weekStart time.Weekday
}

// LocaleService renders the selector's date labels. Formatter tables are
// constructed on first use per locale and owned by this service, never stored
// in package-level state.
type LocaleService struct {
	mu     sync.Mutex
	caches map[string]*localeFormats
}

// NewLocaleService creates a locale service with an empty cache
func NewLocaleService() *LocaleService {
	return &LocaleService{
		caches: make(map[string]*localeFormats),
	}
}

func (s *LocaleService) formats(locale string) *localeFormats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.caches[locale]; ok {
		return f
	}

	weekStart := domain.FirstWeekday(locale)
	f := &localeFormats{
		monthYear: "January 2006",
		year:      "2006",
		weekStart: weekStart,
	}
	// Month-first ordering follows the Sunday-first (US-style) locales.
	if weekStart == time.Sunday {
		f.full = "January 2, 2006"
		f.short = "Jan 2"
	} else {
		f.full = "2 January 2006"
		f.short = "2 Jan"
	}

	s.caches[locale] = f
	return f
}

// WeekStartsOn returns the locale's first day of the week
func (s *LocaleService) WeekStartsOn(locale string) time.Weekday {
	return s.formats(locale).weekStart
}

// FormatDate renders a full date, e.g. "September 8, 2025"
func (s *LocaleService) FormatDate(t time.Time, locale string) string {
	return t.Format(s.formats(locale).full)
}

// FormatDateShort renders a short month-day form used in range labels
func (s *LocaleService) FormatDateShort(t time.Time, locale string) string {
	return t.Format(s.formats(locale).short)
}

// FormatMonthYear renders "September 2025"
func (s *LocaleService) FormatMonthYear(t time.Time, locale string) string {
	return t.Format(s.formats(locale).monthYear)
}

// FormatYear renders "2025"
func (s *LocaleService) FormatYear(t time.Time, locale string) string {
	return t.Format(s.formats(locale).year)
}
