// ABOUTME: This file implements the period selector state machine
// ABOUTME: Debounced navigation, apply-date, period selection and compare toggle

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"period-selector-sidecar/collection"
	"period-selector-sidecar/domain"
	"period-selector-sidecar/models"
	"period-selector-sidecar/utils"
)

// NavTiming holds the navigation debounce state machine settings
type NavTiming struct {
	Debounce           time.Duration // coalescing window for rapid triggers
	ProcessingCooldown time.Duration // hold the busy flag after a commit
	UnchangedTolerance time.Duration // step results this close are no-ops
}

// DefaultNavTiming returns the production navigation timing
func DefaultNavTiming() NavTiming {
	return NavTiming{
		Debounce:           300 * time.Millisecond,
		ProcessingCooldown: 500 * time.Millisecond,
		UnchangedTolerance: time.Second,
	}
}

// SelectorSnapshot is the externally visible selector state
type SelectorSnapshot struct {
	Ready     bool              `json:"ready"`
	Period    models.PeriodUnit `json:"period,omitempty"`
	StartDate *time.Time        `json:"start_date,omitempty"`
	EndDate   *time.Time        `json:"end_date,omitempty"`
	Compare   bool              `json:"compare"`
	Label     string            `json:"label,omitempty"`
}

// SelectorService owns one widget instance's period selection. It publishes
// changes into the shared collection, mirrors them to the sync entity, and
// resynchronizes from every inbound collection update.
type SelectorService struct {
	registry *collection.Registry
	syncSvc  *EntitySyncService
	locales  *LocaleService
	logger   *slog.Logger
	monitor  *utils.Monitor
	timing   NavTiming
	locale   string
	now      func() time.Time

	mu            sync.Mutex
	config        models.SelectorConfig
	period        models.PeriodUnit
	startDate     time.Time
	endDate       time.Time
	compare       bool
	lastClickID   uint64
	debounceTimer *time.Timer
	isProcessing  bool
	unsubscribe   func()
}

// NewSelectorService creates a selector bound to a collection registry
func NewSelectorService(
	registry *collection.Registry,
	syncSvc *EntitySyncService,
	locales *LocaleService,
	locale string,
	timing NavTiming,
	monitor *utils.Monitor,
	logger *slog.Logger,
) *SelectorService {
	if logger == nil {
		logger = slog.Default()
	}
	if monitor == nil {
		monitor = utils.NewMonitor(logger)
	}
	if locales == nil {
		locales = NewLocaleService()
	}
	s := &SelectorService{
		registry: registry,
		syncSvc:  syncSvc,
		locales:  locales,
		locale:   locale,
		logger:   logger,
		monitor:  monitor,
		timing:   timing,
		now:      time.Now,
	}
	if syncSvc != nil {
		syncSvc.BindApplier(s)
	}
	return s
}

// SetNowFunc overrides the service clock. Test hook.
func (s *SelectorService) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ApplyConfig validates and installs a new selector configuration. This is
// the config-changed path; validation failure is returned to the caller and
// leaves the previous config in place.
func (s *SelectorService) ApplyConfig(cfg models.SelectorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Normalize()

	s.mu.Lock()
	previousKey := s.config.CollectionKey
	s.config = cfg
	mounted := s.unsubscribe != nil
	s.mu.Unlock()

	if s.syncSvc != nil {
		s.syncSvc.Configure(cfg.SyncEntity, cfg.SyncDirection)
	}

	// A changed collection key re-binds the subscription.
	if mounted && cfg.CollectionKey != previousKey {
		s.Unmount()
		s.Mount()
	}

	s.logger.Info("Selector config applied",
		"sync_entity", cfg.SyncEntity,
		"sync_direction", cfg.SyncDirection,
		"collection_key", cfg.CollectionKey)
	return nil
}

// Config returns the active configuration.
func (s *SelectorService) Config() models.SelectorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Mount subscribes the selector to its collection. Idempotent.
func (s *SelectorService) Mount() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	key := s.config.CollectionKey
	s.mu.Unlock()

	unsub := s.registry.Get(key).Subscribe(s.onCollectionUpdate)

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// Unmount releases the collection subscription and pending timers.
func (s *SelectorService) Unmount() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// onCollectionUpdate resynchronizes local state from the authoritative
// collection. Another widget or the collection's own refresh may have moved
// the window, so the symbolic period is re-inferred on every update.
func (s *SelectorService) onCollectionUpdate(state *models.EnergyPeriodState) {
	s.mu.Lock()
	s.compare = state.StartCompare != nil || state.Compare
	s.startDate = state.Start
	s.endDate = state.End
	s.period = domain.InferPeriod(state.Start, state.End, s.period)
	s.mu.Unlock()
}

// weekStartsOn resolves the effective first weekday, config override first.
func (s *SelectorService) weekStartsOn() time.Weekday {
	s.mu.Lock()
	override := s.config.WeekStartsOnOverride
	s.mu.Unlock()

	if override != nil {
		return time.Weekday(*override)
	}
	return s.locales.WeekStartsOn(s.locale)
}

// SelectPeriod switches the symbolic period. The anchor becomes today when
// today lies inside the current window (or no window exists yet), otherwise
// the current start is kept. Custom keeps the window as-is.
func (s *SelectorService) SelectPeriod(unit models.PeriodUnit) {
	weekStartsOn := s.weekStartsOn()

	s.mu.Lock()
	s.period = unit
	now := s.now()
	today := domain.StartOfDay(now)

	anchor := today
	if !s.startDate.IsZero() {
		end := s.endDate
		if end.IsZero() {
			end = domain.EndOfDay(now)
		}
		window := models.DateRange{Start: s.startDate, End: end}
		if !window.Contains(today) {
			anchor = s.startDate
		}
	}
	currentStart, currentEnd := s.startDate, s.endDate
	s.mu.Unlock()

	if unit == models.PeriodCustom {
		start := currentStart
		if start.IsZero() {
			start = today
		}
		var customEnd *time.Time
		if !currentEnd.IsZero() {
			customEnd = &currentEnd
		}
		s.SetDate(start, customEnd, false)
		return
	}

	s.SetDate(domain.StartOfPeriod(anchor, unit, weekStartsOn), nil, false)
}

// PickToday re-anchors the current period to today. A custom (or unset)
// period becomes a day period, today's window being the button's promise.
func (s *SelectorService) PickToday() {
	weekStartsOn := s.weekStartsOn()

	s.mu.Lock()
	unit := s.period
	now := s.now()
	if unit == "" || unit == models.PeriodCustom {
		unit = models.PeriodDay
		s.period = unit
	}
	s.mu.Unlock()

	s.SetDate(domain.StartOfPeriod(now, unit, weekStartsOn), nil, false)
}

// PickPrevious triggers a debounced step backward.
func (s *SelectorService) PickPrevious() {
	s.triggerNavigation("previous", -1)
}

// PickNext triggers a debounced step forward.
func (s *SelectorService) PickNext() {
	s.triggerNavigation("next", +1)
}

// triggerNavigation coalesces rapid triggers: each trigger supersedes the
// pending one, and only the last allocated click id commits when the
// debounce window closes.
func (s *SelectorService) triggerNavigation(action string, direction int) {
	s.mu.Lock()
	s.lastClickID++
	clickID := s.lastClickID

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.timing.Debounce, func() {
		s.processNavigation(action, direction, clickID)
	})
	s.mu.Unlock()
}

// processNavigation runs after the debounce window. Triggers arriving while a
// commit is in its cooldown are dropped entirely, not queued.
func (s *SelectorService) processNavigation(action string, direction int, clickID uint64) {
	ctx := context.Background()

	s.mu.Lock()
	if clickID != s.lastClickID {
		s.mu.Unlock()
		s.monitor.LogNavigation(ctx, action, false, "superseded")
		return
	}
	if s.isProcessing {
		s.mu.Unlock()
		s.monitor.LogNavigation(ctx, action, false, "busy")
		return
	}
	if s.startDate.IsZero() {
		s.mu.Unlock()
		s.monitor.LogNavigation(ctx, action, false, "no_data")
		return
	}

	s.isProcessing = true
	unit := s.period
	if unit == "" {
		unit = models.PeriodDay
	}
	start := s.startDate

	candidate := domain.Step(start, unit, direction)
	if diff := candidate.Sub(start); diff > -s.timing.UnchangedTolerance && diff < s.timing.UnchangedTolerance {
		s.isProcessing = false
		s.mu.Unlock()
		s.monitor.LogNavigation(ctx, action, false, "unchanged")
		return
	}
	s.mu.Unlock()

	if s.syncSvc != nil {
		s.syncSvc.RecordUserAction()
	}
	s.SetDate(candidate, nil, false)
	s.monitor.LogNavigation(ctx, action, true, "")

	time.AfterFunc(s.timing.ProcessingCooldown, func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	})
}

// SetDate applies a new period start. The local start date moves before any
// asynchronous work so concurrent reads never observe the old anchor. The end
// date follows the current period; custom periods take the explicit end date
// or keep the previous one.
func (s *SelectorService) SetDate(startDate time.Time, customEndDate *time.Time, skipEntitySync bool) {
	weekStartsOn := s.weekStartsOn()

	s.mu.Lock()
	s.startDate = startDate

	unit := s.period
	if unit == "" {
		unit = models.PeriodDay
		s.period = unit
	}

	var endDate time.Time
	if unit == models.PeriodCustom {
		switch {
		case customEndDate != nil:
			endDate = domain.EndOfDay(*customEndDate)
		case !s.endDate.IsZero():
			endDate = s.endDate
		default:
			endDate = domain.EndOfDay(s.now())
		}
	} else {
		endDate = domain.RangeFor(startDate, unit, weekStartsOn).End
	}
	s.endDate = endDate
	key := s.config.CollectionKey
	s.mu.Unlock()

	col := s.registry.Get(key)
	col.SetPeriod(startDate, endDate)
	go col.Refresh()

	if !skipEntitySync && s.syncSvc != nil {
		go s.syncSvc.PushDate(context.Background(), startDate)
	}
}

// SetStartDate applies a user-picked start date (custom range editing).
func (s *SelectorService) SetStartDate(start time.Time) {
	s.SetDate(start, nil, false)
}

// SetEndDate applies a user-picked end date. Ends at or before the current
// start are ignored, matching the date-picker contract.
func (s *SelectorService) SetEndDate(end time.Time) {
	s.mu.Lock()
	start := s.startDate
	s.mu.Unlock()

	if start.IsZero() || !end.After(start) {
		return
	}
	s.SetDate(start, &end, false)
}

// SetDateRange applies both picker dates in a single commit: one collection
// refresh, one entity push. Inverted ranges are ignored like in SetEndDate.
func (s *SelectorService) SetDateRange(start, end time.Time) {
	if !end.After(start) {
		return
	}
	s.SetDate(start, &end, false)
}

// ToggleCompare flips compare mode and refreshes the collection, which owns
// the comparison range computation.
func (s *SelectorService) ToggleCompare() bool {
	s.mu.Lock()
	s.compare = !s.compare
	compare := s.compare
	key := s.config.CollectionKey
	s.mu.Unlock()

	col := s.registry.Get(key)
	col.SetCompare(compare)
	go col.Refresh()
	return compare
}

// ApplyExternalDate is the entity sync pull path: the date is applied with
// entity sync skipped, which breaks the push/pull ping-pong.
func (s *SelectorService) ApplyExternalDate(value time.Time) {
	s.SetDate(value, nil, true)
}

// CurrentStartDate exposes the current anchor to the sync service.
func (s *SelectorService) CurrentStartDate() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startDate, !s.startDate.IsZero()
}

// Snapshot returns the selector state for the API layer.
func (s *SelectorService) Snapshot() SelectorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startDate.IsZero() {
		return SelectorSnapshot{Ready: false}
	}

	start, end := s.startDate, s.endDate
	snap := SelectorSnapshot{
		Ready:     true,
		Period:    s.period,
		StartDate: &start,
		EndDate:   &end,
		Compare:   s.compare,
	}
	snap.Label = s.labelLocked()
	return snap
}

// labelLocked renders the date text shown next to the navigation arrows.
func (s *SelectorService) labelLocked() string {
	switch s.period {
	case models.PeriodDay:
		return s.locales.FormatDate(s.startDate, s.locale)
	case models.PeriodMonth:
		return s.locales.FormatMonthYear(s.startDate, s.locale)
	case models.PeriodYear:
		return s.locales.FormatYear(s.startDate, s.locale)
	default:
		end := s.endDate
		if end.IsZero() {
			end = s.now()
		}
		return s.locales.FormatDateShort(s.startDate, s.locale) + " – " + s.locales.FormatDateShort(end, s.locale)
	}
}
