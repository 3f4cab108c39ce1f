// ABOUTME: This file implements the shared energy period collection
// ABOUTME: Owns period state, statistics refresh and the auto-refresh timers

package collection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"period-selector-sidecar/domain"
	"period-selector-sidecar/models"
	"period-selector-sidecar/repository"
	"period-selector-sidecar/utils"
)

// Subscriber receives every published collection state
type Subscriber func(state *models.EnergyPeriodState)

// Collection is the shared period state for one collection key. All widget
// instances with the same key observe and mutate the same collection; the
// collection itself owns the refresh and rollover timers.
type Collection struct {
	key          string
	prefRepo     repository.PreferenceRepository
	statsRepo    repository.StatisticsRepository
	logger       *slog.Logger
	monitor      *utils.Monitor
	timing       Timing
	weekStartsOn time.Weekday
	now          func() time.Time

	mu          sync.Mutex
	state       *models.EnergyPeriodState
	prefs       *models.EnergyPreferences
	start       time.Time
	end         time.Time
	compare     bool
	trackingNow bool
	initialized bool

	subscribers   map[uuid.UUID]Subscriber
	teardownTimer *time.Timer
	hourlyTimer   *time.Timer
	rolloverTimer *time.Timer
	tornDown      bool
	onTeardown    func()

	refreshGroup singleflight.Group
}

func newCollection(
	key string,
	prefRepo repository.PreferenceRepository,
	statsRepo repository.StatisticsRepository,
	weekStartsOn time.Weekday,
	timing Timing,
	monitor *utils.Monitor,
	logger *slog.Logger,
	now func() time.Time,
	onTeardown func(),
) *Collection {
	return &Collection{
		key:          key,
		prefRepo:     prefRepo,
		statsRepo:    statsRepo,
		logger:       logger,
		monitor:      monitor,
		timing:       timing,
		weekStartsOn: weekStartsOn,
		now:          now,
		subscribers:  make(map[uuid.UUID]Subscriber),
		onTeardown:   onTeardown,
	}
}

// Key returns the collection key.
func (c *Collection) Key() string {
	return c.key
}

// Subscribe registers a callback and returns its unsubscription. The current
// state is delivered immediately when already available. The first subscriber
// triggers initialization; a subscriber arriving during the teardown grace
// window cancels the teardown.
func (c *Collection) Subscribe(cb Subscriber) func() {
	c.mu.Lock()

	id := uuid.New()
	c.subscribers[id] = cb

	if c.teardownTimer != nil {
		c.teardownTimer.Stop()
		c.teardownTimer = nil
	}

	needsInit := !c.initialized
	c.initialized = true
	current := c.state
	c.mu.Unlock()

	if current != nil {
		cb(current)
	}
	if needsInit {
		go c.initialize()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.unsubscribe(id)
		})
	}
}

// SubscriberCount returns the number of live subscriptions.
func (c *Collection) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

func (c *Collection) unsubscribe(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subscribers, id)
	if len(c.subscribers) > 0 || c.tornDown {
		return
	}

	// Rapid unmount/remount during dashboard re-layout must not destroy the
	// collection, so teardown waits out a grace window first.
	c.teardownTimer = time.AfterFunc(c.timing.TeardownGrace, c.teardown)
}

func (c *Collection) teardown() {
	c.mu.Lock()
	if len(c.subscribers) > 0 || c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.stopTimersLocked()
	onTeardown := c.onTeardown
	c.mu.Unlock()

	c.logger.Info("Collection torn down", "collection_key", c.key)
	if onTeardown != nil {
		onTeardown()
	}
}

func (c *Collection) stopTimersLocked() {
	for _, timer := range []*time.Timer{c.teardownTimer, c.hourlyTimer, c.rolloverTimer} {
		if timer != nil {
			timer.Stop()
		}
	}
	c.teardownTimer, c.hourlyTimer, c.rolloverTimer = nil, nil, nil
}

// initialize fetches preferences and computes the initial reporting period:
// yesterday during the first hour after midnight (today would be a nearly
// empty bucket), otherwise today up to now.
func (c *Collection) initialize() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prefs, err := c.prefRepo.GetEnergyPreferences(ctx)
	if err != nil {
		c.logger.Warn("Failed to fetch energy preferences, continuing without series",
			"collection_key", c.key,
			"error", err)
		prefs = &models.EnergyPreferences{}
	}

	now := c.now()
	anchor := now
	if now.Hour() == 0 {
		anchor = now.AddDate(0, 0, -1)
	}
	initial := domain.RangeFor(anchor, models.PeriodDay, c.weekStartsOn)

	c.mu.Lock()
	c.prefs = prefs
	c.start = initial.Start
	c.end = initial.End
	c.trackingNow = now.Hour() != 0
	c.mu.Unlock()

	c.Refresh()
	c.scheduleTimers()
}

// SetPeriod stores the pending reporting window. It does not fetch by itself;
// callers follow up with Refresh.
func (c *Collection) SetPeriod(start, end time.Time) {
	c.mu.Lock()
	c.start = start
	c.end = end
	// An end at or beyond the current day's close means the window still
	// tracks "now" and must follow the clock.
	c.trackingNow = !end.Before(domain.EndOfDay(c.now()))
	c.mu.Unlock()

	c.scheduleTimers()
}

// SetCompare stores the compare flag without fetching.
func (c *Collection) SetCompare(compare bool) {
	c.mu.Lock()
	c.compare = compare
	c.mu.Unlock()
}

// Range returns the current pending reporting window.
func (c *Collection) Range() models.DateRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.DateRange{Start: c.start, End: c.end}
}

// State returns the last published state, or nil before the first fetch.
func (c *Collection) State() *models.EnergyPeriodState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// refreshWindow records the window a doRefresh pass actually fetched, so
// Refresh can detect a SetPeriod/SetCompare that landed mid-flight.
type refreshWindow struct {
	start   time.Time
	end     time.Time
	compare bool
	skipped bool
}

// Refresh fetches statistics for the current window and publishes the result
// to all subscribers. Concurrent calls are coalesced; a caller whose window
// was stored after the in-flight fetch sampled its own re-runs until the
// fetched window matches the stored one, so the last write always wins.
func (c *Collection) Refresh() {
	for {
		v, _, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
			return c.doRefresh(), nil
		})
		win, ok := v.(refreshWindow)
		if !ok || win.skipped {
			return
		}

		c.mu.Lock()
		stale := !win.start.Equal(c.start) || !win.end.Equal(c.end) || win.compare != c.compare
		c.mu.Unlock()
		if !stale {
			return
		}
	}
}

func (c *Collection) doRefresh() refreshWindow {
	c.mu.Lock()
	if c.tornDown || c.start.IsZero() {
		c.mu.Unlock()
		return refreshWindow{skipped: true}
	}
	start, end, compare := c.start, c.end, c.compare
	var statisticIDs []string
	if c.prefs != nil {
		statisticIDs = c.prefs.StatisticIDs
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	began := c.now()
	state := &models.EnergyPeriodState{
		Start:   start,
		End:     end,
		Compare: compare,
	}

	var fetchErr error
	if len(statisticIDs) > 0 {
		state.Statistics, fetchErr = c.statsRepo.FetchStatistics(ctx, start, end, statisticIDs)
	}

	if compare {
		// The comparison window has the same length and immediately precedes
		// the primary window.
		length := end.Sub(start)
		compareEnd := start.Add(-time.Millisecond)
		compareStart := compareEnd.Add(-length)
		state.StartCompare = &compareStart
		state.EndCompare = &compareEnd

		if len(statisticIDs) > 0 && fetchErr == nil {
			state.StatisticsCompare, fetchErr = c.statsRepo.FetchStatistics(ctx, compareStart, compareEnd, statisticIDs)
		}
	}

	fetched := refreshWindow{start: start, end: end, compare: compare}

	c.monitor.LogRefresh(ctx, c.key, c.now().Sub(began), fetchErr)
	if fetchErr != nil {
		// Keep the previous published state; the next refresh overwrites.
		return fetched
	}

	state.FetchedAt = c.now()

	c.mu.Lock()
	c.state = state
	subscribers := make([]Subscriber, 0, len(c.subscribers))
	for _, cb := range c.subscribers {
		subscribers = append(subscribers, cb)
	}
	c.mu.Unlock()

	for _, cb := range subscribers {
		cb(state)
	}
	return fetched
}

// scheduleTimers arms the hourly refresh (only while the window tracks now)
// and the midnight rollover.
func (c *Collection) scheduleTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tornDown {
		return
	}

	if c.hourlyTimer != nil {
		c.hourlyTimer.Stop()
		c.hourlyTimer = nil
	}
	if c.trackingNow {
		c.hourlyTimer = time.AfterFunc(c.untilNextHourlyRefresh(), func() {
			c.logger.Debug("Hourly refresh fired", "collection_key", c.key)
			c.Refresh()
			c.scheduleTimers()
		})
	}

	if c.rolloverTimer != nil {
		c.rolloverTimer.Stop()
	}
	c.rolloverTimer = time.AfterFunc(c.untilNextMidnight(), c.rollover)
}

// untilNextHourlyRefresh returns the wait until the next top of hour plus the
// configured offset.
func (c *Collection) untilNextHourlyRefresh() time.Duration {
	now := c.now()
	next := now.Truncate(time.Hour).Add(time.Hour + c.timing.HourlyRefreshOffset)
	return next.Sub(now)
}

func (c *Collection) untilNextMidnight() time.Duration {
	now := c.now()
	next := domain.StartOfDay(now).AddDate(0, 0, 1)
	return next.Sub(now)
}

// rollover re-anchors a now-tracking window when the date changes underneath
// a long-lived dashboard.
func (c *Collection) rollover() {
	c.mu.Lock()
	tracking := c.trackingNow && !c.tornDown
	start, end := c.start, c.end
	c.mu.Unlock()

	if tracking {
		unit := domain.InferPeriod(start, end, "")
		fresh := domain.RangeFor(c.now(), unit, c.weekStartsOn)
		c.logger.Info("Day rollover, re-anchoring period",
			"collection_key", c.key,
			"unit", unit)
		c.SetPeriod(fresh.Start, fresh.End)
		c.Refresh()
		return
	}

	c.scheduleTimers()
}
