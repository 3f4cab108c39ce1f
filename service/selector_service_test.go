// ABOUTME: This file tests the selector state machine around navigation
// ABOUTME: Covers debounce coalescing, busy drops, no-op guards and sync wiring

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"period-selector-sidecar/collection"
	"period-selector-sidecar/domain"
	"period-selector-sidecar/mocks"
	"period-selector-sidecar/models"
)

func shortNavTiming() NavTiming {
	return NavTiming{
		Debounce:           20 * time.Millisecond,
		ProcessingCooldown: 40 * time.Millisecond,
		UnchangedTolerance: time.Second,
	}
}

func newTestRegistry(t *testing.T) *collection.Registry {
	ctrl := gomock.NewController(t)
	prefRepo := mocks.NewMockPreferenceRepository(ctrl)
	statsRepo := mocks.NewMockStatisticsRepository(ctrl)
	return collection.NewRegistry(prefRepo, statsRepo, time.Monday, collection.DefaultTiming(), nil, nil)
}

func newTestSelector(t *testing.T, timing NavTiming) *SelectorService {
	return NewSelectorService(newTestRegistry(t), nil, nil, "en-US", timing, nil, nil)
}

func (s *SelectorService) startDateForTest() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startDate
}

func TestSetDate(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)

	svc.SetDate(start, nil, true)

	snap := svc.Snapshot()
	require.True(t, snap.Ready)
	assert.Equal(t, models.PeriodDay, snap.Period)
	assert.True(t, snap.StartDate.Equal(start))
	assert.Equal(t, 8, snap.EndDate.Day())
	assert.Equal(t, 23, snap.EndDate.Hour())
}

func TestSnapshotNotReadyWithoutData(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	snap := svc.Snapshot()
	assert.False(t, snap.Ready)
	assert.Nil(t, snap.StartDate)
}

func TestNavigationDebounceCoalesces(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)

	// Three rapid triggers inside one debounce window commit a single step.
	svc.PickNext()
	svc.PickNext()
	svc.PickNext()

	wantStart := start.AddDate(0, 0, 1)
	require.Eventually(t, func() bool {
		return svc.startDateForTest().Equal(wantStart)
	}, time.Second, 5*time.Millisecond)

	// Nothing further fires once the coalesced commit has landed.
	time.Sleep(100 * time.Millisecond)
	assert.True(t, svc.startDateForTest().Equal(wantStart))
}

func TestNavigationDropsTriggersWhileBusy(t *testing.T) {
	timing := NavTiming{
		Debounce:           10 * time.Millisecond,
		ProcessingCooldown: 200 * time.Millisecond,
		UnchangedTolerance: time.Second,
	}
	svc := newTestSelector(t, timing)
	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)

	svc.PickNext()
	afterOne := start.AddDate(0, 0, 1)
	require.Eventually(t, func() bool {
		return svc.startDateForTest().Equal(afterOne)
	}, time.Second, 2*time.Millisecond)

	// This trigger debounces out while the cooldown still holds; it is
	// dropped, not queued.
	svc.PickNext()
	time.Sleep(100 * time.Millisecond)
	assert.True(t, svc.startDateForTest().Equal(afterOne))

	// After the cooldown the next trigger commits normally.
	time.Sleep(150 * time.Millisecond)
	svc.PickNext()
	require.Eventually(t, func() bool {
		return svc.startDateForTest().Equal(start.AddDate(0, 0, 2))
	}, time.Second, 5*time.Millisecond)
}

func TestNavigationNoOpGuard(t *testing.T) {
	// A tolerance wider than a day step makes every day navigation a no-op.
	timing := NavTiming{
		Debounce:           10 * time.Millisecond,
		ProcessingCooldown: 20 * time.Millisecond,
		UnchangedTolerance: 25 * time.Hour,
	}
	svc := newTestSelector(t, timing)
	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)

	svc.PickNext()
	time.Sleep(80 * time.Millisecond)
	assert.True(t, svc.startDateForTest().Equal(start))

	// The no-op must release the busy flag immediately: a larger step right
	// after still commits.
	svc.SelectPeriod(models.PeriodMonth)
	svc.PickNext()
	require.Eventually(t, func() bool {
		return svc.startDateForTest().After(start.AddDate(0, 0, 15))
	}, time.Second, 5*time.Millisecond)
}

func TestNavigationWithoutDataIsIgnored(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	svc.PickNext()
	svc.PickPrevious()
	time.Sleep(80 * time.Millisecond)
	assert.False(t, svc.Snapshot().Ready)
}

func TestSelectPeriod(t *testing.T) {
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)

	tests := map[string]struct {
		seedStart time.Time
		unit      models.PeriodUnit
		wantStart time.Time
	}{
		"today_inside_window_anchors_today": {
			// en-US weeks start on Sunday.
			seedStart: time.Date(2025, time.September, 10, 0, 0, 0, 0, time.Local),
			unit:      models.PeriodWeek,
			wantStart: time.Date(2025, time.September, 7, 0, 0, 0, 0, time.Local),
		},
		"today_outside_window_keeps_anchor": {
			seedStart: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.Local),
			unit:      models.PeriodMonth,
			wantStart: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.Local),
		},
		"year_snaps_to_january": {
			seedStart: time.Date(2025, time.September, 10, 0, 0, 0, 0, time.Local),
			unit:      models.PeriodYear,
			wantStart: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.Local),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			svc := newTestSelector(t, shortNavTiming())
			svc.SetNowFunc(func() time.Time { return now })
			svc.SetDate(tc.seedStart, nil, true)

			svc.SelectPeriod(tc.unit)

			snap := svc.Snapshot()
			require.True(t, snap.Ready)
			assert.Equal(t, tc.unit, snap.Period)
			assert.True(t, snap.StartDate.Equal(tc.wantStart),
				"got %v, want %v", snap.StartDate, tc.wantStart)
		})
	}
}

func TestSelectCustomKeepsWindow(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	start := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)
	seeded := svc.Snapshot()

	svc.SelectPeriod(models.PeriodCustom)

	snap := svc.Snapshot()
	assert.Equal(t, models.PeriodCustom, snap.Period)
	assert.True(t, snap.StartDate.Equal(*seeded.StartDate))
	assert.True(t, snap.EndDate.Equal(*seeded.EndDate))
}

func TestSetDateRange(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	svc.SetDate(time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local), nil, true)
	svc.SelectPeriod(models.PeriodCustom)

	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.Local)
	svc.SetDateRange(start, end)

	snap := svc.Snapshot()
	require.True(t, snap.Ready)
	assert.True(t, snap.StartDate.Equal(start))
	assert.True(t, snap.EndDate.Equal(domain.EndOfDay(end)))

	// Inverted input leaves the window untouched.
	svc.SetDateRange(end, start)
	after := svc.Snapshot()
	assert.True(t, after.StartDate.Equal(start))
	assert.True(t, after.EndDate.Equal(domain.EndOfDay(end)))
}

func TestSetEndDateRejectsInvertedRange(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)
	svc.SelectPeriod(models.PeriodCustom)
	before := svc.Snapshot()

	svc.SetEndDate(start.AddDate(0, 0, -3))

	after := svc.Snapshot()
	assert.True(t, after.EndDate.Equal(*before.EndDate))
}

func TestPickToday(t *testing.T) {
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)
	svc := newTestSelector(t, shortNavTiming())
	svc.SetNowFunc(func() time.Time { return now })
	svc.SetDate(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local), nil, true)
	svc.SelectPeriod(models.PeriodWeek)

	svc.PickToday()

	snap := svc.Snapshot()
	assert.Equal(t, models.PeriodWeek, snap.Period)
	assert.True(t, snap.StartDate.Equal(time.Date(2025, time.September, 7, 0, 0, 0, 0, time.Local)))
}

func TestPickTodayCustomFallsBackToDay(t *testing.T) {
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)
	svc := newTestSelector(t, shortNavTiming())
	svc.SetNowFunc(func() time.Time { return now })
	svc.SetDate(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local), nil, true)
	svc.SelectPeriod(models.PeriodCustom)

	svc.PickToday()

	snap := svc.Snapshot()
	assert.Equal(t, models.PeriodDay, snap.Period)
	assert.True(t, snap.StartDate.Equal(domain.StartOfDay(now)))
	assert.True(t, snap.EndDate.Equal(domain.EndOfDay(now)))
}

func TestApplyConfig(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())

	err := svc.ApplyConfig(models.SelectorConfig{SyncDirection: "sideways"})
	require.ErrorIs(t, err, models.ErrInvalidConfig)

	err = svc.ApplyConfig(models.SelectorConfig{
		SyncEntity:    "input_datetime.energy_period",
		SyncDirection: models.SyncBoth,
	})
	require.NoError(t, err)
	assert.Equal(t, "input_datetime.energy_period", svc.Config().SyncEntity)
}

func TestToggleCompare(t *testing.T) {
	svc := newTestSelector(t, shortNavTiming())
	svc.SetDate(time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local), nil, true)

	assert.True(t, svc.ToggleCompare())
	assert.True(t, svc.Snapshot().Compare)
	assert.False(t, svc.ToggleCompare())
}

func TestNavigationSyncLoopPrevention(t *testing.T) {
	entityID := "input_datetime.energy_period"
	navTiming := NavTiming{
		Debounce:           10 * time.Millisecond,
		ProcessingCooldown: 20 * time.Millisecond,
		UnchangedTolerance: time.Second,
	}
	syncTiming := SyncTiming{
		PushWindow:           10 * time.Millisecond,
		PullWindow:           10 * time.Millisecond,
		UserActionEchoWindow: 60 * time.Millisecond,
		UserActionClearDelay: 30 * time.Millisecond,
		UnchangedTolerance:   time.Second,
	}

	ctrl := gomock.NewController(t)
	entityRepo := mocks.NewMockDateTimeEntityRepository(ctrl)
	pushed := make(chan time.Time, 1)
	// Exactly one write: the user navigation. The later pull must not echo
	// back into the entity.
	entityRepo.EXPECT().
		SetDateTime(gomock.Any(), entityID, gomock.Any()).
		Do(func(_ any, _ string, value time.Time) { pushed <- value }).
		Return(nil).
		Times(1)

	syncSvc := NewEntitySyncService(entityRepo, syncTiming, nil, nil)
	svc := NewSelectorService(newTestRegistry(t), syncSvc, nil, "en-US", navTiming, nil, nil)
	require.NoError(t, svc.ApplyConfig(models.SelectorConfig{SyncEntity: entityID, SyncDirection: models.SyncBoth}))

	start := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
	svc.SetDate(start, nil, true)

	svc.PickNext()

	afterNav := start.AddDate(0, 0, 1)
	select {
	case value := <-pushed:
		assert.True(t, value.Equal(afterNav))
	case <-time.After(time.Second):
		t.Fatal("expected an entity write after navigation")
	}

	// An entity event inside the echo window is the write bouncing back and
	// must not move the selector.
	echo := afterNav.AddDate(0, 0, 3)
	syncSvc.HandleStateChanged(t.Context(), datetimeEvent(entityID, echo))
	assert.True(t, svc.startDateForTest().Equal(afterNav))

	// Once the protocol flags expire, a genuine entity change pulls through
	// without triggering another write.
	time.Sleep(100 * time.Millisecond)
	external := time.Date(2025, time.September, 20, 0, 0, 0, 0, time.Local)
	syncSvc.HandleStateChanged(t.Context(), datetimeEvent(entityID, external))

	require.Eventually(t, func() bool {
		return svc.startDateForTest().Equal(external)
	}, time.Second, 5*time.Millisecond)
}
