// ABOUTME: This file tests the shared collection lifecycle and refresh behavior
// ABOUTME: Covers lazy init, the teardown grace window and compare range math

package collection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"period-selector-sidecar/domain"
	"period-selector-sidecar/models"
)

var testPrefs = &models.EnergyPreferences{StatisticIDs: []string{"sensor.grid_consumption"}}

func testStats() map[string][]models.StatisticValue {
	return map[string][]models.StatisticValue{
		"sensor.grid_consumption": {{Change: 1.5, Sum: 120.5}},
	}
}

// awaitState waits for the next published collection state.
func awaitState(t *testing.T, states <-chan *models.EnergyPeriodState) *models.EnergyPeriodState {
	t.Helper()
	select {
	case state := <-states:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a collection state")
		return nil
	}
}

func TestSubscribeInitializesCollection(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)
	reg.SetNowFunc(func() time.Time { return now })

	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), testPrefs.StatisticIDs).
		Return(testStats(), nil)

	states := make(chan *models.EnergyPeriodState, 4)
	col := reg.Get("energy_main")
	unsub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()

	state := awaitState(t, states)
	assert.True(t, state.Start.Equal(domain.StartOfDay(now)))
	assert.True(t, state.End.Equal(domain.EndOfDay(now)))
	assert.False(t, state.Compare)
	assert.Contains(t, state.Statistics, "sensor.grid_consumption")
}

func TestInitialPeriodJustAfterMidnight(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	// During the first hour of the day the initial window is yesterday: the
	// current day has almost no data yet.
	now := time.Date(2025, time.September, 10, 0, 20, 0, 0, time.Local)
	reg.SetNowFunc(func() time.Time { return now })

	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStats(), nil)

	states := make(chan *models.EnergyPeriodState, 4)
	unsub := reg.Get("energy_main").Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()

	state := awaitState(t, states)
	yesterday := now.AddDate(0, 0, -1)
	assert.True(t, state.Start.Equal(domain.StartOfDay(yesterday)))
	assert.True(t, state.End.Equal(domain.EndOfDay(yesterday)))
}

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStats(), nil)

	col := reg.Get("energy_main")
	first := make(chan *models.EnergyPeriodState, 4)
	unsubFirst := col.Subscribe(func(state *models.EnergyPeriodState) { first <- state })
	defer unsubFirst()
	awaitState(t, first)

	// A late subscriber gets the cached state synchronously, no fetch.
	second := make(chan *models.EnergyPeriodState, 4)
	unsubSecond := col.Subscribe(func(state *models.EnergyPeriodState) { second <- state })
	defer unsubSecond()
	awaitState(t, second)

	assert.Equal(t, 2, col.SubscriberCount())
}

func TestTeardownAfterGraceWindow(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStats(), nil)

	states := make(chan *models.EnergyPeriodState, 4)
	unsub := reg.Get("energy_main").Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	awaitState(t, states)
	require.Equal(t, 1, reg.Len())

	unsub()
	// Double unsubscribe is a no-op.
	unsub()

	require.Eventually(t, func() bool {
		return reg.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestResubscribeCancelsTeardown(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStats(), nil)

	states := make(chan *models.EnergyPeriodState, 4)
	col := reg.Get("energy_main")
	unsub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	awaitState(t, states)

	// Dashboard re-layout: unmount immediately followed by remount. The
	// collection must survive, keeping its cached state.
	unsub()
	resub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer resub()
	awaitState(t, states)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, reg.Len())
	assert.Same(t, col, reg.Get("energy_main"))
}

func TestRefreshComputesCompareRange(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)
	reg.SetNowFunc(func() time.Time { return now })

	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testStats(), nil).
		Times(3)

	states := make(chan *models.EnergyPeriodState, 4)
	col := reg.Get("energy_main")
	unsub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()
	awaitState(t, states)

	col.SetCompare(true)
	col.Refresh()

	state := awaitState(t, states)
	compareRange, ok := state.CompareRange()
	require.True(t, ok)

	// Same length, immediately preceding the primary window.
	start := domain.StartOfDay(now)
	assert.True(t, compareRange.End.Equal(start.Add(-time.Millisecond)))
	assert.True(t, compareRange.Start.Equal(domain.StartOfDay(now.AddDate(0, 0, -1))))
	assert.Contains(t, state.StatisticsCompare, "sensor.grid_consumption")
}

func TestRefreshFetchesWindowSetMidFlight(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	now := time.Date(2025, time.September, 10, 14, 30, 0, 0, time.Local)
	reg.SetNowFunc(func() time.Time { return now })

	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	statsRepo.EXPECT().
		FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ time.Time, _ []string) (map[string][]models.StatisticValue, error) {
			if calls.Add(1) == 2 {
				close(entered)
				<-release
			}
			return testStats(), nil
		}).
		AnyTimes()

	states := make(chan *models.EnergyPeriodState, 8)
	col := reg.Get("energy_main")
	unsub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()
	awaitState(t, states)

	go col.Refresh()
	<-entered

	// The window moves while that fetch is still in flight. A Refresh
	// arriving now coalesces into the in-flight fetch, which sampled the old
	// window; the new window must still end up fetched and published.
	june := domain.RangeFor(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local), models.PeriodDay, time.Monday)
	col.SetPeriod(june.Start, june.End)
	go col.Refresh()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		state := col.State()
		return state != nil && state.Start.Equal(june.Start) && state.End.Equal(june.End)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshFailureKeepsPreviousState(t *testing.T) {
	reg, prefRepo, statsRepo := newTestRegistry(t)
	prefRepo.EXPECT().GetEnergyPreferences(gomock.Any()).Return(testPrefs, nil)
	gomock.InOrder(
		statsRepo.EXPECT().
			FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(testStats(), nil),
		statsRepo.EXPECT().
			FetchStatistics(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("recorder unavailable")),
	)

	states := make(chan *models.EnergyPeriodState, 4)
	col := reg.Get("energy_main")
	unsub := col.Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()
	good := awaitState(t, states)

	col.Refresh()
	time.Sleep(50 * time.Millisecond)

	assert.Same(t, good, col.State())
}

func TestPreferenceFailureStillInitializes(t *testing.T) {
	reg, prefRepo, _ := newTestRegistry(t)
	prefRepo.EXPECT().
		GetEnergyPreferences(gomock.Any()).
		Return(nil, errors.New("preferences unavailable"))

	states := make(chan *models.EnergyPeriodState, 4)
	unsub := reg.Get("energy_main").Subscribe(func(state *models.EnergyPeriodState) { states <- state })
	defer unsub()

	// Without preferences there are no series to fetch, but the window is
	// still published so the selector can render.
	state := awaitState(t, states)
	assert.False(t, state.Start.IsZero())
	assert.Empty(t, state.Statistics)
}
