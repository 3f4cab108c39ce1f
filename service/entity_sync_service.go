// ABOUTME: This file implements bidirectional period sync with an external datetime entity
// ABOUTME: Timestamp windows and the user-action flag suppress push/pull echo loops

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"period-selector-sidecar/models"
	"period-selector-sidecar/repository"
	"period-selector-sidecar/utils"
)

// SyncTiming holds the loop-suppression windows of the sync protocol.
// The windows are heuristics: there is no transaction spanning the selector
// and the entity, so "who initiated this change" is approximated by how
// recently each side acted.
type SyncTiming struct {
	PushWindow           time.Duration // min gap between entity writes
	PullWindow           time.Duration // min gap between applied entity events
	UserActionEchoWindow time.Duration // ignore entity events this close to a user action
	UserActionClearDelay time.Duration // hold the user-action flag after a successful push
	UnchangedTolerance   time.Duration // treat dates this close as equal
}

// DefaultSyncTiming returns the production protocol windows
func DefaultSyncTiming() SyncTiming {
	return SyncTiming{
		PushWindow:           500 * time.Millisecond,
		PullWindow:           500 * time.Millisecond,
		UserActionEchoWindow: time.Second,
		UserActionClearDelay: 2 * time.Second,
		UnchangedTolerance:   time.Second,
	}
}

// dateApplier is the selector-side surface the pull path drives
type dateApplier interface {
	ApplyExternalDate(value time.Time)
	CurrentStartDate() (time.Time, bool)
}

// EntitySyncService keeps the selector's period start and an external
// datetime entity in agreement, in whichever directions are configured
type EntitySyncService struct {
	entityRepo repository.DateTimeEntityRepository
	logger     *slog.Logger
	monitor    *utils.Monitor
	timing     SyncTiming
	location   *time.Location
	now        func() time.Time

	mu               sync.Mutex
	entityID         string
	direction        models.SyncDirection
	applier          dateApplier
	lastPushAt       time.Time
	lastPullAt       time.Time
	lastUserActionAt time.Time
	isUserAction     bool
	clearTimer       *time.Timer
}

// NewEntitySyncService creates an entity sync service
func NewEntitySyncService(
	entityRepo repository.DateTimeEntityRepository,
	timing SyncTiming,
	monitor *utils.Monitor,
	logger *slog.Logger,
) *EntitySyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if monitor == nil {
		monitor = utils.NewMonitor(logger)
	}
	return &EntitySyncService{
		entityRepo: entityRepo,
		logger:     logger,
		monitor:    monitor,
		timing:     timing,
		location:   time.Local,
		now:        time.Now,
	}
}

// SetNowFunc overrides the service clock. Test hook.
func (s *EntitySyncService) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Configure sets the sync target and direction. An empty entity id disables
// the protocol in both directions.
func (s *EntitySyncService) Configure(entityID string, direction models.SyncDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityID = entityID
	if direction == "" {
		direction = models.SyncBoth
	}
	s.direction = direction
}

// BindApplier wires the selector-side callback the pull path applies dates to
func (s *EntitySyncService) BindApplier(applier dateApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = applier
}

// RecordUserAction marks a locally-initiated change as in flight. Entity
// events arriving inside the echo window after this call are ignored.
func (s *EntitySyncService) RecordUserAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUserActionAt = s.now()
	s.isUserAction = true
}

// IsUserActionPending reports whether a local change still awaits sync completion
func (s *EntitySyncService) IsUserActionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isUserAction
}

// PushDate writes the period start to the configured entity. Returns quietly
// when the protocol is disabled, the direction excludes pushes, or the last
// push was too recent. Failures are logged and never retried.
func (s *EntitySyncService) PushDate(ctx context.Context, start time.Time) {
	s.mu.Lock()
	entityID := s.entityID
	direction := s.direction
	now := s.now()

	if entityID == "" || start.IsZero() {
		s.mu.Unlock()
		return
	}
	if !direction.AllowsPush() {
		s.mu.Unlock()
		s.monitor.LogSyncSuppressed(ctx, "push", "direction")
		return
	}
	if now.Sub(s.lastPushAt) < s.timing.PushWindow {
		s.mu.Unlock()
		s.monitor.LogSyncSuppressed(ctx, "push", "rate_limited")
		return
	}
	s.lastPushAt = now
	s.mu.Unlock()

	err := s.entityRepo.SetDateTime(ctx, entityID, start)
	s.monitor.LogEntitySync(ctx, "push", entityID, err == nil, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// Clearing immediately keeps a failed push from blocking pulls forever.
		s.isUserAction = false
		return
	}

	if s.clearTimer != nil {
		s.clearTimer.Stop()
	}
	s.clearTimer = time.AfterFunc(s.timing.UserActionClearDelay, func() {
		s.mu.Lock()
		s.isUserAction = false
		s.mu.Unlock()
	})
}

// HandleStateChanged feeds an inbound entity event into the pull path. Echoes
// of our own pushes and stale or unparseable states are dropped.
func (s *EntitySyncService) HandleStateChanged(ctx context.Context, event models.StateChangedEvent) {
	s.mu.Lock()
	entityID := s.entityID
	direction := s.direction
	applier := s.applier
	now := s.now()
	lastPullAt := s.lastPullAt
	lastUserActionAt := s.lastUserActionAt
	isUserAction := s.isUserAction
	s.mu.Unlock()

	if entityID == "" || event.EntityID != entityID || applier == nil {
		return
	}
	if !direction.AllowsPull() {
		s.monitor.LogSyncSuppressed(ctx, "pull", "direction")
		return
	}
	if now.Sub(lastPullAt) < s.timing.PullWindow {
		s.monitor.LogSyncSuppressed(ctx, "pull", "rate_limited")
		return
	}
	if now.Sub(lastUserActionAt) < s.timing.UserActionEchoWindow {
		s.monitor.LogSyncSuppressed(ctx, "pull", "echo_window")
		return
	}
	if isUserAction {
		s.monitor.LogSyncSuppressed(ctx, "pull", "user_action_pending")
		return
	}

	value, ok := event.NewState.ParseDateTime(s.location)
	if !ok {
		s.monitor.LogSyncSuppressed(ctx, "pull", "unparseable")
		return
	}

	if current, has := applier.CurrentStartDate(); has {
		if diff := value.Sub(current); diff > -s.timing.UnchangedTolerance && diff < s.timing.UnchangedTolerance {
			s.monitor.LogSyncSuppressed(ctx, "pull", "unchanged")
			return
		}
	}

	s.mu.Lock()
	s.lastPullAt = now
	s.mu.Unlock()

	s.monitor.LogEntitySync(ctx, "pull", entityID, true, nil)
	applier.ApplyExternalDate(value)
}
