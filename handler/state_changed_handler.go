// ABOUTME: This file dispatches inbound state_changed events to the sync service
// ABOUTME: Filters out events without a usable new state before the pull path runs

package handler

import (
	"context"
	"log/slog"

	"period-selector-sidecar/models"
	"period-selector-sidecar/service"
)

// StateChangedHandler feeds platform events into the entity sync pull path
type StateChangedHandler struct {
	syncSvc *service.EntitySyncService
	logger  *slog.Logger
}

// NewStateChangedHandler creates the event dispatch handler
func NewStateChangedHandler(syncSvc *service.EntitySyncService, logger *slog.Logger) *StateChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateChangedHandler{
		syncSvc: syncSvc,
		logger:  logger,
	}
}

// Handle processes one state_changed event from the platform stream
func (h *StateChangedHandler) Handle(event models.StateChangedEvent) {
	if event.NewState == nil {
		return
	}

	h.logger.Debug("State changed event received",
		"entity_id", event.EntityID,
		"state", event.NewState.State)

	h.syncSvc.HandleStateChanged(context.Background(), event)
}
