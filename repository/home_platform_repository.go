// ABOUTME: This file implements the repository interfaces over the platform driver
// ABOUTME: A thin adapter so services depend on contracts instead of the HTTP client

package repository

import (
	"context"
	"log/slog"
	"time"

	"period-selector-sidecar/driver"
	"period-selector-sidecar/models"
)

// HomePlatformRepository implements all platform-backed repository contracts
type HomePlatformRepository struct {
	client *driver.HomeClient
	logger *slog.Logger
}

// NewHomePlatformRepository creates a repository backed by the platform API
func NewHomePlatformRepository(client *driver.HomeClient, logger *slog.Logger) *HomePlatformRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomePlatformRepository{
		client: client,
		logger: logger,
	}
}

// GetEnergyPreferences fetches the energy dashboard configuration
func (r *HomePlatformRepository) GetEnergyPreferences(ctx context.Context) (*models.EnergyPreferences, error) {
	return r.client.GetEnergyPreferences(ctx)
}

// FetchStatistics fetches statistics for the given window and series ids
func (r *HomePlatformRepository) FetchStatistics(ctx context.Context, start, end time.Time, statisticIDs []string) (map[string][]models.StatisticValue, error) {
	return r.client.FetchStatistics(ctx, start, end, statisticIDs)
}

// GetState reads the current state of the sync entity
func (r *HomePlatformRepository) GetState(ctx context.Context, entityID string) (*models.EntityState, error) {
	return r.client.GetState(ctx, entityID)
}

// SetDateTime writes a timestamp to the sync entity
func (r *HomePlatformRepository) SetDateTime(ctx context.Context, entityID string, value time.Time) error {
	return r.client.SetDateTime(ctx, models.NewSetDateTimeRequest(entityID, value))
}
