// ABOUTME: Repository layer common interfaces for clean architecture
// ABOUTME: Defines contracts for home platform data access used by the selector core

package repository

import (
	"context"
	"time"

	"period-selector-sidecar/models"
)

// PreferenceRepository fetches the dashboard's energy configuration
type PreferenceRepository interface {
	GetEnergyPreferences(ctx context.Context) (*models.EnergyPreferences, error)
}

// StatisticsRepository fetches aggregated statistics for a reporting window
type StatisticsRepository interface {
	FetchStatistics(ctx context.Context, start, end time.Time, statisticIDs []string) (map[string][]models.StatisticValue, error)
}

// DateTimeEntityRepository reads and writes the external sync entity
type DateTimeEntityRepository interface {
	GetState(ctx context.Context, entityID string) (*models.EntityState, error)
	SetDateTime(ctx context.Context, entityID string, value time.Time) error
}
