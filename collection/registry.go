// ABOUTME: This file implements the collection registry keyed by collection key
// ABOUTME: Collections are created lazily and removed again after teardown

package collection

import (
	"log/slog"
	"sync"
	"time"

	"period-selector-sidecar/repository"
	"period-selector-sidecar/utils"
)

// DefaultKey is used when a widget does not configure a collection key.
const DefaultKey = "energy_default"

// Timing holds the collection lifecycle timer settings
type Timing struct {
	TeardownGrace       time.Duration
	HourlyRefreshOffset time.Duration
}

// DefaultTiming returns the production lifecycle timing
func DefaultTiming() Timing {
	return Timing{
		TeardownGrace:       5 * time.Second,
		HourlyRefreshOffset: 5 * time.Minute,
	}
}

// Registry owns all shared period collections. It is passed explicitly to
// every consumer; there is no package-level instance.
type Registry struct {
	prefRepo     repository.PreferenceRepository
	statsRepo    repository.StatisticsRepository
	weekStartsOn time.Weekday
	timing       Timing
	monitor      *utils.Monitor
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.Mutex
	collections map[string]*Collection
}

// NewRegistry creates a collection registry
func NewRegistry(
	prefRepo repository.PreferenceRepository,
	statsRepo repository.StatisticsRepository,
	weekStartsOn time.Weekday,
	timing Timing,
	monitor *utils.Monitor,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if monitor == nil {
		monitor = utils.NewMonitor(logger)
	}
	return &Registry{
		prefRepo:     prefRepo,
		statsRepo:    statsRepo,
		weekStartsOn: weekStartsOn,
		timing:       timing,
		monitor:      monitor,
		logger:       logger,
		now:          time.Now,
		collections:  make(map[string]*Collection),
	}
}

// SetNowFunc overrides the registry clock. Test hook.
func (r *Registry) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Get returns the collection for a key, creating it lazily. An empty key maps
// to the default collection.
func (r *Registry) Get(key string) *Collection {
	if key == "" {
		key = DefaultKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if col, ok := r.collections[key]; ok {
		return col
	}

	col := newCollection(key, r.prefRepo, r.statsRepo, r.weekStartsOn, r.timing, r.monitor, r.logger, r.now, func() {
		r.remove(key)
	})
	r.collections[key] = col
	r.logger.Info("Collection created", "collection_key", key)
	return col
}

func (r *Registry) remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.collections, key)
}

// Len returns the number of live collections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.collections)
}
