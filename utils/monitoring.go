// ABOUTME: This file implements structured logging and counter collection
// ABOUTME: Tracks entity sync, navigation and refresh activity for the metrics API

package utils

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Monitor handles structured logging and counter collection
type Monitor struct {
	logger   *slog.Logger
	counters map[string]float64
	mu       sync.RWMutex
}

// NewMonitor creates a new monitoring instance
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:   logger,
		counters: make(map[string]float64),
	}
}

// RecordCounter increments a counter metric by value
func (m *Monitor) RecordCounter(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counterKey(name, labels)] += value
}

// Snapshot returns a copy of all counters keyed by name{label=value,...}
func (m *Monitor) Snapshot() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// LogEntitySync logs an entity sync attempt in either direction
func (m *Monitor) LogEntitySync(ctx context.Context, direction string, entityID string, success bool, err error) {
	attributes := []any{
		"direction", direction,
		"entity_id", entityID,
		"success", success,
	}

	if err != nil {
		attributes = append(attributes, "error", err.Error())
		m.logger.WarnContext(ctx, "Entity sync failed", attributes...)
	} else {
		m.logger.InfoContext(ctx, "Entity sync completed", attributes...)
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RecordCounter("entity_sync_total", 1, map[string]string{
		"direction": direction,
		"status":    status,
	})
}

// LogSyncSuppressed logs a sync attempt skipped by a loop-prevention guard
func (m *Monitor) LogSyncSuppressed(ctx context.Context, direction, reason string) {
	m.logger.DebugContext(ctx, "Entity sync suppressed",
		"direction", direction,
		"reason", reason)

	m.RecordCounter("entity_sync_suppressed_total", 1, map[string]string{
		"direction": direction,
		"reason":    reason,
	})
}

// LogNavigation logs the outcome of a debounced navigation trigger
func (m *Monitor) LogNavigation(ctx context.Context, action string, committed bool, reason string) {
	m.logger.DebugContext(ctx, "Navigation trigger processed",
		"action", action,
		"committed", committed,
		"reason", reason)

	outcome := "committed"
	if !committed {
		outcome = "dropped"
	}
	m.RecordCounter("navigation_total", 1, map[string]string{
		"action":  action,
		"outcome": outcome,
	})
}

// LogRefresh logs a collection refresh with its fetch duration
func (m *Monitor) LogRefresh(ctx context.Context, collectionKey string, duration time.Duration, err error) {
	attributes := []any{
		"collection_key", collectionKey,
		"duration_ms", duration.Milliseconds(),
		"success", err == nil,
	}

	if err != nil {
		attributes = append(attributes, "error", err.Error())
		m.logger.WarnContext(ctx, "Collection refresh failed", attributes...)
	} else {
		m.logger.InfoContext(ctx, "Collection refresh completed", attributes...)
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RecordCounter("collection_refresh_total", 1, map[string]string{
		"collection_key": collectionKey,
		"status":         status,
	})
}

// counterKey renders a stable key from a metric name and its labels
func counterKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}
