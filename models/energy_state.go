// ABOUTME: This file defines the shared energy period state published by the collection
// ABOUTME: Holds the primary range, the optional compare range and fetched statistics

package models

import "time"

// StatisticValue is a single aggregated point of an energy statistic series.
type StatisticValue struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Change float64   `json:"change"`
	Sum    float64   `json:"sum"`
}

// EnergyPeriodState is the state a SharedPeriodCollection publishes to its
// subscribers. Start/End are always set once the collection initialized.
// StartCompare/EndCompare are present only while compare mode is on.
type EnergyPeriodState struct {
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	Compare      bool       `json:"compare"`
	StartCompare *time.Time `json:"start_compare,omitempty"`
	EndCompare   *time.Time `json:"end_compare,omitempty"`

	Statistics        map[string][]StatisticValue `json:"statistics,omitempty"`
	StatisticsCompare map[string][]StatisticValue `json:"statistics_compare,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// CompareRange returns the comparison window, if compare mode is on.
func (s *EnergyPeriodState) CompareRange() (DateRange, bool) {
	if s.StartCompare == nil || s.EndCompare == nil {
		return DateRange{}, false
	}
	return DateRange{Start: *s.StartCompare, End: *s.EndCompare}, true
}

// EnergyPreferences is the dashboard's energy configuration fetched from the
// home platform once per collection lifecycle.
type EnergyPreferences struct {
	StatisticIDs []string `json:"statistic_ids"`
	CostUnit     string   `json:"cost_unit,omitempty"`
}
