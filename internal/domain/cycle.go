package domain

import "time"

// CycleStats holds statistics about one fetch-filter-deliver cycle.
type CycleStats struct {
	Sources      int
	Failed       int
	Fetched      int
	Accepted     int
	Skipped      int
	Batches      int
	MaxPublished time.Time
	Duration     time.Duration
}
