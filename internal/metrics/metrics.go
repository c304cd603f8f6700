// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Expense management metrics
	IncExpenseCreated()
	IncExpenseUpdated()
	IncExpenseDeleted()

	// Insight metrics
	IncInsightsCacheHit()
	IncInsightsCacheMiss()
	ObserveInsightsDuration(duration time.Duration)

	// Access metrics
	IncAuthFailure()
	IncRateLimited()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
