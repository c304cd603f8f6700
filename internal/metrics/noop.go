package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncExpenseCreated is a no-op.
func (n *NoopRecorder) IncExpenseCreated() {}

// IncExpenseUpdated is a no-op.
func (n *NoopRecorder) IncExpenseUpdated() {}

// IncExpenseDeleted is a no-op.
func (n *NoopRecorder) IncExpenseDeleted() {}

// IncInsightsCacheHit is a no-op.
func (n *NoopRecorder) IncInsightsCacheHit() {}

// IncInsightsCacheMiss is a no-op.
func (n *NoopRecorder) IncInsightsCacheMiss() {}

// ObserveInsightsDuration is a no-op.
func (n *NoopRecorder) ObserveInsightsDuration(duration time.Duration) {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure() {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited() {}
