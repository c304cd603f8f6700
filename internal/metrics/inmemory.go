package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ExpensesCreated         uint64
	ExpensesUpdated         uint64
	ExpensesDeleted         uint64
	InsightsCacheHits       uint64
	InsightsCacheMisses     uint64
	InsightsDurationCount   uint64
	InsightsDurationTotalNs int64
	AuthFailures            uint64
	RateLimited             uint64
}

// InMemoryRecorder keeps counters in memory. It backs the /metrics
// endpoint and doubles as a test recorder.
type InMemoryRecorder struct {
	expensesCreated         atomic.Uint64
	expensesUpdated         atomic.Uint64
	expensesDeleted         atomic.Uint64
	insightsCacheHits       atomic.Uint64
	insightsCacheMisses     atomic.Uint64
	insightsDurationCount   atomic.Uint64
	insightsDurationTotalNs atomic.Int64
	authFailures            atomic.Uint64
	rateLimited             atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ExpensesCreated:         m.expensesCreated.Load(),
		ExpensesUpdated:         m.expensesUpdated.Load(),
		ExpensesDeleted:         m.expensesDeleted.Load(),
		InsightsCacheHits:       m.insightsCacheHits.Load(),
		InsightsCacheMisses:     m.insightsCacheMisses.Load(),
		InsightsDurationCount:   m.insightsDurationCount.Load(),
		InsightsDurationTotalNs: m.insightsDurationTotalNs.Load(),
		AuthFailures:            m.authFailures.Load(),
		RateLimited:             m.rateLimited.Load(),
	}
}

// IncExpenseCreated increments the expense created counter.
func (m *InMemoryRecorder) IncExpenseCreated() { m.expensesCreated.Add(1) }

// IncExpenseUpdated increments the expense updated counter.
func (m *InMemoryRecorder) IncExpenseUpdated() { m.expensesUpdated.Add(1) }

// IncExpenseDeleted increments the expense deleted counter.
func (m *InMemoryRecorder) IncExpenseDeleted() { m.expensesDeleted.Add(1) }

// IncInsightsCacheHit increments the insights cache hit counter.
func (m *InMemoryRecorder) IncInsightsCacheHit() { m.insightsCacheHits.Add(1) }

// IncInsightsCacheMiss increments the insights cache miss counter.
func (m *InMemoryRecorder) IncInsightsCacheMiss() { m.insightsCacheMisses.Add(1) }

// ObserveInsightsDuration records how long an insight computation took.
func (m *InMemoryRecorder) ObserveInsightsDuration(duration time.Duration) {
	m.insightsDurationCount.Add(1)
	m.insightsDurationTotalNs.Add(duration.Nanoseconds())
}

// IncAuthFailure increments the rejected credentials counter.
func (m *InMemoryRecorder) IncAuthFailure() { m.authFailures.Add(1) }

// IncRateLimited increments the throttled requests counter.
func (m *InMemoryRecorder) IncRateLimited() { m.rateLimited.Add(1) }
