package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. Constructed once at bootstrap
// and passed to the components that report into it.
type Metrics struct {
	// Counters
	feedTicks       atomic.Uint64
	aggregationRuns atomic.Uint64
	ordersAccepted  atomic.Uint64
	ordersSettled   atomic.Uint64
	ordersRejected  atomic.Uint64
	alertsFired     atomic.Uint64

	// Settlement latency tracking (accepted -> settled)
	settleSumNs atomic.Int64
	settleCount atomic.Uint64

	// Gauges
	activeStreams atomic.Int32
}

// NewMetrics creates a zeroed metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordFeedTick records one price feed tick.
func (m *Metrics) RecordFeedTick() {
	m.feedTicks.Add(1)
}

// RecordAggregation records one market aggregation run.
func (m *Metrics) RecordAggregation() {
	m.aggregationRuns.Add(1)
}

// RecordOrderAccepted records an order accepted as pending.
func (m *Metrics) RecordOrderAccepted() {
	m.ordersAccepted.Add(1)
}

// RecordOrderRejected records a synchronous precondition rejection.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// RecordOrderSettled records a settlement with its latency.
func (m *Metrics) RecordOrderSettled(latency time.Duration) {
	m.ordersSettled.Add(1)
	m.settleSumNs.Add(latency.Nanoseconds())
	m.settleCount.Add(1)
}

// RecordAlertFired records a triggered price alert.
func (m *Metrics) RecordAlertFired() {
	m.alertsFired.Add(1)
}

// IncrementStreams increments active stream connections by 1.
func (m *Metrics) IncrementStreams() {
	m.activeStreams.Add(1)
}

// DecrementStreams decrements active stream connections by 1.
func (m *Metrics) DecrementStreams() {
	m.activeStreams.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FeedTicks        uint64        `json:"feed_ticks"`
	AggregationRuns  uint64        `json:"aggregation_runs"`
	OrdersAccepted   uint64        `json:"orders_accepted"`
	OrdersSettled    uint64        `json:"orders_settled"`
	OrdersRejected   uint64        `json:"orders_rejected"`
	AlertsFired      uint64        `json:"alerts_fired"`
	AvgSettleLatency time.Duration `json:"avg_settle_latency_ns"`
	ActiveStreams    int32         `json:"active_streams"`
	Timestamp        time.Time     `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgSettle time.Duration
	count := m.settleCount.Load()
	if count > 0 {
		avgSettle = time.Duration(m.settleSumNs.Load() / int64(count))
	}

	return MetricsSnapshot{
		FeedTicks:        m.feedTicks.Load(),
		AggregationRuns:  m.aggregationRuns.Load(),
		OrdersAccepted:   m.ordersAccepted.Load(),
		OrdersSettled:    m.ordersSettled.Load(),
		OrdersRejected:   m.ordersRejected.Load(),
		AlertsFired:      m.alertsFired.Load(),
		AvgSettleLatency: avgSettle,
		ActiveStreams:    m.activeStreams.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.feedTicks.Store(0)
	m.aggregationRuns.Store(0)
	m.ordersAccepted.Store(0)
	m.ordersSettled.Store(0)
	m.ordersRejected.Store(0)
	m.alertsFired.Store(0)
	m.settleSumNs.Store(0)
	m.settleCount.Store(0)
	m.activeStreams.Store(0)
}
