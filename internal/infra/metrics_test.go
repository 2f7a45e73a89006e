package infra

import (
	"testing"
	"time"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordFeedTick()
	m.RecordFeedTick()
	m.RecordOrderAccepted()
	m.RecordOrderSettled(100 * time.Millisecond)
	m.RecordOrderSettled(300 * time.Millisecond)
	m.RecordOrderRejected()
	m.RecordAlertFired()
	m.IncrementStreams()

	snap := m.Snapshot()
	if snap.FeedTicks != 2 {
		t.Errorf("Expected 2 feed ticks, got %d", snap.FeedTicks)
	}
	if snap.OrdersAccepted != 1 || snap.OrdersSettled != 2 || snap.OrdersRejected != 1 {
		t.Errorf("Unexpected order counters: %+v", snap)
	}
	if snap.AvgSettleLatency != 200*time.Millisecond {
		t.Errorf("Expected avg latency 200ms, got %s", snap.AvgSettleLatency)
	}
	if snap.ActiveStreams != 1 {
		t.Errorf("Expected 1 active stream, got %d", snap.ActiveStreams)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordFeedTick()
	m.RecordOrderAccepted()

	m.Reset()

	snap := m.Snapshot()
	if snap.FeedTicks != 0 || snap.OrdersAccepted != 0 {
		t.Errorf("Expected zeroed metrics, got %+v", snap)
	}
}
