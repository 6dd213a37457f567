package metrics

import "sync"

/*
StreamingMetrics tracks the host's event-stream activity: how many SSE
subscriptions are open, how many events were delivered or dropped, and how
often clients resubscribed to a running task.
*/
type StreamingMetrics struct {
	mu sync.RWMutex

	ActiveStreams   int64
	TotalStreams    int64
	EventsDelivered int64
	EventsDropped   int64
	Resubscribes    int64
}

func NewStreamingMetrics() *StreamingMetrics {
	return &StreamingMetrics{}
}

// StreamOpened records a new subscription.
func (m *StreamingMetrics) StreamOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ActiveStreams++
	m.TotalStreams++
}

// StreamClosed records the end of a subscription.
func (m *StreamingMetrics) StreamClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ActiveStreams--
}

// RecordEvent records one event delivery attempt.
func (m *StreamingMetrics) RecordEvent(dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dropped {
		m.EventsDropped++
		return
	}

	m.EventsDelivered++
}

// RecordResubscribe records a client resuming a task's stream.
func (m *StreamingMetrics) RecordResubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Resubscribes++
}

// Snapshot returns the current counters as a loggable map.
func (m *StreamingMetrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"active_streams":   m.ActiveStreams,
		"total_streams":    m.TotalStreams,
		"events_delivered": m.EventsDelivered,
		"events_dropped":   m.EventsDropped,
		"resubscribes":     m.Resubscribes,
	}
}
