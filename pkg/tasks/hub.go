package tasks

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spindlework/a2ahost/pkg/metrics"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before the hub starts dropping its frames.
const subscriberBuffer = 32

/*
Hub fans committed engine events out to per-task subscribers.  Publish is
called while the engine holds the task's lock, so every subscriber observes
events in commit order.  Sends never block the engine: a subscriber that
stopped reading loses frames rather than stalling the task.
*/
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan any]struct{}
	metrics *metrics.StreamingMetrics
}

func NewHub() *Hub {
	return &Hub{
		subs:    make(map[string]map[chan any]struct{}),
		metrics: metrics.NewStreamingMetrics(),
	}
}

// Metrics exposes the hub's streaming counters.
func (hub *Hub) Metrics() *metrics.StreamingMetrics {
	return hub.metrics
}

/*
Subscribe registers for a task's event stream.  The returned cancel removes
the subscription and closes the channel; it is safe to call more than once.
*/
func (hub *Hub) Subscribe(taskID string) (<-chan any, func()) {
	ch := make(chan any, subscriberBuffer)

	hub.mu.Lock()

	if hub.subs[taskID] == nil {
		hub.subs[taskID] = make(map[chan any]struct{})
	}

	hub.subs[taskID][ch] = struct{}{}
	hub.mu.Unlock()

	hub.metrics.StreamOpened()

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			hub.mu.Lock()

			if subs, ok := hub.subs[taskID]; ok {
				delete(subs, ch)

				if len(subs) == 0 {
					delete(hub.subs, taskID)
				}
			}

			hub.mu.Unlock()

			close(ch)
			hub.metrics.StreamClosed()
		})
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber of the task.
func (hub *Hub) Publish(taskID string, event any) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for ch := range hub.subs[taskID] {
		select {
		case ch <- event:
			hub.metrics.RecordEvent(false)
		default:
			log.Warn("dropping event for slow subscriber", "task_id", taskID)
			hub.metrics.RecordEvent(true)
		}
	}
}
