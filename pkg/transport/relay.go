package transport

import (
	"context"
	"sync"
)

/*
Relay is the per-request single-producer/single-consumer channel between the
background worker and the HTTP response writer.  The worker produces items
with Send and signals turn completion with MarkComplete; the response side
consumes with DrainUntilComplete.  Items produced after completion are
discarded.
*/
type Relay[T any, R any] struct {
	items  chan T
	done   chan struct{}
	once   sync.Once
	result R
}

func NewRelay[T any, R any](depth int) *Relay[T, R] {
	if depth <= 0 {
		depth = 16
	}

	return &Relay[T, R]{
		items: make(chan T, depth),
		done:  make(chan struct{}),
	}
}

// Send hands an item to the consumer. It reports false when the relay has
// completed and the item was discarded.
func (relay *Relay[T, R]) Send(item T) bool {
	select {
	case <-relay.done:
		return false
	default:
	}

	select {
	case relay.items <- item:
		return true
	case <-relay.done:
		return false
	}
}

// MarkComplete records the turn result and releases the consumer. Only the
// first call takes effect.
func (relay *Relay[T, R]) MarkComplete(result R) {
	relay.once.Do(func() {
		relay.result = result
		close(relay.done)
	})
}

/*
DrainUntilComplete yields every produced item to onItem in producer order
and returns the completion result once MarkComplete has been called and the
buffer is empty.  A canceled ctx ends the drain early with ctx's error.
*/
func (relay *Relay[T, R]) DrainUntilComplete(ctx context.Context, onItem func(T)) (R, error) {
	for {
		select {
		case item := <-relay.items:
			onItem(item)
		case <-relay.done:
			// Items buffered before completion still belong to the turn.
			for {
				select {
				case item := <-relay.items:
					onItem(item)
				default:
					return relay.result, nil
				}
			}
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}
}

/*
RelayMap keys relays by request id.  The request owner registers the relay
with Get before handing the id to a producer, and the entry is removed when
its drain finishes.  Send and MarkComplete never create entries: a producer
outliving its drain (an agent still running after a timed-out cancel, say)
lands on nothing instead of resurrecting a relay nobody will drain.
*/
type RelayMap[T any, R any] struct {
	relays sync.Map
	depth  int
}

func NewRelayMap[T any, R any](depth int) *RelayMap[T, R] {
	return &RelayMap[T, R]{depth: depth}
}

// Get returns the relay for the request id, creating it when absent.
func (relays *RelayMap[T, R]) Get(requestID string) *Relay[T, R] {
	if existing, ok := relays.relays.Load(requestID); ok {
		return existing.(*Relay[T, R])
	}

	actual, _ := relays.relays.LoadOrStore(requestID, NewRelay[T, R](relays.depth))

	return actual.(*Relay[T, R])
}

// Send hands an item to the request's relay. It reports false when the
// relay is gone or has completed.
func (relays *RelayMap[T, R]) Send(requestID string, item T) bool {
	existing, ok := relays.relays.Load(requestID)

	if !ok {
		return false
	}

	return existing.(*Relay[T, R]).Send(item)
}

// MarkComplete records the turn result. Completing an unknown or disposed
// request id is a no-op.
func (relays *RelayMap[T, R]) MarkComplete(requestID string, result R) {
	existing, ok := relays.relays.Load(requestID)

	if !ok {
		return
	}

	existing.(*Relay[T, R]).MarkComplete(result)
}

// Dispose drops the request's relay without draining it, for turns that
// were registered but never queued.
func (relays *RelayMap[T, R]) Dispose(requestID string) {
	relays.relays.Delete(requestID)
}

// DrainUntilComplete drains the request's relay and disposes it afterwards.
func (relays *RelayMap[T, R]) DrainUntilComplete(ctx context.Context, requestID string, onItem func(T)) (R, error) {
	defer relays.relays.Delete(requestID)

	return relays.Get(requestID).DrainUntilComplete(ctx, onItem)
}
