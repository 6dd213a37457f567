package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spindlework/a2ahost/pkg/activity"
	"github.com/spindlework/a2ahost/pkg/catalog"
	"github.com/spindlework/a2ahost/pkg/errors"
)

/*
Item is one queued turn: an inbound activity, the identity it runs as, the
sink that relays its outbound activities, the headers the turn runs under,
and the completion callback the worker fires when the turn returns.
*/
type Item struct {
	Identity   activity.Identity
	Sink       activity.Sink
	Activity   activity.Activity
	AgentType  string
	Headers    map[string]string
	OnComplete func(*activity.InvokeResponse, error)
}

/*
Pool drains a bounded FIFO queue of turns with a fixed number of workers.
Turns for the same task never overlap because the engine serializes
mutations per task id; the pool only bounds overall concurrency.
*/
type Pool struct {
	queue   chan Item
	locator catalog.ServiceLocator
	factory activity.AdapterFactory
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

type PoolOption func(*Pool)

func NewPool(options ...PoolOption) (*Pool, error) {
	pool := &Pool{
		workers: 4,
	}

	for _, option := range options {
		option(pool)
	}

	if pool.locator == nil {
		log.Error("missing service locator")
		return nil, errors.ErrMissingLocator{}
	}

	if pool.queue == nil {
		pool.queue = make(chan Item, 100)
	}

	if pool.factory == nil {
		pool.factory = func(sink activity.Sink, headers map[string]string) activity.Adapter {
			return activity.NewRelayAdapter(sink, headers)
		}
	}

	return pool, nil
}

func WithLocator(locator catalog.ServiceLocator) PoolOption {
	return func(pool *Pool) {
		pool.locator = locator
	}
}

func WithWorkers(workers int) PoolOption {
	return func(pool *Pool) {
		if workers > 0 {
			pool.workers = workers
		}
	}
}

func WithQueueDepth(depth int) PoolOption {
	return func(pool *Pool) {
		if depth > 0 {
			pool.queue = make(chan Item, depth)
		}
	}
}

// WithAdapterFactory replaces how the per-turn adapter is built from the
// item's sink and headers.
func WithAdapterFactory(factory activity.AdapterFactory) PoolOption {
	return func(pool *Pool) {
		if factory != nil {
			pool.factory = factory
		}
	}
}

// Start launches the worker goroutines.
func (pool *Pool) Start() {
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)

		go func() {
			defer pool.wg.Done()

			for item := range pool.queue {
				pool.process(item)
			}
		}()
	}
}

// Submit enqueues a turn. It reports false when the pool has stopped or the
// queue is full. The read lock spans the stopped check and the send, so
// Stop cannot close the queue between the two.
func (pool *Pool) Submit(item Item) bool {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	if pool.stopped {
		return false
	}

	select {
	case pool.queue <- item:
		return true
	default:
		log.Warn("work queue full, rejecting turn", "agent_type", item.AgentType)
		return false
	}
}

/*
Stop closes the queue and waits for in-flight turns up to ctx's deadline.
Turns still running past the deadline are abandoned with a warning; their
sends land on completed relays and are discarded.
*/
func (pool *Pool) Stop(ctx context.Context) {
	pool.mu.Lock()

	if pool.stopped {
		pool.mu.Unlock()
		return
	}

	pool.stopped = true
	close(pool.queue)
	pool.mu.Unlock()

	done := make(chan struct{})

	go func() {
		pool.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("shutdown timeout exceeded, abandoning running turns")
	}
}

func (pool *Pool) process(item Item) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("agent callback panicked",
				"agent_type", item.AgentType,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			pool.fail(item, fmt.Errorf("agent callback panicked: %v", r))
		}
	}()

	agent, err := pool.locator.Resolve(item.AgentType)

	if err != nil {
		log.Error("failed to resolve agent", "agent_type", item.AgentType, "error", err)
		pool.fail(item, err)
		return
	}

	adapter := pool.factory(item.Sink, item.Headers)

	response, err := adapter.ProcessActivity(
		context.Background(), item.Identity, item.Activity, agent.OnTurn,
	)

	if err != nil {
		log.Error("agent callback failed",
			"agent_type", item.AgentType,
			"activity_type", item.Activity.Type,
			"error", err,
		)
		pool.fail(item, err)
		return
	}

	if item.OnComplete != nil {
		item.OnComplete(response, nil)
	}
}

// fail completes a broken turn. Invoke turns get a 500 invoke response so
// the caller still receives a correlated reply.
func (pool *Pool) fail(item Item, err error) {
	if item.OnComplete == nil {
		return
	}

	if item.Activity.Type == activity.TypeInvoke {
		item.OnComplete(activity.NewInternalServerErrorResponse(err.Error()), err)
		return
	}

	item.OnComplete(nil, err)
}
