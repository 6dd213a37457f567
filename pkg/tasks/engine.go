package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/stores"
)

/*
Engine applies messages, artifact updates, status updates and terminal
transitions to stored tasks.  Every mutation for one task id runs under that
id's lock, and events are published to the hub before the lock is released,
so subscribers observe exactly the commit order.

Terminal states absorb: updates against a terminal task are dropped silently
and the stored task is returned unchanged.
*/
type Engine struct {
	store *stores.TaskStore
	hub   *Hub
	locks sync.Map // task id -> *sync.Mutex
}

type EngineOption func(*Engine)

func NewEngine(options ...EngineOption) (*Engine, error) {
	engine := &Engine{}

	for _, option := range options {
		option(engine)
	}

	if engine.store == nil {
		log.Error("missing task store")
		return nil, rpcerrors.ErrMissingStorage{}
	}

	if engine.hub == nil {
		engine.hub = NewHub()
	}

	return engine, nil
}

func WithStore(store *stores.TaskStore) EngineOption {
	return func(engine *Engine) {
		engine.store = store
	}
}

func WithHub(hub *Hub) EngineOption {
	return func(engine *Engine) {
		engine.hub = hub
	}
}

// Hub exposes the per-task event stream for subscribers.
func (engine *Engine) Hub() *Hub {
	return engine.hub
}

func (engine *Engine) lock(taskID string) func() {
	actual, _ := engine.locks.LoadOrStore(taskID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// Get returns a copy of the stored task.
func (engine *Engine) Get(ctx context.Context, taskID string) (*a2a.Task, *rpcerrors.RpcError) {
	return engine.store.Get(ctx, taskID)
}

/*
CreateOrContinue resolves the task a message belongs to.  An absent or
unknown task id creates a fresh task in Submitted state; a known id
continues the stored task unless it reached a terminal state, which rejects
the message with InvalidRequest.  The initial message, when given, is
stamped with ids and appended to history.
*/
func (engine *Engine) CreateOrContinue(ctx context.Context, contextID string, taskID string, initial *a2a.Message) (*a2a.Task, *rpcerrors.RpcError) {
	if taskID == "" {
		taskID = uuid.NewString()
	}

	unlock := engine.lock(taskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, taskID)

	switch {
	case rpcErr == nil:
		if task.Terminal() {
			return nil, rpcerrors.ErrInvalidRequest.WithMessagef(
				"task %s is %s and accepts no further messages", taskID, task.Status.State,
			)
		}
	case rpcErr.Code == rpcerrors.ErrTaskNotFound.Code:
		if contextID == "" {
			contextID = uuid.NewString()
		}

		task = a2a.NewTask(taskID, contextID)
		log.Info("created task", "task_id", taskID, "context_id", contextID)
	default:
		return nil, rpcErr
	}

	if initial != nil {
		if len(initial.Parts) == 0 {
			return nil, rpcerrors.ErrInvalidParams.WithMessagef("message has no parts")
		}

		msg := *initial
		msg.Kind = a2a.KindMessage

		if msg.MessageID == "" {
			msg.MessageID = uuid.NewString()
		}

		msg.TaskID = task.ID
		msg.ContextID = task.ContextID
		task.History = append(task.History, msg)
	}

	if rpcErr := engine.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	return task.Clone(), nil
}

/*
ApplyMessage appends a message to the task's history and publishes it as a
message event.  Messages against a terminal task are dropped silently.
*/
func (engine *Engine) ApplyMessage(ctx context.Context, msg a2a.Message) (*a2a.Task, *rpcerrors.RpcError) {
	if msg.TaskID == "" {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("message has no taskId")
	}

	if len(msg.Parts) == 0 {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("message has no parts")
	}

	unlock := engine.lock(msg.TaskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, msg.TaskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task.Terminal() {
		return task.Clone(), nil
	}

	msg.Kind = a2a.KindMessage
	msg.ContextID = task.ContextID

	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	task.History = append(task.History, msg)

	if task.Status.State == a2a.TaskStateSubmitted {
		task.Status.State = a2a.TaskStateWorking
	}

	if rpcErr := engine.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	engine.hub.Publish(task.ID, msg)

	return task.Clone(), nil
}

/*
ApplyArtifactUpdate merges an artifact delta into the task.  A new artifact
id appends to the task's artifact list; a known id replaces the stored
artifact, or concatenates parts onto it when the update's Append flag is
set.  Each update's own flag governs its parts, so mixed append/replace
sequences behave per update.
*/
func (engine *Engine) ApplyArtifactUpdate(ctx context.Context, evt a2a.TaskArtifactUpdateEvent) (*a2a.Task, *rpcerrors.RpcError) {
	if evt.TaskID == "" {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("artifact update has no taskId")
	}

	unlock := engine.lock(evt.TaskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, evt.TaskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task.Terminal() {
		return task.Clone(), nil
	}

	found := false

	for i := range task.Artifacts {
		if task.Artifacts[i].ArtifactID != evt.Artifact.ArtifactID {
			continue
		}

		if evt.Append {
			task.Artifacts[i].Parts = append(task.Artifacts[i].Parts, evt.Artifact.Parts...)
		} else {
			task.Artifacts[i] = evt.Artifact
		}

		found = true
		break
	}

	if !found {
		task.Artifacts = append(task.Artifacts, evt.Artifact)
	}

	if task.Status.State == a2a.TaskStateSubmitted {
		task.Status.State = a2a.TaskStateWorking
	}

	if rpcErr := engine.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	evt.Kind = a2a.KindArtifactUpdate
	evt.ContextID = task.ContextID
	engine.hub.Publish(task.ID, evt)

	return task.Clone(), nil
}

/*
ApplyStatusUpdate commits a status transition and publishes it.  Updates
that would move the state machine backwards are dropped and the stored task
is returned unchanged.
*/
func (engine *Engine) ApplyStatusUpdate(ctx context.Context, evt a2a.TaskStatusUpdateEvent) (*a2a.Task, *rpcerrors.RpcError) {
	if evt.TaskID == "" {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("status update has no taskId")
	}

	unlock := engine.lock(evt.TaskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, evt.TaskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task.Terminal() || !monotonic(task.Status.State, evt.Status.State) {
		return task.Clone(), nil
	}

	timestamp := evt.Status.Timestamp

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	if timestamp.Before(task.Status.Timestamp) {
		timestamp = task.Status.Timestamp
	}

	task.Status = a2a.TaskStatus{
		State:     evt.Status.State,
		Message:   evt.Status.Message,
		Timestamp: timestamp,
	}

	if rpcErr := engine.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	evt.Kind = a2a.KindStatusUpdate
	evt.ContextID = task.ContextID
	evt.Status = task.Status
	engine.hub.Publish(task.ID, evt)

	return task.Clone(), nil
}

/*
Cancel moves a non-terminal task to Canceled and publishes the final status
event.  Canceling a task that already reached a terminal state reports
TaskNotCancelable.
*/
func (engine *Engine) Cancel(ctx context.Context, taskID string) (*a2a.Task, *rpcerrors.RpcError) {
	unlock := engine.lock(taskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task.Terminal() {
		return nil, rpcerrors.ErrTaskNotCancelable.WithMessagef(
			"task %s is already %s", taskID, task.Status.State,
		)
	}

	task.ToStatus(a2a.TaskStateCanceled, nil)

	if rpcErr := engine.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	engine.hub.Publish(task.ID, a2a.NewStatusUpdateEvent(task, true))

	return task.Clone(), nil
}

/*
Begin marks a submitted task as working when its turn is handed to a
worker.  The touch is silent: no event is published, so streaming clients
see the frame sequence start with the work the agent actually produced.
*/
func (engine *Engine) Begin(ctx context.Context, taskID string) *rpcerrors.RpcError {
	unlock := engine.lock(taskID)
	defer unlock()

	task, rpcErr := engine.store.Get(ctx, taskID)

	if rpcErr != nil {
		return rpcErr
	}

	if task.Status.State != a2a.TaskStateSubmitted {
		return nil
	}

	task.ToStatus(a2a.TaskStateWorking, nil)

	return engine.store.Put(ctx, task)
}

/*
TrimHistory returns a copy whose history keeps only the last n messages.
A negative n is the caller's validation problem; nil-safe behavior here is
to leave the task alone.
*/
func TrimHistory(task *a2a.Task, n int) *a2a.Task {
	if task == nil || n < 0 || len(task.History) <= n {
		return task
	}

	trimmed := task.Clone()
	trimmed.History = trimmed.History[len(trimmed.History)-n:]

	if n == 0 {
		trimmed.History = nil
	}

	return trimmed
}

// monotonic reports whether moving from one state to the next keeps the
// state machine moving forward.
func monotonic(from a2a.TaskState, to a2a.TaskState) bool {
	return stateRank(to) >= stateRank(from)
}

func stateRank(state a2a.TaskState) int {
	switch state {
	case a2a.TaskStateSubmitted:
		return 0
	case a2a.TaskStateWorking:
		return 1
	case a2a.TaskStateInputReq:
		return 1
	default:
		return 2
	}
}
