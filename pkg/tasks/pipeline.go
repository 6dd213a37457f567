package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/mapper"
	"github.com/spindlework/a2ahost/pkg/transport"
	"github.com/spindlework/a2ahost/pkg/worker"
)

// TurnResult is what a relay completes with: the invoke response for
// invoke-type turns, and the error when the agent callback failed.
type TurnResult struct {
	Response *activity.InvokeResponse
	Err      error
}

/*
Pipeline joins the dispatchers to the engine and the worker pool.  For every
turn it creates a request-scoped relay, queues a work item whose adapter
produces into that relay, and drains the relay on a background context,
committing each outbound activity through the engine.  Committed events fan
out through the hub, so the originating response writer and any resubscriber
observe the same stream.

Client disconnects never stop the drain: the agent runs to completion and
the engine keeps committing, which is what lets tasks/resubscribe resume a
live task.
*/
type Pipeline struct {
	engine *Engine
	pool   *worker.Pool
	relays *transport.RelayMap[activity.Activity, TurnResult]
}

type PipelineOption func(*Pipeline)

func NewPipeline(options ...PipelineOption) (*Pipeline, error) {
	pipeline := &Pipeline{}

	for _, option := range options {
		option(pipeline)
	}

	if pipeline.engine == nil {
		log.Error("missing task engine")
		return nil, rpcerrors.ErrMissingEngine{}
	}

	if pipeline.pool == nil {
		log.Error("missing worker pool")
		return nil, rpcerrors.ErrMissingLocator{}
	}

	if pipeline.relays == nil {
		pipeline.relays = transport.NewRelayMap[activity.Activity, TurnResult](32)
	}

	return pipeline, nil
}

func WithEngine(engine *Engine) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.engine = engine
	}
}

func WithPool(pool *worker.Pool) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.pool = pool
	}
}

// Engine exposes the pipeline's task engine to the dispatchers.
func (pipeline *Pipeline) Engine() *Engine {
	return pipeline.engine
}

/*
Send runs one blocking message/send turn.  The message is appended to a new
or continued task, the turn is queued, and unless the caller opted out of
blocking the call waits for the turn to finish before returning the task
snapshot, history-trimmed per the send configuration.
*/
func (pipeline *Pipeline) Send(ctx context.Context, identity activity.Identity, headers map[string]string, params a2a.MessageSendParams) (*a2a.Task, *rpcerrors.RpcError) {
	task, rpcErr := pipeline.accept(ctx, &params)

	if rpcErr != nil {
		return nil, rpcErr
	}

	done, rpcErr := pipeline.runTurn(identity, headers, task, pipeline.inbound(params.Message, task, activity.DeliveryModeExpectReplies))

	if rpcErr != nil {
		return nil, rpcErr
	}

	if !params.Configuration.Blocks() {
		return pipeline.snapshot(ctx, task.ID, params)
	}

	select {
	case <-done:
	case <-ctx.Done():
		// The client is gone; the turn keeps running on its own.
		return nil, rpcerrors.ErrInternal.WithMessagef("request canceled: %v", ctx.Err())
	}

	return pipeline.snapshot(ctx, task.ID, params)
}

/*
Stream starts a message/stream turn.  The returned snapshot is the task as
accepted (the stream's opening frame) and events is the task's live event
feed, subscribed before the turn is queued so nothing is missed.  The caller
must invoke cancel when it stops reading.
*/
func (pipeline *Pipeline) Stream(ctx context.Context, identity activity.Identity, headers map[string]string, params a2a.MessageSendParams) (*a2a.Task, <-chan any, func(), *rpcerrors.RpcError) {
	task, rpcErr := pipeline.accept(ctx, &params)

	if rpcErr != nil {
		return nil, nil, nil, rpcErr
	}

	events, cancel := pipeline.engine.Hub().Subscribe(task.ID)

	if _, rpcErr := pipeline.runTurn(identity, headers, task, pipeline.inbound(params.Message, task, activity.DeliveryModeStream)); rpcErr != nil {
		cancel()
		return nil, nil, nil, rpcErr
	}

	return task, events, cancel, nil
}

/*
Resubscribe reattaches to a task's live event stream.  The snapshot carries
the current state, so a client that reconnects resumes from where the task
is now rather than replaying history.
*/
func (pipeline *Pipeline) Resubscribe(ctx context.Context, taskID string) (*a2a.Task, <-chan any, func(), *rpcerrors.RpcError) {
	task, rpcErr := pipeline.engine.Get(ctx, taskID)

	if rpcErr != nil {
		return nil, nil, nil, rpcErr
	}

	events, cancel := pipeline.engine.Hub().Subscribe(taskID)
	pipeline.engine.Hub().Metrics().RecordResubscribe()

	return task, events, cancel, nil
}

/*
Cancel surfaces cancellation to the agent as a synthetic end-of-conversation
turn, waits for the agent to return, and then commits the Canceled state.
There is no hard preemption: a turn already running finishes on its own and
its late sends are discarded.
*/
func (pipeline *Pipeline) Cancel(ctx context.Context, taskID string) (*a2a.Task, *rpcerrors.RpcError) {
	task, rpcErr := pipeline.engine.Get(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if task.Terminal() {
		return nil, rpcerrors.ErrTaskNotCancelable.WithMessagef(
			"task %s is already %s", taskID, task.Status.State,
		)
	}

	eoc := activity.NewEndOfConversation(activity.CodeUserCancelled)
	eoc.ID = uuid.NewString()
	eoc.Conversation = &activity.ConversationAccount{ID: task.ContextID}
	eoc.DeliveryMode = activity.DeliveryModeExpectReplies

	requestID := uuid.NewString()
	relay := pipeline.relays.Get(requestID)

	submitted := pipeline.pool.Submit(worker.Item{
		Identity:  activity.Anonymous(),
		Sink:      relay.Send,
		Activity:  eoc,
		AgentType: "",
		OnComplete: func(response *activity.InvokeResponse, err error) {
			relay.MarkComplete(TurnResult{Response: response, Err: err})
		},
	})

	if submitted {
		// Anything the agent still sends on the way out is dropped.
		drainCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		_, _ = pipeline.relays.DrainUntilComplete(drainCtx, requestID, func(activity.Activity) {})
		cancel()
	} else {
		pipeline.relays.Dispose(requestID)
	}

	return pipeline.engine.Cancel(ctx, taskID)
}

// accept validates the send params and creates or continues the task.
func (pipeline *Pipeline) accept(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, *rpcerrors.RpcError) {
	if len(params.Message.Parts) == 0 {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("message has no parts")
	}

	if params.Configuration != nil && params.Configuration.HistoryLength != nil && *params.Configuration.HistoryLength < 0 {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("historyLength must not be negative")
	}

	if params.Message.Role == "" {
		params.Message.Role = a2a.RoleUser
	}

	return pipeline.engine.CreateOrContinue(ctx, params.Message.ContextID, params.Message.TaskID, &params.Message)
}

// inbound maps the accepted protocol message onto the activity handed to
// the agent.
func (pipeline *Pipeline) inbound(msg a2a.Message, task *a2a.Task, deliveryMode string) activity.Activity {
	act := mapper.ToActivity(msg)
	act.DeliveryMode = deliveryMode
	act.Conversation = &activity.ConversationAccount{ID: task.ContextID}

	if act.ID == "" {
		act.ID = uuid.NewString()
	}

	return act
}

/*
runTurn queues the agent turn and starts the background drain that commits
its outbound activities.  The returned channel closes once the terminal
event for the turn has been committed.
*/
func (pipeline *Pipeline) runTurn(identity activity.Identity, headers map[string]string, task *a2a.Task, act activity.Activity) (<-chan struct{}, *rpcerrors.RpcError) {
	requestID := uuid.NewString()
	relay := pipeline.relays.Get(requestID)

	item := worker.Item{
		Identity:  identity,
		Sink:      relay.Send,
		Activity:  act,
		AgentType: "",
		Headers:   headers,
		OnComplete: func(response *activity.InvokeResponse, err error) {
			relay.MarkComplete(TurnResult{Response: response, Err: err})
		},
	}

	if !pipeline.pool.Submit(item) {
		pipeline.relays.Dispose(requestID)
		return nil, rpcerrors.ErrInternal.WithMessagef("work queue rejected the turn")
	}

	if rpcErr := pipeline.engine.Begin(context.Background(), task.ID); rpcErr != nil {
		log.Error("failed to mark task working", "task_id", task.ID, "error", rpcErr)
	}

	done := make(chan struct{})

	go pipeline.drain(requestID, task.ID, done)

	return done, nil
}

/*
drain consumes the turn's relay on a background context.  Every outbound
activity with content becomes an artifact update against the turn's single
artifact id (first update creates, later ones append).  When the turn
completes, the last content-bearing activity is committed again in message
form as the agent's reply, followed by the terminal status event.
*/
func (pipeline *Pipeline) drain(requestID string, taskID string, done chan struct{}) {
	defer close(done)

	ctx := context.Background()
	artifactID := uuid.NewString()

	var (
		last    *activity.Activity
		eocCode string
		wrote   bool
	)

	result, err := pipeline.relays.DrainUntilComplete(ctx, requestID, func(out activity.Activity) {
		if out.Type == activity.TypeEndOfConversation {
			eocCode = out.Code
			return
		}

		artifact := mapper.ToArtifact(out, artifactID)

		if artifact == nil {
			return
		}

		evt := a2a.NewArtifactUpdateEvent(taskID, "", *artifact, wrote)

		if _, rpcErr := pipeline.engine.ApplyArtifactUpdate(ctx, evt); rpcErr != nil {
			log.Error("failed to apply artifact update", "task_id", taskID, "error", rpcErr)
			return
		}

		wrote = true
		copied := out
		last = &copied
	})

	if err != nil {
		log.Error("turn drain interrupted", "task_id", taskID, "error", err)
		return
	}

	if result.Err != nil {
		rpcErr := rpcerrors.AsRpcError(result.Err)
		pipeline.finalize(ctx, taskID, a2a.TaskStateFailed, a2a.NewTextMessage(a2a.RoleAgent, rpcErr.Message))
		return
	}

	if last != nil {
		msg := mapper.ToMessage(*last, a2a.RoleAgent, uuid.NewString(), taskID, "")

		if msg != nil {
			if _, rpcErr := pipeline.engine.ApplyMessage(ctx, *msg); rpcErr != nil {
				log.Error("failed to append agent message", "task_id", taskID, "error", rpcErr)
			}
		}
	}

	switch {
	case eocCode == activity.CodeUserCancelled:
		pipeline.finalize(ctx, taskID, a2a.TaskStateCanceled, nil)
	case eocCode == activity.CodeError:
		pipeline.finalize(ctx, taskID, a2a.TaskStateFailed, nil)
	case last != nil && last.ExpectsInput():
		pipeline.finalize(ctx, taskID, a2a.TaskStateInputReq, nil)
	default:
		pipeline.finalize(ctx, taskID, a2a.TaskStateCompleted, nil)
	}
}

func (pipeline *Pipeline) finalize(ctx context.Context, taskID string, state a2a.TaskState, msg *a2a.Message) {
	evt := a2a.TaskStatusUpdateEvent{
		Kind:   a2a.KindStatusUpdate,
		TaskID: taskID,
		Status: a2a.TaskStatus{State: state, Message: msg},
		Final:  true,
	}

	if _, rpcErr := pipeline.engine.ApplyStatusUpdate(ctx, evt); rpcErr != nil {
		log.Error("failed to finalize task", "task_id", taskID, "state", state, "error", rpcErr)
	}
}

func (pipeline *Pipeline) snapshot(ctx context.Context, taskID string, params a2a.MessageSendParams) (*a2a.Task, *rpcerrors.RpcError) {
	task, rpcErr := pipeline.engine.Get(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if params.Configuration != nil && params.Configuration.HistoryLength != nil {
		task = TrimHistory(task, *params.Configuration.HistoryLength)
	}

	return task, nil
}
