package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
	"github.com/spindlework/a2ahost/pkg/catalog"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/worker"
)

type scriptedAgent struct {
	onTurn activity.TurnHandler
}

func (agent *scriptedAgent) OnTurn(ctx context.Context, turn *activity.TurnContext) error {
	return agent.onTurn(ctx, turn)
}

func newTestPipeline(t *testing.T, agent activity.Agent) *Pipeline {
	t.Helper()

	engine := newTestEngine(t)

	registry := catalog.NewRegistry()
	registry.Register(catalog.Entry{Type: "test", Agent: agent})

	pool, err := worker.NewPool(worker.WithLocator(registry), worker.WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}

	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pool.Stop(ctx)
	})

	pipeline, err := NewPipeline(WithEngine(engine), WithPool(pool))
	if err != nil {
		t.Fatal(err)
	}

	return pipeline
}

func echoAgent() *scriptedAgent {
	return &scriptedAgent{onTurn: func(ctx context.Context, turn *activity.TurnContext) error {
		return turn.SendText("echo: " + turn.Activity.Text)
	}}
}

func sendParams(text string, taskID string) a2a.MessageSendParams {
	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	msg.TaskID = taskID

	return a2a.MessageSendParams{Message: *msg}
}

func TestPipelineSendBlocksUntilTurnCompletes(t *testing.T) {
	Convey("Given an echo agent", t, func() {
		pipeline := newTestPipeline(t, echoAgent())
		ctx := context.Background()

		Convey("When a message is sent blocking", func() {
			task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("hello", ""))

			Convey("Then the returned task already finished the turn", func() {
				So(rpcErr, ShouldBeNil)
				So(task.Status.State, ShouldEqual, a2a.TaskStateCompleted)
				So(task.History, ShouldHaveLength, 2)
				So(task.History[0].String(), ShouldEqual, "hello")
				So(task.History[1].String(), ShouldEqual, "echo: hello")
				So(task.Artifacts, ShouldHaveLength, 1)
				So(task.Artifacts[0].Parts[0].Text, ShouldEqual, "echo: hello")
			})
		})

		Convey("When the message has no parts", func() {
			_, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, a2a.MessageSendParams{
				Message: a2a.Message{Role: a2a.RoleUser},
			})

			Convey("Then invalid params is raised", func() {
				So(rpcErr, ShouldNotBeNil)
				So(rpcErr.Code, ShouldEqual, rpcerrors.ErrInvalidParams.Code)
			})
		})

		Convey("When blocking is disabled", func() {
			blocking := false
			params := sendParams("hello", "")
			params.Configuration = &a2a.MessageSendConfiguration{Blocking: &blocking}

			task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, params)

			Convey("Then the snapshot returns without waiting for terminal state", func() {
				So(rpcErr, ShouldBeNil)
				So(task.ID, ShouldNotBeBlank)
				// The turn still finishes in the background.
				So(waitForState(pipeline, task.ID, a2a.TaskStateCompleted), ShouldBeTrue)
			})
		})
	})
}

func TestPipelineSendPassesHeadersToTheAgent(t *testing.T) {
	Convey("Given an agent that echoes a header", t, func() {
		agent := &scriptedAgent{onTurn: func(ctx context.Context, turn *activity.TurnContext) error {
			return turn.SendText("trace: " + turn.Headers["X-Trace"])
		}}

		pipeline := newTestPipeline(t, agent)
		ctx := context.Background()

		Convey("When a message is sent with headers", func() {
			headers := map[string]string{"X-Trace": "t1"}
			task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), headers, sendParams("hi", ""))

			Convey("Then the turn saw the request headers", func() {
				So(rpcErr, ShouldBeNil)
				So(task.History[1].String(), ShouldEqual, "trace: t1")
			})
		})
	})
}

func TestPipelineStreamEventSequence(t *testing.T) {
	Convey("Given an echo agent and a streamed message", t, func() {
		pipeline := newTestPipeline(t, echoAgent())
		ctx := context.Background()

		task, events, cancel, rpcErr := pipeline.Stream(ctx, activity.Anonymous(), nil, sendParams("hello", ""))
		So(rpcErr, ShouldBeNil)
		defer cancel()

		Convey("Then the snapshot is the submitted task", func() {
			So(task.Status.State, ShouldEqual, a2a.TaskStateSubmitted)
		})

		Convey("Then events arrive as artifact, message, final status", func() {
			So(a2a.KindOf(collectEvent(t, events)), ShouldEqual, a2a.KindArtifactUpdate)
			So(a2a.KindOf(collectEvent(t, events)), ShouldEqual, a2a.KindMessage)

			last := collectEvent(t, events)
			So(a2a.KindOf(last), ShouldEqual, a2a.KindStatusUpdate)

			status := last.(a2a.TaskStatusUpdateEvent)
			So(status.Final, ShouldBeTrue)
			So(status.Status.State, ShouldEqual, a2a.TaskStateCompleted)
		})
	})
}

func TestPipelineInputRequired(t *testing.T) {
	Convey("Given an agent that asks for input", t, func() {
		agent := &scriptedAgent{onTurn: func(ctx context.Context, turn *activity.TurnContext) error {
			reply := turn.Activity.Reply("what is your name?")
			reply.InputHint = activity.InputHintExpectingInput
			return turn.SendActivity(reply)
		}}

		pipeline := newTestPipeline(t, agent)
		ctx := context.Background()

		Convey("When a blocking send completes", func() {
			task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("hi", ""))

			Convey("Then the task is waiting for input, not terminal", func() {
				So(rpcErr, ShouldBeNil)
				So(task.Status.State, ShouldEqual, a2a.TaskStateInputReq)
			})

			Convey("And the task accepts a follow-up message", func() {
				followUp, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("Ada", task.ID))
				So(rpcErr, ShouldBeNil)
				So(followUp.History, ShouldHaveLength, 4)
			})
		})
	})
}

func TestPipelineAgentFailure(t *testing.T) {
	Convey("Given an agent that errors", t, func() {
		agent := &scriptedAgent{onTurn: func(ctx context.Context, turn *activity.TurnContext) error {
			return errors.New("model unavailable")
		}}

		pipeline := newTestPipeline(t, agent)
		ctx := context.Background()

		Convey("When a blocking send completes", func() {
			task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("hi", ""))

			Convey("Then the task failed with the error surfaced in status", func() {
				So(rpcErr, ShouldBeNil)
				So(task.Status.State, ShouldEqual, a2a.TaskStateFailed)
				So(task.Status.Message, ShouldNotBeNil)
				So(strings.Contains(task.Status.Message.String(), "model unavailable"), ShouldBeTrue)
			})
		})
	})
}

func TestPipelineCancel(t *testing.T) {
	Convey("Given a task awaiting input", t, func() {
		agent := &scriptedAgent{onTurn: func(ctx context.Context, turn *activity.TurnContext) error {
			if turn.Activity.Type == activity.TypeEndOfConversation {
				return nil
			}

			reply := turn.Activity.Reply("still thinking")
			reply.InputHint = activity.InputHintExpectingInput
			return turn.SendActivity(reply)
		}}

		pipeline := newTestPipeline(t, agent)
		ctx := context.Background()

		task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("hi", ""))
		So(rpcErr, ShouldBeNil)

		Convey("When the task is canceled", func() {
			canceled, rpcErr := pipeline.Cancel(ctx, task.ID)

			Convey("Then the task is canceled and further sends are rejected", func() {
				So(rpcErr, ShouldBeNil)
				So(canceled.Status.State, ShouldEqual, a2a.TaskStateCanceled)

				_, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("more", task.ID))
				So(rpcErr, ShouldNotBeNil)
				So(rpcErr.Code, ShouldEqual, rpcerrors.ErrInvalidRequest.Code)
			})

			Convey("Then canceling again reports not cancelable", func() {
				_, rpcErr := pipeline.Cancel(ctx, task.ID)
				So(rpcErr, ShouldNotBeNil)
				So(rpcErr.Code, ShouldEqual, rpcerrors.ErrTaskNotCancelable.Code)
			})
		})
	})
}

func TestPipelineResubscribe(t *testing.T) {
	Convey("Given a completed task", t, func() {
		pipeline := newTestPipeline(t, echoAgent())
		ctx := context.Background()

		task, rpcErr := pipeline.Send(ctx, activity.Anonymous(), nil, sendParams("hello", ""))
		So(rpcErr, ShouldBeNil)

		Convey("When a client resubscribes", func() {
			snapshot, _, cancel, rpcErr := pipeline.Resubscribe(ctx, task.ID)
			defer cancel()

			Convey("Then the snapshot carries the current state", func() {
				So(rpcErr, ShouldBeNil)
				So(snapshot.Status.State, ShouldEqual, a2a.TaskStateCompleted)
			})
		})

		Convey("When the task id is unknown", func() {
			_, _, _, rpcErr := pipeline.Resubscribe(ctx, "missing")

			Convey("Then task not found is raised", func() {
				So(rpcErr, ShouldNotBeNil)
				So(rpcErr.Code, ShouldEqual, rpcerrors.ErrTaskNotFound.Code)
			})
		})
	})
}

func collectEvent(t *testing.T, events <-chan any) any {
	t.Helper()

	select {
	case evt := <-events:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitForState(pipeline *Pipeline, taskID string, state a2a.TaskState) bool {
	deadline := time.Now().Add(time.Second)

	for time.Now().Before(deadline) {
		task, rpcErr := pipeline.Engine().Get(context.Background(), taskID)

		if rpcErr == nil && task.Status.State == state {
			return true
		}

		time.Sleep(10 * time.Millisecond)
	}

	return false
}
