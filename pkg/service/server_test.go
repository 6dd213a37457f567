package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/viper"
	"github.com/tj/assert"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
	"github.com/spindlework/a2ahost/pkg/catalog"
	"github.com/spindlework/a2ahost/pkg/jsonrpc"
	"github.com/spindlework/a2ahost/pkg/stores"
	"github.com/spindlework/a2ahost/pkg/stores/memory"
	"github.com/spindlework/a2ahost/pkg/tasks"
	"github.com/spindlework/a2ahost/pkg/worker"
)

type echoAgent struct{}

func (agent *echoAgent) OnTurn(ctx context.Context, turn *activity.TurnContext) error {
	return turn.SendText("echo: " + turn.Activity.Text)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	return newTestServerWith(t, &echoAgent{})
}

func newTestServerWith(t *testing.T, agent activity.Agent) *Server {
	t.Helper()

	viper.Set("server.path", "a2a")
	viper.Set("server.requireAuth", false)
	viper.Set("agent.default.name", "Echo Host")
	viper.Set("agent.default.version", "0.1.0")

	store, err := stores.NewTaskStore(stores.WithStorage(memory.NewStore()))
	assert.NoError(t, err)

	engine, err := tasks.NewEngine(tasks.WithStore(store))
	assert.NoError(t, err)

	registry := catalog.NewRegistry()
	registry.Register(catalog.Entry{Type: "echo", Agent: agent})

	pool, err := worker.NewPool(worker.WithLocator(registry), worker.WithWorkers(2))
	assert.NoError(t, err)

	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pool.Stop(ctx)
	})

	pipeline, err := tasks.NewPipeline(tasks.WithEngine(engine), tasks.WithPool(pool))
	assert.NoError(t, err)

	srv, err := NewServer(
		WithPipeline(pipeline),
		WithTaskStore(store),
		WithRegistry(registry),
		WithPool(pool),
	)
	assert.NoError(t, err)

	return srv
}

func rpcCall(t *testing.T, srv *Server, body string) jsonrpc.RPCResponse {
	t.Helper()

	req := httptest.NewRequest("POST", "/a2a", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.App().Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var envelope jsonrpc.RPCResponse
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))

	return envelope
}

func rpcBody(method string, params any) string {
	raw, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})

	return string(raw)
}

func TestRPCParseError(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, "{not json")
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32700, envelope.Error.Code)
}

func TestRPCWrongVersion(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, `{"jsonrpc":"1.0","id":1,"method":"tasks/get"}`)
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32600, envelope.Error.Code)
}

func TestRPCMissingID(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, `{"jsonrpc":"2.0","method":"tasks/get","params":{"id":"x"}}`)
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32602, envelope.Error.Code)
}

func TestRPCUnknownMethod(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, rpcBody("tasks/explode", map[string]any{}))
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32601, envelope.Error.Code)
}

func TestRPCSendEmptyParts(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, rpcBody("message/send", map[string]any{
		"message": map[string]any{"role": "user"},
	}))
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32602, envelope.Error.Code)
}

func TestRPCSendRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, rpcBody("message/send", a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	}))
	assert.Nil(t, envelope.Error)

	raw, err := json.Marshal(envelope.Result)
	assert.NoError(t, err)

	var task a2a.Task
	assert.NoError(t, json.Unmarshal(raw, &task))
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Len(t, task.History, 2)
	assert.Equal(t, "echo: hello", task.History[1].String())

	t.Run("tasks/get returns the same snapshot", func(t *testing.T) {
		envelope := rpcCall(t, srv, rpcBody("tasks/get", map[string]any{"id": task.ID}))
		assert.Nil(t, envelope.Error)
	})

	t.Run("tasks/cancel rejects the finished task", func(t *testing.T) {
		envelope := rpcCall(t, srv, rpcBody("tasks/cancel", map[string]any{"id": task.ID}))
		assert.NotNil(t, envelope.Error)
		assert.Equal(t, -32002, envelope.Error.Code)
	})
}

type headerEchoAgent struct{}

func (agent *headerEchoAgent) OnTurn(ctx context.Context, turn *activity.TurnContext) error {
	return turn.SendText("trace: " + turn.Headers["X-Trace"])
}

func TestRPCSendForwardsRequestHeaders(t *testing.T) {
	srv := newTestServerWith(t, &headerEchoAgent{})

	req := httptest.NewRequest("POST", "/a2a", strings.NewReader(rpcBody("message/send", a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace", "t1")

	res, err := srv.App().Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var envelope jsonrpc.RPCResponse
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	assert.Nil(t, envelope.Error)

	raw, err := json.Marshal(envelope.Result)
	assert.NoError(t, err)

	var task a2a.Task
	assert.NoError(t, json.Unmarshal(raw, &task))
	assert.Equal(t, "trace: t1", task.History[1].String())
}

func TestRPCGetUnknownTask(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, rpcBody("tasks/get", map[string]any{"id": "ghost"}))
	assert.NotNil(t, envelope.Error)
	assert.Equal(t, -32001, envelope.Error.Code)
}

func TestRPCPushConfigRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	envelope := rpcCall(t, srv, rpcBody("message/send", a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	}))
	assert.Nil(t, envelope.Error)

	raw, _ := json.Marshal(envelope.Result)
	var task a2a.Task
	assert.NoError(t, json.Unmarshal(raw, &task))

	set := rpcCall(t, srv, rpcBody("tasks/pushNotificationConfig/set", map[string]any{
		"taskId": task.ID,
		"pushNotificationConfig": map[string]any{
			"url": "https://example.com/hook",
		},
	}))
	assert.Nil(t, set.Error)

	got := rpcCall(t, srv, rpcBody("tasks/pushNotificationConfig/get", map[string]any{
		"id": task.ID,
	}))
	assert.Nil(t, got.Error)
}

func TestRPCStreamFrames(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/a2a", strings.NewReader(rpcBody("message/stream", a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})))
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.App().Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)

	frames := bytes.Split(bytes.TrimSuffix(body, []byte("\r\n\r\n")), []byte("\r\n\r\n"))
	assert.True(t, len(frames) >= 3)

	assert.True(t, bytes.HasPrefix(frames[0], []byte("event: task\r\n")))
	assert.Contains(t, string(frames[0]), `"jsonrpc":"2.0"`)
	assert.True(t, bytes.HasPrefix(frames[len(frames)-1], []byte("event: status-update\r\n")))
	assert.Contains(t, string(frames[len(frames)-1]), `"final":true`)
	assert.Contains(t, string(frames[len(frames)-1]), `"completed"`)
}

func TestCardWellKnown(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.App().Test(httptest.NewRequest("GET", WellKnownCardPath, nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var card a2a.AgentCard
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&card))
	assert.Equal(t, "Echo Host", card.Name)
	assert.Equal(t, a2a.TransportJSONRPC, card.PreferredTransport)
	assert.True(t, strings.HasSuffix(card.URL, "/a2a"))
	assert.Len(t, card.AdditionalInterfaces, 2)
}

func TestRestSendAndGet(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})

	req := httptest.NewRequest("POST", "/a2a/v1/message:send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.App().Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var task a2a.Task
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&task))
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)

	t.Run("snapshot honors historyLength", func(t *testing.T) {
		res, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/v1/tasks/"+task.ID+"?historyLength=1", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var trimmed a2a.Task
		assert.NoError(t, json.NewDecoder(res.Body).Decode(&trimmed))
		assert.Len(t, trimmed.History, 1)
	})

	t.Run("unknown task is a 404", func(t *testing.T) {
		res, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/v1/tasks/ghost", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	})

	t.Run("cancel after completion is a 400", func(t *testing.T) {
		res, err := srv.App().Test(httptest.NewRequest("POST", "/a2a/v1/tasks/"+task.ID+":cancel", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})

	t.Run("unknown verb is a 404", func(t *testing.T) {
		res, err := srv.App().Test(httptest.NewRequest("POST", "/a2a/v1/tasks/"+task.ID+":explode", nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	})
}
