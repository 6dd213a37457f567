/*
Package client talks to a remote A2A host over its JSON-RPC binding.  It
covers the non-streaming surface: sending messages, polling tasks,
cancellation and push config management.
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/jsonrpc"
)

// Client is safe for concurrent use; it holds no per-call state.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

type Option func(*Client)

/*
New builds a client for the host's JSON-RPC endpoint, e.g.
"http://localhost:3210/a2a".
*/
func New(endpoint string, options ...Option) *Client {
	client := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 120 * time.Second},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithToken sets the bearer token sent on every call.
func WithToken(token string) Option {
	return func(client *Client) {
		client.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.http = httpClient
	}
}

// SendText sends a plain text user message and returns the finished task.
func (client *Client) SendText(ctx context.Context, text string, taskID string) (*a2a.Task, error) {
	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	msg.TaskID = taskID

	return client.SendMessage(ctx, a2a.MessageSendParams{Message: *msg})
}

// SendMessage calls message/send and decodes the resulting task snapshot.
func (client *Client) SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, error) {
	var task a2a.Task

	if err := client.call(ctx, "message/send", params, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// GetTask calls tasks/get.  A negative historyLength leaves history
// untrimmed.
func (client *Client) GetTask(ctx context.Context, taskID string, historyLength int) (*a2a.Task, error) {
	params := a2a.TaskQueryParams{ID: taskID}

	if historyLength >= 0 {
		params.HistoryLength = &historyLength
	}

	var task a2a.Task

	if err := client.call(ctx, "tasks/get", params, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// CancelTask calls tasks/cancel and returns the canceled snapshot.
func (client *Client) CancelTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	var task a2a.Task

	if err := client.call(ctx, "tasks/cancel", a2a.TaskIDParams{ID: taskID}, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// SetPushConfig registers a push notification callback for a task.
func (client *Client) SetPushConfig(ctx context.Context, config a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	var stored a2a.TaskPushNotificationConfig

	if err := client.call(ctx, "tasks/pushNotificationConfig/set", config, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// GetPushConfig retrieves a task's push notification config.
func (client *Client) GetPushConfig(ctx context.Context, taskID string) (*a2a.TaskPushNotificationConfig, error) {
	var config a2a.TaskPushNotificationConfig

	params := a2a.GetTaskPushNotificationConfigParams{ID: taskID}

	if err := client.call(ctx, "tasks/pushNotificationConfig/get", params, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

/*
FetchCard loads the agent card from the host's well-known path.  baseURL is
the host root, not the RPC endpoint.
*/
func FetchCard(ctx context.Context, httpClient *http.Client, baseURL string) (*a2a.AgentCard, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/.well-known/agent-card.json", nil,
	)

	if err != nil {
		return nil, err
	}

	res, err := httpClient.Do(req)

	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card request failed with status %d", res.StatusCode)
	}

	var card a2a.AgentCard

	if err := json.NewDecoder(res.Body).Decode(&card); err != nil {
		return nil, err
	}

	return &card, nil
}

// RPCError is a protocol-level failure reported inside the envelope.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (client *Client) call(ctx context.Context, method string, params any, result any) error {
	rawParams, err := json.Marshal(params)

	if err != nil {
		return err
	}

	id, _ := json.Marshal(uuid.NewString())

	body, err := json.Marshal(jsonrpc.RPCRequest{
		JSONRPC: jsonrpc.Version,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	})

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(body))

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if client.token != "" {
		req.Header.Set("Authorization", "Bearer "+client.token)
	}

	res, err := client.http.Do(req)

	if err != nil {
		return err
	}

	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)

	if err != nil {
		return err
	}

	var envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}

	if envelope.Error != nil {
		return &RPCError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	if result == nil || len(envelope.Result) == 0 {
		return nil
	}

	return json.Unmarshal(envelope.Result, result)
}
