package tasks

import (
	"context"
	"encoding/json"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
)

// SendMessage handles message/send: one blocking turn, returning the task
// snapshot once the agent is done (or right after enqueue when the caller
// set blocking to false).
func SendMessage(
	ctx context.Context,
	raw json.RawMessage,
	pipeline *Pipeline,
	identity activity.Identity,
	headers map[string]string,
) (any, *rpcerrors.RpcError) {
	var params a2a.MessageSendParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	task, rpcErr := pipeline.Send(ctx, identity, headers, params)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}

// ParseSendParams decodes and checks message/stream params for the
// streaming dispatcher, which needs them before it can take over the
// response.
func ParseSendParams(raw json.RawMessage) (a2a.MessageSendParams, *rpcerrors.RpcError) {
	var params a2a.MessageSendParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return params, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	if len(params.Message.Parts) == 0 {
		return params, rpcerrors.ErrInvalidParams.WithMessagef("message has no parts")
	}

	return params, nil
}
