package tasks

import (
	"context"
	"encoding/json"

	"github.com/cohesivestack/valgo"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
)

// Cancel handles tasks/cancel.  Cancellation reaches the agent as an
// end-of-conversation turn before the task is committed Canceled.
func Cancel(
	ctx context.Context,
	raw json.RawMessage,
	pipeline *Pipeline,
) (any, *rpcerrors.RpcError) {
	var params a2a.TaskIDParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	if val := valgo.Is(valgo.String(params.ID, "id").Not().Blank()); !val.Valid() {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("id must not be blank")
	}

	task, rpcErr := pipeline.Cancel(ctx, params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}

// ParseTaskIDParams decodes and checks tasks/resubscribe params for the
// streaming dispatcher.
func ParseTaskIDParams(raw json.RawMessage) (a2a.TaskIDParams, *rpcerrors.RpcError) {
	var params a2a.TaskIDParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return params, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	if val := valgo.Is(valgo.String(params.ID, "id").Not().Blank()); !val.Valid() {
		return params, rpcerrors.ErrInvalidParams.WithMessagef("id must not be blank")
	}

	return params, nil
}
