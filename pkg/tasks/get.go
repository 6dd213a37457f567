package tasks

import (
	"context"
	"encoding/json"

	"github.com/cohesivestack/valgo"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
)

// Get handles tasks/get, optionally trimming history to the requested
// length.
func Get(
	ctx context.Context,
	raw json.RawMessage,
	pipeline *Pipeline,
) (any, *rpcerrors.RpcError) {
	var params a2a.TaskQueryParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	if val := valgo.Is(valgo.String(params.ID, "id").Not().Blank()); !val.Valid() {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("id must not be blank")
	}

	if params.HistoryLength != nil && *params.HistoryLength < 0 {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("historyLength must not be negative")
	}

	task, rpcErr := pipeline.Engine().Get(ctx, params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if params.HistoryLength != nil {
		task = TrimHistory(task, *params.HistoryLength)
	}

	return task, nil
}
