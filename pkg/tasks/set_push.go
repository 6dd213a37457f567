package tasks

import (
	"context"
	"encoding/json"

	"github.com/cohesivestack/valgo"
	"github.com/google/uuid"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/stores"
)

/*
SetPushConfig handles tasks/pushNotificationConfig/set.  The config is
stored against an existing task and echoed back; delivering notifications
to the registered endpoint is outside the host's scope.
*/
func SetPushConfig(
	ctx context.Context,
	raw json.RawMessage,
	pipeline *Pipeline,
	store *stores.TaskStore,
) (any, *rpcerrors.RpcError) {
	var params a2a.TaskPushNotificationConfig

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	val := valgo.Is(
		valgo.String(params.TaskID, "taskId").Not().Blank(),
	).Is(
		valgo.String(params.PushNotificationConfig.URL, "url").Not().Blank(),
	)

	if !val.Valid() {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("taskId and url must not be blank")
	}

	// The task must exist before a callback can be registered for it.
	if _, rpcErr := pipeline.Engine().Get(ctx, params.TaskID); rpcErr != nil {
		return nil, rpcErr
	}

	if params.PushNotificationConfig.ID == "" {
		params.PushNotificationConfig.ID = uuid.NewString()
	}

	if rpcErr := store.PutPushConfig(ctx, params); rpcErr != nil {
		return nil, rpcErr
	}

	return params, nil
}
