package tasks

import (
	"context"
	"encoding/json"

	"github.com/cohesivestack/valgo"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/stores"
)

// GetPushConfig handles tasks/pushNotificationConfig/get.
func GetPushConfig(
	ctx context.Context,
	raw json.RawMessage,
	store *stores.TaskStore,
) (any, *rpcerrors.RpcError) {
	var params a2a.GetTaskPushNotificationConfigParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("malformed params: %v", err)
	}

	if val := valgo.Is(valgo.String(params.ID, "id").Not().Blank()); !val.Valid() {
		return nil, rpcerrors.ErrInvalidParams.WithMessagef("id must not be blank")
	}

	config, rpcErr := store.GetPushConfig(ctx, params.ID, params.PushNotificationConfigID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return config, nil
}
