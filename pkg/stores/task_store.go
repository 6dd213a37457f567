package stores

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spindlework/a2ahost/pkg/a2a"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
)

/*
TaskStore persists tasks and their push notification configs on top of a
Storage backend.  It owns the JSON (de)serialization and the retry-once
policy for conflicted writes; per-task write serialization belongs to the
engine, which holds a lock for the task id across its read-modify-write
cycles.
*/
type TaskStore struct {
	storage Storage
}

type TaskStoreOption func(*TaskStore)

func NewTaskStore(options ...TaskStoreOption) (*TaskStore, error) {
	store := &TaskStore{}

	for _, option := range options {
		option(store)
	}

	if store.storage == nil {
		log.Error("missing storage backend")
		return nil, rpcerrors.ErrMissingStorage{}
	}

	return store, nil
}

func WithStorage(storage Storage) TaskStoreOption {
	return func(store *TaskStore) {
		store.storage = storage
	}
}

// Get retrieves a task by id.
func (store *TaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, *rpcerrors.RpcError) {
	key := TaskKey(taskID)

	values, err := store.storage.Read(ctx, []string{key})

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, rpcerrors.ErrTaskNotFound.WithMessagef("task %s not found", taskID)
		}

		log.Error("failed to read task", "task_id", taskID, "error", err)
		return nil, rpcerrors.ErrInternal.WithMessagef("failed to read task: %v", err)
	}

	raw, ok := values[key]

	if !ok {
		return nil, rpcerrors.ErrTaskNotFound.WithMessagef("task %s not found", taskID)
	}

	var task a2a.Task

	if err := json.Unmarshal(raw, &task); err != nil {
		log.Error("failed to unmarshal task", "task_id", taskID, "error", err)
		return nil, rpcerrors.ErrInternal.WithMessagef("failed to unmarshal task: %v", err)
	}

	return &task, nil
}

// Put writes a task record, retrying a conflicted write once.
func (store *TaskStore) Put(ctx context.Context, task *a2a.Task) *rpcerrors.RpcError {
	raw, err := json.Marshal(task)

	if err != nil {
		return rpcerrors.ErrInternal.WithMessagef("failed to marshal task: %v", err)
	}

	return store.write(ctx, TaskKey(task.ID), raw)
}

// GetPushConfigs returns every push notification config registered for the
// task, oldest first.
func (store *TaskStore) GetPushConfigs(ctx context.Context, taskID string) ([]a2a.TaskPushNotificationConfig, *rpcerrors.RpcError) {
	key := PushKey(taskID)

	values, err := store.storage.Read(ctx, []string{key})

	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Error("failed to read push configs", "task_id", taskID, "error", err)
		return nil, rpcerrors.ErrInternal.WithMessagef("failed to read push configs: %v", err)
	}

	raw, ok := values[key]

	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var configs []a2a.TaskPushNotificationConfig

	if err := json.Unmarshal(raw, &configs); err != nil {
		log.Error("failed to unmarshal push configs", "task_id", taskID, "error", err)
		return nil, rpcerrors.ErrInternal.WithMessagef("failed to unmarshal push configs: %v", err)
	}

	return configs, nil
}

/*
PutPushConfig stores a push notification config under its task.  A config
carrying the id of an existing one replaces it; otherwise it is appended to
the task's list.
*/
func (store *TaskStore) PutPushConfig(ctx context.Context, config a2a.TaskPushNotificationConfig) *rpcerrors.RpcError {
	configs, rpcErr := store.GetPushConfigs(ctx, config.TaskID)

	if rpcErr != nil {
		return rpcErr
	}

	replaced := false

	for i, existing := range configs {
		if existing.PushNotificationConfig.ID == config.PushNotificationConfig.ID {
			configs[i] = config
			replaced = true
			break
		}
	}

	if !replaced {
		configs = append(configs, config)
	}

	raw, err := json.Marshal(configs)

	if err != nil {
		return rpcerrors.ErrInternal.WithMessagef("failed to marshal push configs: %v", err)
	}

	return store.write(ctx, PushKey(config.TaskID), raw)
}

/*
GetPushConfig selects one stored config by id.  An empty configID returns
the first stored config, which is what clients that registered exactly one
expect.
*/
func (store *TaskStore) GetPushConfig(ctx context.Context, taskID string, configID string) (*a2a.TaskPushNotificationConfig, *rpcerrors.RpcError) {
	configs, rpcErr := store.GetPushConfigs(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if len(configs) == 0 {
		return nil, rpcerrors.ErrTaskNotFound.WithMessagef("no push notification config for task %s", taskID)
	}

	if configID == "" {
		return &configs[0], nil
	}

	for _, config := range configs {
		if config.PushNotificationConfig.ID == configID {
			return &config, nil
		}
	}

	return nil, rpcerrors.ErrTaskNotFound.WithMessagef("push notification config %s not found for task %s", configID, taskID)
}

func (store *TaskStore) write(ctx context.Context, key string, value []byte) *rpcerrors.RpcError {
	err := store.storage.Write(ctx, map[string][]byte{key: value})

	if errors.Is(err, ErrConflict) {
		log.Warn("write conflict, retrying once", "key", key)
		err = store.storage.Write(ctx, map[string][]byte{key: value})
	}

	if err != nil {
		log.Error("failed to write", "key", key, "error", err)
		return rpcerrors.ErrInternal.WithMessagef("failed to write %s: %v", key, err)
	}

	return nil
}
