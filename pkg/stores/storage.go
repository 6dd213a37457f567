package stores

import (
	"context"
	"errors"
)

// Sentinel errors every Storage backend reports through.
var (
	// ErrNotFound means a requested key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrConflict means the backend detected a lost update. The task store
	// retries a conflicted write once before surfacing an internal error.
	ErrConflict = errors.New("write conflict")
)

/*
Storage is the durable key/value collaborator the host builds on.  Every
operation is atomic per key; atomicity across keys is not required.  The
engine owns per-task serialization, so backends only need to keep single-key
reads and writes consistent.
*/
type Storage interface {
	Read(ctx context.Context, keys []string) (map[string][]byte, error)
	Write(ctx context.Context, pairs map[string][]byte) error
	Delete(ctx context.Context, keys []string) error
}

// Key namespaces inside the store.
const (
	taskKeyPrefix = "task/"
	pushKeyPrefix = "push/"
)

// TaskKey returns the storage key of a task record.
func TaskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

// PushKey returns the storage key holding the push notification configs
// registered for a task.
func PushKey(taskID string) string {
	return pushKeyPrefix + taskID
}
