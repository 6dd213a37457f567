package a2a

// Wire discriminators shared by tasks, messages and the streaming events.
const (
	KindTask           = "task"
	KindMessage        = "message"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

/*
TaskStatusUpdateEvent is sent when the engine commits a status transition.
Final marks the last event of a stream; the subscriber should disconnect
after seeing it.
*/
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewStatusUpdateEvent(task *Task, final bool) TaskStatusUpdateEvent {
	return TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Status:    task.Status,
		Final:     final,
	}
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artifact is
available for a task.  Append governs whether the carried parts replace the
stored artifact or are concatenated onto it.
*/
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    bool           `json:"append,omitempty"`
	LastChunk bool           `json:"lastChunk,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewArtifactUpdateEvent(taskID, contextID string, artifact Artifact, append bool) TaskArtifactUpdateEvent {
	return TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    append,
	}
}

/*
KindOf labels a streamed value with its wire discriminator so transports can
name SSE frames without reflecting over the payload.
*/
func KindOf(event any) string {
	switch event.(type) {
	case *Task, Task:
		return KindTask
	case *Message, Message:
		return KindMessage
	case TaskStatusUpdateEvent, *TaskStatusUpdateEvent:
		return KindStatusUpdate
	case TaskArtifactUpdateEvent, *TaskArtifactUpdateEvent:
		return KindArtifactUpdate
	}

	return KindMessage
}
