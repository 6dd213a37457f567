package a2a

/*
MessageSendParams is the parameter object of message/send and
message/stream.
*/
type MessageSendParams struct {
	Message       Message                   `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

type MessageSendConfiguration struct {
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitempty"`
	HistoryLength          *int                    `json:"historyLength,omitempty"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
	Blocking               *bool                   `json:"blocking,omitempty"`
}

// Blocks reports whether the caller expects the response to wait for the
// turn to finish. The default is blocking.
func (cfg *MessageSendConfiguration) Blocks() bool {
	if cfg == nil || cfg.Blocking == nil {
		return true
	}

	return *cfg.Blocking
}

// TaskQueryParams is the parameter object of tasks/get.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TaskIDParams addresses a task by id (tasks/cancel, tasks/resubscribe).
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
