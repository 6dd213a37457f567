package a2a

import "strings"

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

/*
Message represents all non-artifact communication between client & agent.
It lives in a task's history and is never rewritten once appended.
*/
type Message struct {
	Kind      string         `json:"kind"`
	Role      string         `json:"role"` // "user" or "agent"
	Parts     []Part         `json:"parts"`
	MessageID string         `json:"messageId"`
	TaskID    string         `json:"taskId,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Kind:  KindMessage,
		Role:  role,
		Parts: []Part{NewTextPart(text)},
	}
}

func NewFileMessage(role string, file *FileContent) *Message {
	return &Message{
		Kind:  KindMessage,
		Role:  role,
		Parts: []Part{{Kind: PartKindFile, File: file}},
	}
}

func NewDataMessage(role string, data map[string]any) *Message {
	return &Message{
		Kind:  KindMessage,
		Role:  role,
		Parts: []Part{NewDataPart(data)},
	}
}

// String concatenates the text parts, which is what most logs want to see.
func (msg *Message) String() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String()
}
