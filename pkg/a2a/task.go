package a2a

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

/*
Task is the central entity tracked by the engine.  It exclusively owns its
history and artifacts; messages and artifacts reference each other by id
only, never by pointer.
*/
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewTask(id string, contextID string) *Task {
	return &Task{
		Kind:      KindTask,
		ID:        id,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
	}
}

/*
ToStatus moves the task to the given state.  Timestamps never go backwards,
even when the wall clock does.
*/
func (task *Task) ToStatus(state TaskState, message *Message) {
	now := time.Now().UTC()

	if now.Before(task.Status.Timestamp) {
		now = task.Status.Timestamp
	}

	task.Status = TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: now,
	}
}

func (task *Task) LastMessage() *Message {
	if len(task.History) == 0 {
		return nil
	}

	return &task.History[len(task.History)-1]
}

// Terminal reports whether the task has reached an absorbing state.
func (task *Task) Terminal() bool {
	return task.Status.State.Terminal()
}

/*
Clone returns a copy whose history, artifacts and metadata containers are
detached from the original.  Parts are treated as immutable once applied,
so element-level copies are not needed.
*/
func (task *Task) Clone() *Task {
	clone := *task

	if task.History != nil {
		clone.History = make([]Message, len(task.History))
		copy(clone.History, task.History)
	}

	if task.Artifacts != nil {
		clone.Artifacts = make([]Artifact, len(task.Artifacts))
		copy(clone.Artifacts, task.Artifacts)
	}

	if task.Metadata != nil {
		clone.Metadata = make(map[string]any, len(task.Metadata))
		for k, v := range task.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

var (
	taskTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AF5C6"))
	taskFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8F98"))
	taskValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E6E6"))
)

// String renders a human-readable summary for logs and debug output.
func (task *Task) String() string {
	var sb strings.Builder

	sb.WriteString(taskTitleStyle.Render(fmt.Sprintf("Task %s", task.ID)))
	sb.WriteString("\n")
	sb.WriteString(taskFieldStyle.Render("  context: "))
	sb.WriteString(taskValueStyle.Render(task.ContextID))
	sb.WriteString("\n")
	sb.WriteString(taskFieldStyle.Render("  state:   "))
	sb.WriteString(taskValueStyle.Render(string(task.Status.State)))
	sb.WriteString("\n")
	sb.WriteString(taskFieldStyle.Render("  history: "))
	sb.WriteString(taskValueStyle.Render(fmt.Sprintf("%d messages, %d artifacts", len(task.History), len(task.Artifacts))))

	return sb.String()
}
