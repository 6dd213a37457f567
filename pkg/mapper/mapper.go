package mapper

import (
	"encoding/json"

	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
)

/*
ToArtifact projects an outbound activity into an artifact carrying the same
content. It returns nil when the activity produces no parts, so callers can
skip emitting an update for content-free activities (typing signals, pure
end-of-conversation markers).
*/
func ToArtifact(act activity.Activity, artifactID string) *a2a.Artifact {
	parts := partsFromActivity(act)

	if len(parts) == 0 {
		return nil
	}

	return &a2a.Artifact{
		ArtifactID: artifactID,
		Parts:      parts,
	}
}

/*
ToMessage projects an outbound activity into message form, used for the
final reply of a turn and for informative status messages. Returns nil when
the activity carries no mappable content.
*/
func ToMessage(act activity.Activity, role string, messageID string, taskID string, contextID string) *a2a.Message {
	parts := partsFromActivity(act)

	if len(parts) == 0 {
		return nil
	}

	return &a2a.Message{
		Kind:      a2a.KindMessage,
		Role:      role,
		Parts:     parts,
		MessageID: messageID,
		TaskID:    taskID,
		ContextID: contextID,
	}
}

func partsFromActivity(act activity.Activity) []a2a.Part {
	var parts []a2a.Part

	if act.Text != "" {
		parts = append(parts, a2a.NewTextPart(act.Text))
	}

	if act.Value != nil {
		parts = append(parts, a2a.NewDataPart(asDataMap(act.Value)))
	}

	for _, attachment := range act.Attachments {
		if part, ok := partFromAttachment(attachment); ok {
			parts = append(parts, part)
		}
	}

	for _, entity := range act.Entities {
		if entity == nil || entity.EntityType() == activity.StreamInfoType {
			continue
		}

		part := a2a.NewDataPart(entityData(entity))
		part.Metadata = SchemaFor(entity)
		parts = append(parts, part)
	}

	return parts
}

func partFromAttachment(attachment activity.Attachment) (a2a.Part, bool) {
	file := &a2a.FileContent{}

	if attachment.Name != "" {
		name := attachment.Name
		file.Name = &name
	}

	if attachment.ContentType != "" {
		mimeType := attachment.ContentType
		file.MimeType = &mimeType
	}

	switch {
	case attachment.ContentURL != "":
		file.URI = attachment.ContentURL
	default:
		content, ok := attachment.Content.(string)
		if !ok {
			return a2a.Part{}, false
		}
		file.Bytes = content
	}

	return a2a.Part{Kind: a2a.PartKindFile, File: file}, true
}

/*
ToActivity projects an inbound protocol message onto the activity shape the
agent consumes: text parts concatenate, file parts become attachments, and
the last data part wins as the activity value.
*/
func ToActivity(msg a2a.Message) activity.Activity {
	act := activity.Activity{
		Type:      activity.TypeMessage,
		ID:        msg.MessageID,
		ChannelID: activity.ChannelID,
		From:      &activity.ChannelAccount{ID: "user", Role: "user"},
		Recipient: &activity.ChannelAccount{ID: "agent", Role: "agent"},
	}

	if msg.ContextID != "" {
		act.Conversation = &activity.ConversationAccount{ID: msg.ContextID}
	}

	text := ""

	for _, part := range msg.Parts {
		switch part.Kind {
		case a2a.PartKindText:
			text += part.Text
		case a2a.PartKindFile:
			if part.File == nil {
				continue
			}
			act.Attachments = append(act.Attachments, attachmentFromPart(part))
		case a2a.PartKindData:
			act.Value = part.Data
		}
	}

	act.Text = text

	return act
}

func attachmentFromPart(part a2a.Part) activity.Attachment {
	attachment := activity.Attachment{}

	if part.File.Name != nil {
		attachment.Name = *part.File.Name
	}

	if part.File.MimeType != nil {
		attachment.ContentType = *part.File.MimeType
	}

	if part.File.URI != "" {
		attachment.ContentURL = part.File.URI
	} else {
		attachment.Content = part.File.Bytes
	}

	return attachment
}

func asDataMap(value any) map[string]any {
	if data, ok := value.(map[string]any); ok {
		return data
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return map[string]any{"value": value}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{"value": value}
	}

	return data
}

func entityData(entity activity.Entity) map[string]any {
	data := asDataMap(entity)

	if _, ok := data["type"]; !ok {
		data["type"] = entity.EntityType()
	}

	return data
}
