package mapper

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spindlework/a2ahost/pkg/a2a"
	"github.com/spindlework/a2ahost/pkg/activity"
)

func TestToArtifact(t *testing.T) {
	Convey("Given an activity with text, value and an attachment", t, func() {
		act := activity.NewMessage("hello")
		act.Value = map[string]any{"answer": "42"}
		act.Attachments = []activity.Attachment{
			{Name: "report.pdf", ContentType: "application/pdf", ContentURL: "https://files/report.pdf"},
		}

		artifact := ToArtifact(act, "art-1")

		Convey("Then the artifact carries one part per content field", func() {
			So(artifact, ShouldNotBeNil)
			So(artifact.ArtifactID, ShouldEqual, "art-1")
			So(len(artifact.Parts), ShouldEqual, 3)
			So(artifact.Parts[0].Kind, ShouldEqual, a2a.PartKindText)
			So(artifact.Parts[0].Text, ShouldEqual, "hello")
			So(artifact.Parts[1].Kind, ShouldEqual, a2a.PartKindData)
			So(artifact.Parts[2].Kind, ShouldEqual, a2a.PartKindFile)
			So(artifact.Parts[2].File.URI, ShouldEqual, "https://files/report.pdf")
		})
	})

	Convey("Given an activity with no mappable content", t, func() {
		act := activity.NewEndOfConversation(activity.CodeCompletedSuccessfully)

		Convey("Then the artifact is nil rather than empty", func() {
			So(ToArtifact(act, "art-1"), ShouldBeNil)
		})
	})

	Convey("Given an activity with entities", t, func() {
		act := activity.NewMessage("with entities")
		act.Entities = []activity.Entity{
			activity.Mention{Mentioned: activity.ChannelAccount{ID: "u1"}, Text: "@u1"},
			activity.StreamInfo{StreamID: "s1", StreamSequence: 3},
		}

		artifact := ToArtifact(act, "art-2")

		Convey("Then stream-info entities are omitted and the rest carry schema metadata", func() {
			So(artifact, ShouldNotBeNil)
			So(len(artifact.Parts), ShouldEqual, 2)
			So(artifact.Parts[1].Kind, ShouldEqual, a2a.PartKindData)
			So(artifact.Parts[1].Metadata, ShouldNotBeNil)
			So(artifact.Parts[1].Data["type"], ShouldEqual, "mention")
		})
	})
}

func TestToMessage(t *testing.T) {
	Convey("Given a reply activity", t, func() {
		act := activity.NewMessage("world")

		msg := ToMessage(act, a2a.RoleAgent, "msg-1", "task-1", "ctx-1")

		Convey("Then message form wraps the same parts", func() {
			So(msg, ShouldNotBeNil)
			So(msg.Role, ShouldEqual, a2a.RoleAgent)
			So(msg.MessageID, ShouldEqual, "msg-1")
			So(msg.TaskID, ShouldEqual, "task-1")
			So(msg.ContextID, ShouldEqual, "ctx-1")
			So(len(msg.Parts), ShouldEqual, 1)
			So(msg.Parts[0].Text, ShouldEqual, "world")
		})
	})
}

func TestToActivity(t *testing.T) {
	Convey("Given a message with mixed parts", t, func() {
		name := "data.bin"
		msg := a2a.Message{
			Kind:      a2a.KindMessage,
			Role:      a2a.RoleUser,
			MessageID: "m-1",
			ContextID: "ctx-9",
			Parts: []a2a.Part{
				a2a.NewTextPart("hello "),
				a2a.NewTextPart("there"),
				{Kind: a2a.PartKindFile, File: &a2a.FileContent{Name: &name, Bytes: "AAEC"}},
				a2a.NewDataPart(map[string]any{"first": true}),
				a2a.NewDataPart(map[string]any{"second": true}),
			},
		}

		act := ToActivity(msg)

		Convey("Then text concatenates, files become attachments, last data part wins", func() {
			So(act.Type, ShouldEqual, activity.TypeMessage)
			So(act.ChannelID, ShouldEqual, activity.ChannelID)
			So(act.Text, ShouldEqual, "hello there")
			So(len(act.Attachments), ShouldEqual, 1)
			So(act.Attachments[0].Name, ShouldEqual, "data.bin")
			So(act.Attachments[0].Content, ShouldEqual, "AAEC")
			So(act.Value, ShouldResemble, map[string]any{"second": true})
			So(act.Conversation.ID, ShouldEqual, "ctx-9")
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given an activity covered by the mapping", t, func() {
		original := activity.NewMessage("round trip")
		original.Value = map[string]any{"k": "v"}
		original.Attachments = []activity.Attachment{
			{Name: "a.txt", ContentType: "text/plain", ContentURL: "https://x/a.txt"},
			{Name: "b.txt", ContentType: "text/plain", Content: "aW5saW5l"},
		}

		msg := ToMessage(original, a2a.RoleUser, "m-1", "t-1", "c-1")
		back := ToActivity(*msg)

		Convey("Then the covered fields survive the round trip", func() {
			So(back.Text, ShouldEqual, original.Text)
			So(back.Value, ShouldResemble, original.Value)
			So(len(back.Attachments), ShouldEqual, 2)
			So(back.Attachments[0].ContentURL, ShouldEqual, "https://x/a.txt")
			So(back.Attachments[1].Content, ShouldEqual, "aW5saW5l")
			So(back.Attachments[1].ContentType, ShouldEqual, "text/plain")
		})
	})
}

func TestSchemaFor(t *testing.T) {
	Convey("Given repeated schema lookups for one type", t, func() {
		first := SchemaFor(activity.Mention{})
		second := SchemaFor(activity.Mention{})

		Convey("Then the schema is computed once and reused", func() {
			So(first, ShouldNotBeNil)
			So(first["type"], ShouldEqual, "object")
			// Same backing map proves the memoized entry was reused.
			So(second, ShouldEqual, first)
		})
	})
}
