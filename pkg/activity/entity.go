package activity

/*
Entity is a typed metadata item attached to an activity.  The protocol
mapping serializes each entity into a data part whose metadata is the JSON
schema of the entity's concrete type, so implementations should be plain
structs with JSON tags.
*/
type Entity interface {
	EntityType() string
}

// StreamInfoType identifies the well-known streaming bookkeeping entity,
// which the mapping deliberately omits from protocol output.
const StreamInfoType = "streaminfo"

/*
StreamInfo is attached by streaming-aware agents to sequence their partial
messages. It never crosses the protocol boundary.
*/
type StreamInfo struct {
	StreamID       string `json:"streamId,omitempty"`
	StreamType     string `json:"streamType,omitempty"`
	StreamSequence int    `json:"streamSequence,omitempty"`
}

func (StreamInfo) EntityType() string { return StreamInfoType }

/*
Mention marks a reference to another account inside the activity text.
*/
type Mention struct {
	Mentioned ChannelAccount `json:"mentioned"`
	Text      string         `json:"text,omitempty"`
}

func (Mention) EntityType() string { return "mention" }
