package activity

// ChannelID is the channel identifier stamped on every activity that crosses
// the protocol boundary.
const ChannelID = "A2A"

// Activity types the host routes on.
const (
	TypeMessage           = "message"
	TypeInvoke            = "invoke"
	TypeInvokeResponse    = "invokeResponse"
	TypeEndOfConversation = "endOfConversation"
)

// Delivery modes. Stream relays replies as they are produced; ExpectReplies
// buffers them into a single blocking response.
const (
	DeliveryModeStream        = "stream"
	DeliveryModeExpectReplies = "expectReplies"
)

// Input hints an agent attaches to its last message of a turn.
const (
	InputHintAcceptingInput = "acceptingInput"
	InputHintExpectingInput = "expectingInput"
	InputHintIgnoringInput  = "ignoringInput"
)

// End-of-conversation codes.
const (
	CodeCompletedSuccessfully = "completedSuccessfully"
	CodeUserCancelled         = "userCancelled"
	CodeError                 = "error"
)

/*
Activity is the neutral conversational message exchanged with the agent
callback.  Only the projection consumed by the protocol mapping lives here;
agents are free to stuff richer payloads into Value and Entities.
*/
type Activity struct {
	Type         string               `json:"type"`
	ID           string               `json:"id,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	DeliveryMode string               `json:"deliveryMode,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	From         *ChannelAccount      `json:"from,omitempty"`
	Recipient    *ChannelAccount      `json:"recipient,omitempty"`
	Text         string               `json:"text,omitempty"`
	Value        any                  `json:"value,omitempty"`
	Attachments  []Attachment         `json:"attachments,omitempty"`
	Entities     []Entity             `json:"entities,omitempty"`
	InputHint    string               `json:"inputHint,omitempty"`
	Code         string               `json:"code,omitempty"`
}

// ConversationAccount groups related activities; its ID carries the task's
// context id across the boundary.
type ConversationAccount struct {
	ID string `json:"id"`
}

type ChannelAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

/*
Attachment carries a file by reference (ContentURL) or inline (Content,
a string for the purposes of the mapping).
*/
type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	ContentURL  string `json:"contentUrl,omitempty"`
	Content     any    `json:"content,omitempty"`
	Name        string `json:"name,omitempty"`
}

func NewMessage(text string) Activity {
	return Activity{
		Type:      TypeMessage,
		ChannelID: ChannelID,
		Text:      text,
	}
}

func NewEndOfConversation(code string) Activity {
	return Activity{
		Type:      TypeEndOfConversation,
		ChannelID: ChannelID,
		Code:      code,
	}
}

// ExpectsInput reports whether the activity signals that the agent is
// waiting for the user before the conversation can progress.
func (act *Activity) ExpectsInput() bool {
	return act.InputHint == InputHintExpectingInput ||
		act.InputHint == InputHintAcceptingInput
}

// Reply derives an outbound activity addressed back along the path the
// inbound one arrived on.
func (act *Activity) Reply(text string) Activity {
	reply := Activity{
		Type:         TypeMessage,
		ChannelID:    ChannelID,
		DeliveryMode: act.DeliveryMode,
		Conversation: act.Conversation,
		From:         act.Recipient,
		Recipient:    act.From,
		Text:         text,
	}

	return reply
}
