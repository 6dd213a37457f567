package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func inboundMessage() Activity {
	act := NewMessage("hello")
	act.DeliveryMode = DeliveryModeStream
	act.Conversation = &ConversationAccount{ID: "c1"}
	act.From = &ChannelAccount{ID: "caller"}
	act.Recipient = &ChannelAccount{ID: "agent"}

	return act
}

func TestSendActivityStampsReplyRouting(t *testing.T) {
	var sent []Activity

	turn := NewTurnContext(inboundMessage(), Anonymous(), nil, func(act Activity) bool {
		sent = append(sent, act)
		return true
	})

	assert.NoError(t, turn.SendActivity(Activity{Type: TypeMessage, Text: "reply"}))
	assert.Len(t, sent, 1)
	assert.Equal(t, ChannelID, sent[0].ChannelID)
	assert.Equal(t, "c1", sent[0].Conversation.ID)
	assert.Equal(t, "agent", sent[0].From.ID)
	assert.Equal(t, "caller", sent[0].Recipient.ID)
	assert.Equal(t, DeliveryModeStream, sent[0].DeliveryMode)
	assert.Equal(t, 1, turn.Sent())
}

func TestSendActivityCapturesInvokeResponse(t *testing.T) {
	var sent []Activity

	turn := NewTurnContext(inboundMessage(), Anonymous(), nil, func(act Activity) bool {
		sent = append(sent, act)
		return true
	})

	assert.NoError(t, turn.SendActivity(Activity{
		Type:  TypeInvokeResponse,
		Value: map[string]any{"answer": 42},
	}))

	// Invoke responses complete the turn; they never reach the relay.
	assert.Empty(t, sent)
	assert.NotNil(t, turn.InvokeResponse())
	assert.Equal(t, 200, turn.InvokeResponse().Status)
}

func TestSendTextRepliesAlongInboundPath(t *testing.T) {
	var sent []Activity

	turn := NewTurnContext(inboundMessage(), Anonymous(), nil, func(act Activity) bool {
		sent = append(sent, act)
		return true
	})

	assert.NoError(t, turn.SendText("echo"))
	assert.Len(t, sent, 1)
	assert.Equal(t, "echo", sent[0].Text)
	assert.Equal(t, TypeMessage, sent[0].Type)
}

func TestRelayAdapterRunsTurn(t *testing.T) {
	var sent []Activity

	adapter := NewRelayAdapter(func(act Activity) bool {
		sent = append(sent, act)
		return true
	}, map[string]string{"X-Trace": "t1"})

	response, err := adapter.ProcessActivity(
		context.Background(),
		Anonymous(),
		inboundMessage(),
		func(ctx context.Context, turn *TurnContext) error {
			assert.Equal(t, "t1", turn.Headers["X-Trace"])
			return turn.SendText("done")
		},
	)

	assert.NoError(t, err)
	assert.Nil(t, response)
	assert.Len(t, sent, 1)
}

func TestExpectsInput(t *testing.T) {
	act := NewMessage("pick one")

	assert.False(t, act.ExpectsInput())

	act.InputHint = InputHintExpectingInput
	assert.True(t, act.ExpectsInput())

	act.InputHint = InputHintIgnoringInput
	assert.False(t, act.ExpectsInput())
}
