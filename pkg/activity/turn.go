package activity

import "context"

// TurnHandler is the agent callback invoked once per inbound activity.
type TurnHandler func(ctx context.Context, turn *TurnContext) error

/*
Agent is the user-supplied callback the host routes turns to. OnTurn should
call turn.SendActivity zero or more times and return when the turn is done.
*/
type Agent interface {
	OnTurn(ctx context.Context, turn *TurnContext) error
}

// Sink receives an outbound activity. It reports false when the consumer is
// gone and the activity was discarded.
type Sink func(Activity) bool

/*
TurnContext carries everything an agent needs during one turn: the inbound
activity, the caller identity, the per-turn headers, and the path outbound
activities travel back on.
*/
type TurnContext struct {
	Activity Activity
	Identity Identity
	Headers  map[string]string

	sink           Sink
	sent           int
	invokeResponse *InvokeResponse
}

func NewTurnContext(act Activity, identity Identity, headers map[string]string, sink Sink) *TurnContext {
	return &TurnContext{
		Activity: act,
		Identity: identity,
		Headers:  headers,
		sink:     sink,
	}
}

/*
SendActivity hands an outbound activity to the host. Reply routing fields
are stamped from the inbound activity when the agent left them empty.
invokeResponse activities are captured as the turn's invoke result instead
of being forwarded.
*/
func (turn *TurnContext) SendActivity(act Activity) error {
	if act.ChannelID == "" {
		act.ChannelID = ChannelID
	}

	if act.Conversation == nil {
		act.Conversation = turn.Activity.Conversation
	}

	if act.From == nil {
		act.From = turn.Activity.Recipient
	}

	if act.Recipient == nil {
		act.Recipient = turn.Activity.From
	}

	if act.DeliveryMode == "" {
		act.DeliveryMode = turn.Activity.DeliveryMode
	}

	if act.Type == TypeInvokeResponse {
		if response, ok := act.Value.(*InvokeResponse); ok {
			turn.invokeResponse = response
		} else {
			turn.invokeResponse = &InvokeResponse{Status: 200, Body: act.Value}
		}

		return nil
	}

	if turn.sink != nil {
		turn.sink(act)
	}

	turn.sent++

	return nil
}

// SendText is a convenience for the common single text reply.
func (turn *TurnContext) SendText(text string) error {
	return turn.SendActivity(turn.Activity.Reply(text))
}

// Sent returns how many activities the agent produced this turn.
func (turn *TurnContext) Sent() int {
	return turn.sent
}

// InvokeResponse returns the captured invoke result, if any.
func (turn *TurnContext) InvokeResponse() *InvokeResponse {
	return turn.invokeResponse
}
