package activity

import "context"

/*
Adapter mediates between the host and the agent callback. ProcessActivity
runs onTurn inside a turn context; the returned invoke response is non-nil
only for invoke-type activities.
*/
type Adapter interface {
	ProcessActivity(ctx context.Context, identity Identity, act Activity, onTurn TurnHandler) (*InvokeResponse, error)
}

// AdapterFactory builds the per-request adapter bound to the response
// relay's sink and the turn's headers.
type AdapterFactory func(sink Sink, headers map[string]string) Adapter

/*
RelayAdapter is the host's default adapter: outbound activities go straight
to the per-request relay.
*/
type RelayAdapter struct {
	sink    Sink
	headers map[string]string
}

func NewRelayAdapter(sink Sink, headers map[string]string) *RelayAdapter {
	return &RelayAdapter{
		sink:    sink,
		headers: headers,
	}
}

func (adapter *RelayAdapter) ProcessActivity(
	ctx context.Context,
	identity Identity,
	act Activity,
	onTurn TurnHandler,
) (*InvokeResponse, error) {
	turn := NewTurnContext(act, identity, adapter.headers, adapter.sink)

	if err := onTurn(ctx, turn); err != nil {
		return turn.InvokeResponse(), err
	}

	return turn.InvokeResponse(), nil
}
