package service

import (
	"github.com/gofiber/fiber/v3"
	"github.com/spf13/viper"

	"github.com/spindlework/a2ahost/pkg/a2a"
)

/*
CardHandler is an optional agent extension.  An agent that implements it
gets the assembled card handed in and may return an adjusted copy, which is
what the client sees.  The override runs last, after the host has filled in
transports and security.
*/
type CardHandler interface {
	GetCard(initial a2a.AgentCard) a2a.AgentCard
}

// handleCard serves the discovery document at the well-known path and at
// {prefix}/v1/card.
func (srv *Server) handleCard(ctx fiber.Ctx) error {
	return ctx.JSON(srv.buildCard(ctx))
}

/*
buildCard assembles the card for one request.  The static half comes from
config; the self URL is derived from the request so the card is correct
behind any hostname the host answers on.
*/
func (srv *Server) buildCard(ctx fiber.Ctx) a2a.AgentCard {
	card := a2a.NewAgentCardFromConfig("default")

	base := ctx.Scheme() + "://" + ctx.Host() + srv.prefix

	card.URL = base
	card.PreferredTransport = a2a.TransportJSONRPC
	card.AdditionalInterfaces = []a2a.AgentInterface{
		{URL: base, Transport: a2a.TransportJSONRPC},
		{URL: base + "/v1", Transport: a2a.TransportHTTPJSON},
	}

	if viper.GetBool("server.requireAuth") {
		card.SecuritySchemes = map[string]a2a.SecurityScheme{
			"bearer": a2a.BearerSecurityScheme(),
		}
		card.Security = []map[string][]string{{"bearer": {}}}
	}

	if srv.registry != nil {
		if agent, err := srv.registry.Resolve(""); err == nil {
			if handler, ok := agent.(CardHandler); ok {
				return handler.GetCard(*card)
			}
		}
	}

	return *card
}
