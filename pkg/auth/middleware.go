package auth

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/spindlework/a2ahost/pkg/activity"
)

// identityKey is where the middleware stashes the caller identity for the
// request handlers.
const identityKey = "a2ahost.identity"

/*
Middleware builds the fiber auth handler.  When requireAuth is set, every
request outside the exempt list must carry a valid bearer token; otherwise
turns run as the anonymous identity.  The agent card and health endpoints
stay reachable either way, because discovery is how clients learn which
security scheme to use in the first place.
*/
func Middleware(service *Service, requireAuth bool, exempt ...string) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		for _, path := range exempt {
			if ctx.Path() == path || strings.HasPrefix(ctx.Path(), path+"/") {
				Store(ctx, activity.Anonymous())
				return ctx.Next()
			}
		}

		header := ctx.Get("Authorization")

		if header == "" {
			if requireAuth {
				return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "missing authorization header",
				})
			}

			Store(ctx, activity.Anonymous())
			return ctx.Next()
		}

		claims, err := service.Authenticate(header)

		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		identity := activity.Identity{
			Name:   "authenticated",
			Claims: claims,
			Token:  strings.TrimPrefix(header, "Bearer "),
		}

		if sub, ok := claims["sub"].(string); ok && sub != "" {
			identity.Name = sub
		}

		Store(ctx, identity)

		return ctx.Next()
	}
}

// Store saves the caller identity on the request context.
func Store(ctx fiber.Ctx, identity activity.Identity) {
	ctx.Locals(identityKey, identity)
}

// IdentityFrom returns the caller identity the middleware resolved, or the
// anonymous identity when none was stored.
func IdentityFrom(ctx fiber.Ctx) activity.Identity {
	if identity, ok := ctx.Locals(identityKey).(activity.Identity); ok {
		return identity
	}

	return activity.Anonymous()
}
