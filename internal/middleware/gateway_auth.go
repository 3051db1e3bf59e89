package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/homereel/api/pkg/response"
)

// Identity headers set by the gateway's ForwardAuth subrequest and
// consumed here when the service runs behind Traefik.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// GatewayAuthMiddleware trusts the identity headers stamped by the gateway.
// Only usable when the service is not reachable except through it.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get(HeaderUserEmail))
		c.Locals("name", c.Get(HeaderUserName))

		return c.Next()
	}
}
