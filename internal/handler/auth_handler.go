package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/homereel/api/internal/auth"
	"github.com/homereel/api/internal/middleware"
)

// AuthHandler answers the gateway's ForwardAuth subrequests. The gateway
// strips the Authorization header from upstream traffic and replaces it
// with the X-User-* headers set here.
type AuthHandler struct {
	verifier  auth.TokenVerifier
	jwtSecret string
}

func NewAuthHandler(verifier auth.TokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		verifier:  verifier,
		jwtSecret: jwtSecret,
	}
}

// Verify handles GET /auth/verify. Responds 200 with identity headers
// when the bearer token checks out, 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get("Authorization"))
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	// JWKS tokens are the normal path; the shared-secret HMAC scheme
	// remains accepted for tokens minted before the Zitadel migration.
	if h.verifier != nil {
		if claims, err := h.verifier.Validate(token); err == nil {
			c.Set(middleware.HeaderUserID, claims.UserID)
			c.Set(middleware.HeaderUserEmail, claims.Email)
			c.Set(middleware.HeaderUserName, claims.Name)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	if h.jwtSecret != "" {
		if claims, err := auth.ValidateLegacyToken(token, h.jwtSecret); err == nil {
			c.Set(middleware.HeaderUserID, claims.UserID)
			c.Set(middleware.HeaderUserEmail, claims.Email)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	return c.SendStatus(fiber.StatusUnauthorized)
}
