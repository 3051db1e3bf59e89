package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/homereel/api/internal/auth"
	"github.com/homereel/api/pkg/response"
)

// AuthMiddleware authenticates API requests when the service runs without
// the gateway in front of it. JWKS tokens are tried first; the shared-secret
// HMAC scheme remains accepted for tokens minted before the Zitadel migration.
type AuthMiddleware struct {
	verifier  auth.TokenVerifier
	jwtSecret string
}

// NewAuthMiddleware creates auth middleware with JWKS verification only
func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// NewAuthMiddlewareWithFallback creates auth middleware accepting both JWKS and legacy HMAC tokens
func NewAuthMiddlewareWithFallback(verifier auth.TokenVerifier, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		jwtSecret: jwtSecret,
	}
}

// NewLegacyAuthMiddleware creates auth middleware using only HMAC signing, for tests and dev
func NewLegacyAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Authenticate validates the bearer token and stores the caller identity in locals
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get("Authorization"))
		if !ok {
			return response.Unauthorized(c, "Missing or malformed authorization header")
		}

		if m.verifier != nil {
			if claims, err := m.verifier.Validate(token); err == nil {
				c.Locals("userId", claims.UserID)
				c.Locals("email", claims.Email)
				c.Locals("name", claims.Name)
				c.Locals("claims", claims)
				return c.Next()
			}
		}

		if m.jwtSecret != "" {
			if claims, err := auth.ValidateLegacyToken(token, m.jwtSecret); err == nil {
				c.Locals("userId", claims.UserID)
				c.Locals("email", claims.Email)
				c.Locals("claims", claims)
				return c.Next()
			}
		}

		if m.verifier == nil && m.jwtSecret == "" {
			return response.Unauthorized(c, "Authentication not configured")
		}
		return response.Unauthorized(c, "Invalid or expired token")
	}
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}

// GetUserEmail extracts the authenticated user email from the request context
func GetUserEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals("email").(string); ok {
		return email
	}
	return ""
}
