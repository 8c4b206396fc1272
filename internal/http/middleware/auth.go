package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"doccustody/internal/auth"
	"doccustody/internal/model"
)

// IdentityLocalKey is the locals key holding the authenticated model.Identity.
const IdentityLocalKey = "identity"

// Authenticate verifies an HS256 bearer token and stores the caller's identity in locals. Requests
// without a valid token fail with 401.
func Authenticate(secret []byte, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		id, err := auth.ParseToken(strings.TrimSpace(token), secret, issuer)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			return fiber.NewError(fiber.StatusUnauthorized, msg)
		}

		c.Locals(IdentityLocalKey, id)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles with 403.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		for _, r := range roles {
			if id.Role == r {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role")
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *fiber.Ctx) (model.Identity, bool) {
	id, ok := c.Locals(IdentityLocalKey).(model.Identity)
	return id, ok
}
