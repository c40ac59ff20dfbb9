package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber.Ctx locals key holding the authenticated user id.
const UserIDKey = "userID"

// Middleware validates the bearer token and stores the authenticated user id
// in the request locals. The token is accepted either as an Authorization
// header or, for websocket upgrades where browsers cannot set headers, as a
// "token" query parameter.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
