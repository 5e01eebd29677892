package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/internal/auth"
	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

const (
	// Locals keys set on successful authentication.
	LocalsUser  = "user"
	LocalsToken = "token"
)

// RequireAuth extracts the bearer token, validates it against the user's
// active token list and attaches the resolved user and the matched token
// to the request. Every failure mode is a 401.
func RequireAuth(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "No token provided")
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid token format")
		}

		user, token, err := tokens.Validate(c.Context(), parts[1])
		if err != nil {
			logger.SecurityLogger.Warn("Token validation failed", zap.Error(err))
			return unauthorized(c, "Invalid token")
		}

		c.Locals(LocalsUser, user)
		c.Locals(LocalsToken, token)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}
