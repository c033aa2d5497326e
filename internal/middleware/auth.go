package middleware

import (
	"errors"
	"strings"

	"github.com/NamanGajera/Pictora-Backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// AuthRequired validates the Bearer token and stores the authenticated
// user id in locals for downstream handlers.
func AuthRequired(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization header"})
		}

		claims, err := utils.ValidateToken(parts[1], jwtSecret)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token expired"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
