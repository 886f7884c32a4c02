package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// BatchSecretHeader carries the shared secret of batch triggers.
const BatchSecretHeader = "X-Batch-Secret"

// BatchSecretMiddleware admits requests whose shared secret matches the bcrypt hash.
// An empty hash disables the protected routes.
func BatchSecretMiddleware(secretHash string) fiber.Handler {
	hash := []byte(strings.TrimSpace(secretHash))
	return func(c *fiber.Ctx) error {
		if len(hash) == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Batch triggers are not configured"})
		}

		secret := strings.TrimSpace(c.Get(BatchSecretHeader))
		if secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing batch secret"})
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid batch secret"})
		}

		return c.Next()
	}
}
