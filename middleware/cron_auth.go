// middleware/cron_auth.go
package middleware

import (
	"crypto/subtle"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CronAuthMiddleware validates the shared-secret bearer token on the cron
// and admin surfaces (/check-competitions, /reset-competition, /admin/...).
func CronAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("CRON_SECRET")
	if expectedToken == "" {
		log.Fatal("CRON_SECRET is not set, admin/cron endpoints cannot be authenticated")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("[CRON_AUTH] missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("[CRON_AUTH] invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization token",
			})
		}
		return c.Next()
	}
}
