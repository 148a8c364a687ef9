package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// DevAuthRequired guards the developer endpoints with a shared key
// passed in the X-Dev-Key header.
func DevAuthRequired(devKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if devKey == "" {
			slog.Warn("Dev endpoints disabled: no dev key configured",
				slog.String("type", "http"),
				slog.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		supplied := c.Get("X-Dev-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(devKey)) != 1 {
			slog.Warn("Dev auth rejected",
				slog.String("type", "http"),
				slog.String("path", c.Path()),
				slog.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return c.Next()
	}
}
