// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// PlayerIDKey is the Locals key holding the authenticated player id.
const PlayerIDKey = "player_id"

// UserContextConfig customizes UserContextMiddleware.
type UserContextConfig struct {
	// Unauthorized writes the response for a request without X-User-ID.
	Unauthorized fiber.Handler
}

// UserContextMiddleware extracts the player identity set by Gateway. Ranked sessions are
// scoped per player, so a request without X-User-ID is rejected.
func UserContextMiddleware(config ...UserContextConfig) fiber.Handler {
	cfg := UserContextConfig{Unauthorized: missingUser}
	if len(config) > 0 && config[0].Unauthorized != nil {
		cfg.Unauthorized = config[0].Unauthorized
	}

	return func(c *fiber.Ctx) error {
		// the id outlives the request as a store key, so copy it out of the header buffer
		playerID := utils.CopyString(strings.TrimSpace(c.Get("X-User-ID")))
		if playerID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return cfg.Unauthorized(c)
		}

		c.Locals(PlayerIDKey, playerID)
		return c.Next()
	}
}

func missingUser(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "missing X-User-ID: request must come through the gateway with auth context",
	})
}

// PlayerID returns the player id stored by UserContextMiddleware.
func PlayerID(c *fiber.Ctx) string {
	id, _ := c.Locals(PlayerIDKey).(string)
	return id
}
