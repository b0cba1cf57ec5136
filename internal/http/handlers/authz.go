package handlers

import (
	"listingdesk/internal/domain"
	applog "listingdesk/internal/log"
	"listingdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the shared secret of privileged callers.
const APIKeyHeader = "x-api-key"

// AttachUser puts the session user, if any, into Locals("user").
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

// Gate admits a session user or a caller presenting the shared key, and
// stores the resulting domain.Access in Locals("access").
func Gate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := c.Locals("user").(*domain.User)
		key := c.Get(APIKeyHeader)
		if key == "" {
			key = c.Query("api_key")
		}
		a := auth.Authorize(user, key)
		if !a.Allowed() {
			applog.Security(c, "access.denied", map[string]any{"key_present": key != ""})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		c.Locals("access", a)
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		c.Locals("access", domain.Access{Mode: domain.AccessSession, UserID: u.ID})
		return c.Next()
	}
}

func access(c *fiber.Ctx) domain.Access {
	a, _ := c.Locals("access").(domain.Access)
	return a
}
