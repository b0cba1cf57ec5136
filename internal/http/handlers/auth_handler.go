package handlers

import (
	"time"

	"listingdesk/internal/domain"
	"listingdesk/internal/log"
	"listingdesk/internal/services"
	"listingdesk/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	Auth          *services.AuthService
	SecureCookies bool
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   h.SecureCookies,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

// Login accepts a form post from the login page or a JSON body from API
// clients; JSON callers get JSON back instead of a redirect.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	asJSON := c.Is("json")
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_body"})
		return h.loginFailed(c, asJSON)
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": req.Email, "reason": "bad_format"})
		return h.loginFailed(c, asJSON)
	}
	if !validate.Password(req.Password) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return h.loginFailed(c, asJSON)
	}

	sid := h.ensureSID(c)
	u, err := h.Auth.Login(sid, email, req.Password)
	if err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return h.loginFailed(c, asJSON)
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	if asJSON {
		return c.JSON(fiber.Map{"success": true, "user": u})
	}
	return c.Redirect("/dashboard")
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, asJSON bool) error {
	if asJSON {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_")})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := h.ensureSID(c)
	_ = h.Auth.Logout(sid)
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.SecureCookies,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/login")
}

// Me describes the caller: its access mode and, for sessions, the user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	a := access(c)
	out := fiber.Map{"mode": a.Mode}
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil && a.Mode == domain.AccessSession {
		out["user"] = u
	}
	return c.JSON(out)
}
