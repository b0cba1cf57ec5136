package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"listingdesk/internal/config"
	"listingdesk/internal/http/handlers"
	applog "listingdesk/internal/log"
	"listingdesk/internal/repos"
	"listingdesk/internal/services"
	"listingdesk/internal/storage"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := repos.SeedUser(db, cfg.SeedEmail, cfg.SeedName, cfg.SeedPassword); err != nil {
		log.Fatal(err)
	}
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo, APIKey: cfg.InternalAPIKey}
	if cfg.InternalAPIKey == "" {
		log.Printf("[warn] INTERNAL_API_KEY is empty; key access disabled, batch posting runs in-process")
	}

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		// image uploads carry several files per request
		BodyLimit: 64 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
			}
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("started", time.Now())
		return c.Next()
	})
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.BaseURL,
		AllowHeaders: "Origin, Content-Type, Accept, " + handlers.APIKeyHeader,
	}))
	app.Use(handlers.AttachUser(authSvc))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			if strings.HasPrefix(p, "/media/") {
				return true
			}
			// the batch loop calls back into /post once per product
			key := c.Get(handlers.APIKeyHeader)
			return key != "" && authSvc.Authorize(nil, key).Privileged()
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.SecureCookies,
		// API clients authenticate per request; JSON bodies cannot be posted cross-site without CORS
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || c.Is("json")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			formTok := c.FormValue("csrf")
			applog.Security(c, "csrf.fail", map[string]any{"form": formTok})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Media ----------
	if _, ok := store.(storage.Filer); ok {
		mediaDir := cfg.MediaDir
		if !filepath.IsAbs(mediaDir) {
			if abs, err := filepath.Abs(mediaDir); err == nil {
				mediaDir = abs
			}
		}
		log.Printf("[static] /media  -> %s", mediaDir)
		// Guarded media to avoid traversal
		app.Get("/media/*", func(c *fiber.Ctx) error {
			path := c.Params("*")
			rawLower := strings.ToLower(path)
			if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
				applog.Security(c, "media.traversal.block", map[string]any{"path": path})
				return c.SendStatus(fiber.StatusNotFound)
			}
			clean := filepath.Clean(path)
			if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
				applog.Security(c, "media.traversal.block", map[string]any{"path": path})
				return c.SendStatus(fiber.StatusNotFound)
			}
			return c.SendFile(filepath.Join(mediaDir, clean), true)
		})
	}

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, authSvc, store)
	handlers.MountAPI(app, authSvc, deps)

	// Auth routes (login throttled)
	authH := deps.AuthHandler
	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/dashboard") })
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			if c.Is("json") {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
			}
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	// Dashboard
	dash := app.Group("/dashboard", handlers.RequireUser(authSvc))
	dash.Get("/", deps.DashboardHandler.Page)
	dash.Post("/batch", deps.DashboardHandler.RunBatch)
	dash.Post("/reset-failed", deps.DashboardHandler.ResetFailed)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
