package handlers

import (
	"listingdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MountAPI registers the /api routes. Category reads are public; everything
// else passes the Gate. Fixed product paths come before /products/:id.
func MountAPI(app fiber.Router, auth *services.AuthService, d *Deps) {
	gate := Gate(auth)
	api := app.Group("/api")

	api.Get("/me", gate, d.AuthHandler.Me)

	api.Get("/categories", d.CategoryHandler.Tree)
	api.Post("/categories", gate, d.CategoryHandler.Import)
	api.Get("/categories/with-fields", d.CategoryHandler.FieldsTree)
	api.Get("/categories/:id/fields", d.CategoryHandler.Fields)
	api.Get("/categories/:id/ebay-fields", d.CategoryHandler.EbayFields)

	p, w := d.ProductHandler, d.WorkflowHandler
	api.Get("/products", gate, p.List)
	api.Post("/products", gate, p.Create)
	api.Post("/products/upload", gate, p.Upload)
	api.Post("/products/delete-image", gate, p.DeleteImage)
	api.Get("/products/pending", gate, p.Pending)
	api.Get("/products/spreadsheet", gate, p.Spreadsheet)
	api.Get("/products/export/:id", gate, p.Export)

	api.Get("/products/batch-post", gate, w.BatchStatus)
	api.Post("/products/batch-post", gate, w.BatchRun)
	api.Post("/products/batch-update", gate, w.BatchUpdate)
	api.Post("/products/reset-all", gate, w.ResetAll)
	api.Post("/products/reset-all-failed", gate, w.ResetAllFailed)
	api.Post("/products/reset-status", gate, w.ResetStatus)
	api.Post("/products/set-status", gate, w.SetStatus)
	api.Post("/products/sync-stats", gate, w.SyncStats)

	api.Get("/products/:id", gate, p.Get)
	api.Put("/products/:id", gate, p.Update)
	api.Delete("/products/:id", gate, p.Delete)
	api.Get("/products/:id/image", gate, p.Image)
	api.Get("/products/:id/images", gate, p.Images)
	api.Post("/products/:id/post", gate, w.Post)
}
