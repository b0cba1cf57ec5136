package handlers

import (
	"fmt"
	"net/url"

	applog "listingdesk/internal/log"
	"listingdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the owner's page: products, status counts and the
// batch and reset actions.
type DashboardHandler struct {
	Products *services.ProductService
	Workflow *services.WorkflowService
	Batch    *services.PostingService
}

func (h *DashboardHandler) Page(c *fiber.Ctx) error {
	a := access(c)
	products, err := h.Products.List(a)
	if err != nil {
		applog.Error(c, "dashboard.products.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your products."})
	}
	counts, err := h.Workflow.Counts(a)
	if err != nil {
		applog.Error(c, "dashboard.counts.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your products."})
	}
	return render(c, "dashboard", fiber.Map{
		"Products": products,
		"Counts":   counts,
		"Flash":    c.Query("msg"),
	})
}

func (h *DashboardHandler) RunBatch(c *fiber.Ctx) error {
	res, err := h.Batch.RunBatch(c.UserContext(), access(c))
	if err != nil {
		applog.Error(c, "dashboard.batch.fail", err, nil)
		return c.Redirect("/dashboard?msg=" + url.QueryEscape("Batch run failed"))
	}
	applog.Audit(c, "batch.run", map[string]any{"processed": res.Processed, "failed": len(res.Errors), "skipped": res.Skipped})
	return c.Redirect("/dashboard?msg=" + url.QueryEscape(res.Message))
}

func (h *DashboardHandler) ResetFailed(c *fiber.Ctx) error {
	n, err := h.Workflow.ResetAllFailed(access(c))
	if err != nil {
		applog.Error(c, "dashboard.reset.fail", err, nil)
		return c.Redirect("/dashboard?msg=" + url.QueryEscape("Reset failed"))
	}
	applog.Audit(c, "reset.failed", map[string]any{"updated": n})
	return c.Redirect("/dashboard?msg=" + url.QueryEscape(fmt.Sprintf("Reset %d failed products to pending", n)))
}
