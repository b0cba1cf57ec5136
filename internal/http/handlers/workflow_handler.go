package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	applog "listingdesk/internal/log"
	"listingdesk/internal/services"
	"listingdesk/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type WorkflowHandler struct {
	Workflow *services.WorkflowService
	// Posting posts single products in-process; Batch drives batch runs.
	Posting *services.PostingService
	Batch   *services.PostingService
	Stats   *services.StatsService
}

// BatchStatus reports status counts for the caller's scope.
func (h *WorkflowHandler) BatchStatus(c *fiber.Ctx) error {
	counts, err := h.Workflow.Counts(access(c))
	if err != nil {
		return fail(c, "batch.status.fail", err)
	}
	return c.JSON(counts)
}

func (h *WorkflowHandler) BatchRun(c *fiber.Ctx) error {
	res, err := h.Batch.RunBatch(c.UserContext(), access(c))
	if err != nil {
		return fail(c, "batch.run.fail", err)
	}
	applog.Audit(c, "batch.run", map[string]any{
		"processed": res.Processed, "failed": len(res.Errors), "skipped": res.Skipped,
	})
	return c.JSON(res)
}

// Post claims and posts one product through the worker script.
func (h *WorkflowHandler) Post(c *fiber.Ctx) error {
	id := c.Params("id")
	o, err := h.Posting.PostOne(c.UserContext(), access(c), id)
	if err != nil {
		if errors.Is(err, services.ErrWorker) {
			applog.Error(c, "product.post.fail", err, map[string]any{"product_id": id})
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false, "error": err.Error(), "output": o.Output,
			})
		}
		return fail(c, "product.post.fail", err)
	}
	applog.Audit(c, "product.post", map[string]any{"product_id": id, "ad_id": o.AdID})
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   o.Message,
		"ad_url":    o.AdURL,
		"ad_id":     o.AdID,
		"views":     o.Views,
		"saves":     o.Saves,
		"posted_at": o.PostedAt,
		"output":    o.Output,
	})
}

// BatchUpdate applies worker reports of the form {"updates": [...]}.
func (h *WorkflowHandler) BatchUpdate(c *fiber.Ctx) error {
	var body struct {
		Updates json.RawMessage `json:"updates"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return badRequest(c, "batch.update", "Invalid request format")
	}
	var reports []services.WorkerReport
	if len(body.Updates) == 0 || body.Updates[0] != '[' || json.Unmarshal(body.Updates, &reports) != nil {
		return badRequest(c, "batch.update", "Invalid request format")
	}
	results := h.Workflow.ApplyReports(access(c), reports)
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	applog.Audit(c, "batch.update", map[string]any{"reports": len(reports), "applied": ok})
	return c.JSON(fiber.Map{"success": true, "results": results})
}

func (h *WorkflowHandler) ResetAll(c *fiber.Ctx) error {
	updated, total, err := h.Workflow.ResetAll(access(c))
	if err != nil {
		return fail(c, "reset.all.fail", err)
	}
	applog.Audit(c, "reset.all", map[string]any{"updated": updated, "total": total})
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Reset %d products to pending", updated),
		"updated": updated,
		"total":   total,
	})
}

func (h *WorkflowHandler) ResetAllFailed(c *fiber.Ctx) error {
	updated, err := h.Workflow.ResetAllFailed(access(c))
	if err != nil {
		return fail(c, "reset.failed.fail", err)
	}
	applog.Audit(c, "reset.failed", map[string]any{"updated": updated})
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Reset %d failed products to pending", updated),
		"updated": updated,
	})
}

// ResetStatus resets the listed failed products: {"productIds": [...]}.
func (h *WorkflowHandler) ResetStatus(c *fiber.Ctx) error {
	var body struct {
		ProductIDs []string `json:"productIds"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "reset.status", "Invalid request body")
	}
	updated, err := h.Workflow.ResetFailed(access(c), body.ProductIDs)
	if err != nil {
		return fail(c, "reset.status.fail", err)
	}
	applog.Audit(c, "reset.status", map[string]any{"requested": len(body.ProductIDs), "updated": updated})
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Reset %d products to pending", updated),
		"updated": updated,
	})
}

// SetStatus moves one product along the workflow: {"productId", "status"}.
func (h *WorkflowHandler) SetStatus(c *fiber.Ctx) error {
	var body struct {
		ProductID string `json:"productId"`
		Status    string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "status.set", "Invalid request body")
	}
	to, ok := validate.Status(body.Status)
	if !ok || body.ProductID == "" {
		return badRequest(c, "status.set", "productId and a valid status are required")
	}
	p, err := h.Workflow.SetStatus(access(c), body.ProductID, to)
	if err != nil {
		return fail(c, "status.set.fail", err)
	}
	applog.Audit(c, "status.set", map[string]any{"product_id": p.ID, "status": to})
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Status changed to %s", to),
		"product": p,
	})
}

// SyncStats refreshes ad statistics from a marketplace user page: {"userUrl"}.
func (h *WorkflowHandler) SyncStats(c *fiber.Ctx) error {
	var body struct {
		UserURL string `json:"userUrl"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "stats.sync", "Invalid request body")
	}
	res, err := h.Stats.Sync(c.UserContext(), access(c), body.UserURL)
	if err != nil {
		return fail(c, "stats.sync.fail", err)
	}
	applog.Audit(c, "stats.sync", map[string]any{"updated": res.Updated, "total": res.Total})
	return c.JSON(res)
}
