package handlers

import (
	"encoding/json"

	applog "listingdesk/internal/log"
	"listingdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	Categories *services.CategoryService
}

func (h *CategoryHandler) Tree(c *fiber.Ctx) error {
	tree, err := h.Categories.Tree()
	if err != nil {
		return fail(c, "categories.tree.fail", err)
	}
	return c.JSON(tree)
}

// FieldsTree returns only categories with fields plus their ancestors.
func (h *CategoryHandler) FieldsTree(c *fiber.Ctx) error {
	tree, err := h.Categories.FieldsTree()
	if err != nil {
		return fail(c, "categories.fields_tree.fail", err)
	}
	return c.JSON(tree)
}

func (h *CategoryHandler) Fields(c *fiber.Ctx) error {
	out, err := h.Categories.Fields(c.Params("id"))
	if err != nil {
		return fail(c, "categories.fields.fail", err)
	}
	return c.JSON(out)
}

func (h *CategoryHandler) EbayFields(c *fiber.Ctx) error {
	out, err := h.Categories.EbayFields(c.Params("id"))
	if err != nil {
		return fail(c, "categories.ebay_fields.fail", err)
	}
	return c.JSON(out)
}

// Import upserts a bulk category payload of the form {"categories": [...]}.
func (h *CategoryHandler) Import(c *fiber.Ctx) error {
	var body struct {
		Categories json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return badRequest(c, "categories.import", "Invalid categories data")
	}
	var items []services.CategoryInput
	if len(body.Categories) == 0 || body.Categories[0] != '[' || json.Unmarshal(body.Categories, &items) != nil {
		return badRequest(c, "categories.import", "Invalid categories data")
	}
	res := h.Categories.Import(items)
	applog.Audit(c, "categories.import", map[string]any{
		"created": res.Created, "updated": res.Updated, "skipped": res.Skipped, "errors": len(res.Errors),
	})
	return c.JSON(res)
}
