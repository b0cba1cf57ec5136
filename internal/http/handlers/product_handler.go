package handlers

import (
	"errors"
	"strings"

	applog "listingdesk/internal/log"
	"listingdesk/internal/services"
	"listingdesk/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductHandler struct {
	Products *services.ProductService
	Store    storage.Store
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	out, err := h.Products.List(access(c))
	if err != nil {
		return fail(c, "products.list.fail", err)
	}
	return c.JSON(out)
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	p, err := h.Products.Get(access(c), c.Params("id"))
	if err != nil {
		return fail(c, "products.get.fail", err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "products.create", "Invalid request body")
	}
	p, err := h.Products.Create(access(c), in)
	if err != nil {
		return fail(c, "products.create.fail", err)
	}
	applog.Audit(c, "products.create", map[string]any{"product_id": p.ID, "article_number": p.ArticleNumber})
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "products.update", "Invalid request body")
	}
	p, err := h.Products.Update(access(c), c.Params("id"), in)
	if err != nil {
		return fail(c, "products.update.fail", err)
	}
	applog.Audit(c, "products.update", map[string]any{"product_id": p.ID})
	return c.JSON(p)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Products.Delete(access(c), id); err != nil {
		return fail(c, "products.delete.fail", err)
	}
	applog.Audit(c, "products.delete", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"success": true})
}

// Image serves the first stored image of a product: the file itself for the
// local store, a redirect for the blob store.
func (h *ProductHandler) Image(c *fiber.Ctx) error {
	img, err := h.Products.FirstImage(c.UserContext(), access(c), c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No image found"})
	}
	if err != nil {
		return fail(c, "products.image.fail", err)
	}
	if f, ok := h.Store.(storage.Filer); ok && strings.HasPrefix(img, storage.MediaPrefix) {
		full, err := f.FilePath(img)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No image found"})
		}
		err = c.SendFile(full)
		c.Set(fiber.HeaderContentType, storage.ContentType(full))
		return err
	}
	return c.Redirect(img)
}

func (h *ProductHandler) Images(c *fiber.Ctx) error {
	imgs, err := h.Products.Images(c.UserContext(), access(c), c.Params("id"))
	if err != nil {
		return fail(c, "products.images.fail", err)
	}
	return c.JSON(fiber.Map{"images": imgs})
}

// Upload takes multipart "files" (or "files[]") plus "articleNumber".
func (h *ProductHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "products.upload", "Expected multipart form data")
	}
	files := append(form.File["files"], form.File["files[]"]...)
	var art string
	if v := form.Value["articleNumber"]; len(v) > 0 {
		art = v[0]
	}
	res, err := h.Products.Upload(c.UserContext(), art, files)
	if err != nil {
		return fail(c, "products.upload.fail", err)
	}
	applog.Audit(c, "products.upload", map[string]any{"article_number": art, "count": res.Count, "skipped": len(res.Skipped)})
	return c.JSON(res)
}

// DeleteImage takes {"imagePath"} or {"articleNumber", "filename"}.
func (h *ProductHandler) DeleteImage(c *fiber.Ctx) error {
	var body struct {
		ImagePath     string `json:"imagePath"`
		ArticleNumber string `json:"articleNumber"`
		Filename      string `json:"filename"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "products.image.delete", "Invalid request body")
	}
	if err := h.Products.DeleteImage(c.UserContext(), body.ImagePath, body.ArticleNumber, body.Filename); err != nil {
		return fail(c, "products.image.delete.fail", err)
	}
	applog.Audit(c, "products.image.delete", map[string]any{
		"path": body.ImagePath, "article_number": body.ArticleNumber, "filename": body.Filename,
	})
	return c.JSON(fiber.Map{"success": true})
}

func (h *ProductHandler) Export(c *fiber.Ctx) error {
	item, err := h.Products.Export(access(c), c.Params("id"))
	if err != nil {
		return fail(c, "products.export.fail", err)
	}
	return c.JSON(item)
}

func (h *ProductHandler) Pending(c *fiber.Ctx) error {
	items, err := h.Products.Pending(access(c), c.Query("user_id"))
	if err != nil {
		return fail(c, "products.pending.fail", err)
	}
	return c.JSON(items)
}

func (h *ProductHandler) Spreadsheet(c *fiber.Ctx) error {
	buf, err := h.Products.Spreadsheet(access(c))
	if err != nil {
		return fail(c, "products.spreadsheet.fail", err)
	}
	c.Attachment("products.xlsx")
	c.Set(fiber.HeaderContentType, xlsxMIME)
	return c.Send(buf.Bytes())
}
