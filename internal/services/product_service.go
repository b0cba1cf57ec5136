package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
	"listingdesk/internal/storage"
	"listingdesk/internal/validate"
)

// Export defaults for products that leave these blank.
const (
	DefaultCondition      = "Gebruikt"
	DefaultDeliveryOption = "Ophalen of Verzenden"
)

type ProductService struct {
	Products *repos.ProductRepo
	Cats     *repos.CategoryRepo
	Store    storage.Store
	BaseURL  string
	APIKey   string
}

// ProductInput carries create and update payloads. Nil fields are left
// unchanged on update.
type ProductInput struct {
	UserID         *string             `json:"userId"`
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	Price          decimal.NullDecimal `json:"price"`
	ArticleNumber  *string             `json:"articleNumber"`
	CategoryID     *string             `json:"categoryId"`
	CategoryFields *domain.FieldValues `json:"categoryFields"`
	EbayFields     *domain.FieldValues `json:"ebayFields"`
	Platforms      []string            `json:"platforms"`
	Condition      *string             `json:"condition"`
	DeliveryOption *string             `json:"deliveryOption"`
	Location       *string             `json:"location"`
}

func (s *ProductService) List(a domain.Access) ([]domain.Product, error) {
	return s.Products.List(a.Owner())
}

// Get returns a product visible to a. Products of other owners are reported
// as not found.
func (s *ProductService) Get(a domain.Access, id string) (domain.Product, error) {
	p, err := s.Products.Get(id)
	if err != nil {
		return domain.Product{}, notFound(err)
	}
	if !a.Owns(p.UserID) {
		return domain.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *ProductService) Create(a domain.Access, in ProductInput) (domain.Product, error) {
	owner := a.Owner()
	if a.Privileged() {
		if in.UserID == nil || strings.TrimSpace(*in.UserID) == "" {
			return domain.Product{}, fmt.Errorf("%w: userId is required", ErrValidation)
		}
		owner = strings.TrimSpace(*in.UserID)
	}
	if owner == "" {
		return domain.Product{}, ErrUnauthorized
	}
	if in.Title == nil || in.ArticleNumber == nil || !in.Price.Valid {
		return domain.Product{}, fmt.Errorf("%w: title, price and articleNumber are required", ErrValidation)
	}

	p := domain.Product{
		ID:        uuid.NewString(),
		UserID:    owner,
		Platforms: domain.Platforms{domain.PlatformMarktplaats},
		Status:    domain.StatusPending,
	}
	if err := s.apply(&p, in); err != nil {
		return domain.Product{}, err
	}
	if err := s.Products.Create(p); err != nil {
		return domain.Product{}, err
	}
	return s.Products.Get(p.ID)
}

func (s *ProductService) Update(a domain.Access, id string, in ProductInput) (domain.Product, error) {
	p, err := s.Get(a, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.apply(&p, in); err != nil {
		return domain.Product{}, err
	}
	if err := s.Products.Update(p); err != nil {
		return domain.Product{}, err
	}
	return s.Products.Get(p.ID)
}

// Delete removes the record only; stored images stay with the article number.
func (s *ProductService) Delete(a domain.Access, id string) error {
	if _, err := s.Get(a, id); err != nil {
		return err
	}
	return s.Products.Delete(id)
}

func (s *ProductService) apply(p *domain.Product, in ProductInput) error {
	if in.Title != nil {
		t, ok := validate.Title(*in.Title)
		if !ok {
			return fmt.Errorf("%w: title", ErrValidation)
		}
		p.Title = t
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price.Valid {
		if !validate.Price(in.Price.Decimal) {
			return fmt.Errorf("%w: price", ErrValidation)
		}
		p.Price = in.Price.Decimal
	}
	if in.ArticleNumber != nil {
		art, ok := validate.ArticleNumber(*in.ArticleNumber)
		if !ok {
			return fmt.Errorf("%w: articleNumber", ErrValidation)
		}
		p.ArticleNumber = art
	}
	if in.CategoryID != nil {
		p.CategoryID = nil
		if id := strings.TrimSpace(*in.CategoryID); id != "" {
			if _, err := s.Cats.Get(id); err != nil {
				if notFound(err) == ErrNotFound {
					return fmt.Errorf("%w: unknown category %s", ErrValidation, id)
				}
				return err
			}
			p.CategoryID = &id
		}
	}
	if in.CategoryFields != nil {
		p.CategoryFields = *in.CategoryFields
	}
	if in.EbayFields != nil {
		p.EbayFields = *in.EbayFields
	}
	if in.Platforms != nil {
		pl, ok := validate.Platforms(in.Platforms)
		if !ok {
			return fmt.Errorf("%w: platforms", ErrValidation)
		}
		p.Platforms = pl
	}
	if in.Condition != nil {
		p.Condition = strings.TrimSpace(*in.Condition)
	}
	if in.DeliveryOption != nil {
		p.DeliveryOption = strings.TrimSpace(*in.DeliveryOption)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	return nil
}

// Images lists the stored images of a product's article number.
func (s *ProductService) Images(ctx context.Context, a domain.Access, id string) ([]string, error) {
	p, err := s.Get(a, id)
	if err != nil {
		return nil, err
	}
	return s.Store.List(ctx, p.ArticleNumber)
}

// FirstImage returns the first stored image, or storage.ErrNotFound.
func (s *ProductService) FirstImage(ctx context.Context, a domain.Access, id string) (string, error) {
	imgs, err := s.Images(ctx, a, id)
	if err != nil {
		return "", err
	}
	if len(imgs) == 0 {
		return "", storage.ErrNotFound
	}
	return imgs[0], nil
}

type UploadResult struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Count   int      `json:"count"`
	Skipped []string `json:"skipped,omitempty"`
}

// Upload stores image files under an article number. Files with another
// extension or above the size cap are skipped, as are files the store
// rejects; it fails only when nothing was stored.
func (s *ProductService) Upload(ctx context.Context, articleNumber string, files []*multipart.FileHeader) (UploadResult, error) {
	art, ok := validate.ArticleNumber(articleNumber)
	if !ok {
		return UploadResult{}, fmt.Errorf("%w: article number is required", ErrValidation)
	}
	if len(files) == 0 {
		return UploadResult{}, fmt.Errorf("%w: no files provided", ErrValidation)
	}
	res := UploadResult{Files: []string{}}
	for _, fh := range files {
		if !storage.IsImage(fh.Filename) || fh.Size > storage.MaxUploadSize {
			res.Skipped = append(res.Skipped, fh.Filename)
			continue
		}
		path, err := s.store(ctx, art, fh)
		if err != nil {
			res.Skipped = append(res.Skipped, fh.Filename)
			continue
		}
		res.Files = append(res.Files, strings.TrimPrefix(path, storage.MediaPrefix))
	}
	if len(res.Files) == 0 {
		return res, fmt.Errorf("%w: no valid files uploaded", ErrValidation)
	}
	res.Success = true
	res.Count = len(res.Files)
	return res, nil
}

func (s *ProductService) store(ctx context.Context, art string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:6], strings.ToLower(filepath.Ext(fh.Filename)))
	return s.Store.Upload(ctx, f, art, name)
}

// DeleteImage removes one image, addressed by its full path or URL or by
// article number plus file name. A missing image is not an error.
func (s *ProductService) DeleteImage(ctx context.Context, imagePath, articleNumber, filename string) error {
	if imagePath == "" {
		if articleNumber == "" || filename == "" {
			return fmt.Errorf("%w: image path or articleNumber/filename is required", ErrValidation)
		}
		imagePath = storage.MediaPrefix + articleNumber + "/" + filename
	}
	err := s.Store.Delete(ctx, imagePath, articleNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil && !strings.HasPrefix(imagePath, "http") {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}

// ExportItem is the worker-facing shape of one product.
type ExportItem struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Price           string         `json:"price"`
	Location        string         `json:"location"`
	Photos          []string       `json:"photos"`
	PhotoAPIURL     string         `json:"photo_api_url"`
	ArticleNumber   string         `json:"article_number"`
	Condition       string         `json:"condition"`
	DeliveryMethods []string       `json:"delivery_methods"`
	DeliveryOption  string         `json:"delivery_option"`
	CategoryPath    *string        `json:"category_path"`
	CategoryFields  map[string]any `json:"category_fields"`
	Platforms       []string       `json:"platforms"`
	EbayFields      map[string]any `json:"ebay_fields,omitempty"`
}

func (s *ProductService) Export(a domain.Access, id string) (ExportItem, error) {
	p, err := s.Get(a, id)
	if err != nil {
		return ExportItem{}, err
	}
	return s.export(p, map[string]domain.FieldList{})
}

// Pending exports pending products oldest first. A privileged caller may
// narrow to one owner with userID; a session caller always sees its own.
func (s *ProductService) Pending(a domain.Access, userID string) ([]ExportItem, error) {
	owner := a.Owner()
	if a.Privileged() {
		owner = strings.TrimSpace(userID)
	}
	ps, err := s.Products.ListPending(owner, 0)
	if err != nil {
		return nil, err
	}
	fields := map[string]domain.FieldList{}
	out := make([]ExportItem, 0, len(ps))
	for _, p := range ps {
		item, err := s.export(p, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// export builds the worker shape. fields caches category descriptors across
// calls.
func (s *ProductService) export(p domain.Product, fields map[string]domain.FieldList) (ExportItem, error) {
	item := ExportItem{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Price:           p.Price.String(),
		Location:        p.Location,
		Photos:          []string{},
		PhotoAPIURL:     s.photoAPIURL(p.ID),
		ArticleNumber:   p.ArticleNumber,
		Condition:       orDefault(p.Condition, DefaultCondition),
		DeliveryMethods: []string{},
		DeliveryOption:  orDefault(p.DeliveryOption, DefaultDeliveryOption),
		CategoryPath:    p.CategoryPath,
		CategoryFields:  map[string]any{},
		Platforms:       p.Platforms,
	}
	if len(p.EbayFields) > 0 {
		item.EbayFields = p.EbayFields
	}
	if p.CategoryID != nil {
		list, ok := fields[*p.CategoryID]
		if !ok {
			c, err := s.Cats.Get(*p.CategoryID)
			if err != nil && notFound(err) != ErrNotFound {
				return ExportItem{}, err
			}
			list = c.Fields
			fields[*p.CategoryID] = list
		}
		item.CategoryFields = FieldSkeleton(list, p.CategoryFields)
	} else {
		for k, v := range p.CategoryFields {
			item.CategoryFields[k] = v
		}
	}
	return item, nil
}

// FieldSkeleton lists every field name of a category, null unless the product
// carries a value. Values for names the category does not declare are kept.
func FieldSkeleton(fields domain.FieldList, values domain.FieldValues) map[string]any {
	out := make(map[string]any, len(fields)+len(values))
	for _, name := range fields.Names() {
		out[name] = nil
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}

func (s *ProductService) photoAPIURL(id string) string {
	u := fmt.Sprintf("%s/api/products/%s/images", s.BaseURL, url.PathEscape(id))
	if s.APIKey != "" {
		u += "?api_key=" + url.QueryEscape(s.APIKey)
	}
	return u
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

var sheetHeaders = []string{"Title", "Article number", "Price", "Status", "Category", "Ad URL", "Views", "Saves", "Created"}

// Spreadsheet renders the caller's products as an xlsx workbook.
func (s *ProductService) Spreadsheet(a domain.Access) (*bytes.Buffer, error) {
	ps, err := s.Products.List(a.Owner())
	if err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	header := make([]any, len(sheetHeaders))
	for i, h := range sheetHeaders {
		header[i] = h
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(sheetHeaders), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for r, p := range ps {
		price, _ := p.Price.Float64()
		row := []any{
			p.Title, p.ArticleNumber, price, string(p.Status),
			deref(p.CategoryPath), deref(p.MarktplaatsURL), p.Views, p.Saves,
			p.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := setRow(f, sheet, r+2, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "E", "F", 36); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
