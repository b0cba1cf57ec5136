package services

import (
	"fmt"
	"sort"
	"strings"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
	"listingdesk/internal/validate"
)

// PathSeparator joins ancestor names in a category path.
const PathSeparator = " > "

type CategoryService struct {
	Cats *repos.CategoryRepo
}

func NewCategoryService(cats *repos.CategoryRepo) *CategoryService {
	return &CategoryService{Cats: cats}
}

// Tree returns the full category forest.
func (s *CategoryService) Tree() ([]*domain.CategoryNode, error) {
	cats, err := s.Cats.List()
	if err != nil {
		return nil, err
	}
	return BuildTree(cats), nil
}

// FieldsTree returns only the branches that lead to categories with fields.
func (s *CategoryService) FieldsTree() ([]*domain.CategoryNode, error) {
	withFields, err := s.Cats.ListWithFields()
	if err != nil {
		return nil, err
	}
	var seed []string
	for _, c := range withFields {
		if len(c.Fields) > 0 {
			seed = append(seed, c.ID)
		}
	}
	if len(seed) == 0 {
		return []*domain.CategoryNode{}, nil
	}
	ids, err := ResolveAncestors(seed, s.Cats.ParentsOf)
	if err != nil {
		return nil, err
	}
	cats, err := s.Cats.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	return BuildFieldsTree(cats), nil
}

type CategoryFields struct {
	CategoryID   string           `json:"categoryId"`
	CategoryName string           `json:"categoryName"`
	CategoryPath string           `json:"categoryPath"`
	Level        int              `json:"level"`
	Fields       domain.FieldList `json:"fields"`
}

type EbayCategoryFields struct {
	CategoryID     string           `json:"categoryId"`
	CategoryName   string           `json:"categoryName"`
	CategoryPath   string           `json:"categoryPath"`
	EbayCategoryID *string          `json:"ebayCategoryId"`
	EbayFields     domain.FieldList `json:"ebayFields"`
}

func (s *CategoryService) Fields(id string) (CategoryFields, error) {
	c, err := s.Cats.Get(id)
	if err != nil {
		return CategoryFields{}, notFound(err)
	}
	fields := c.Fields
	if fields == nil {
		fields = domain.FieldList{}
	}
	return CategoryFields{CategoryID: c.ID, CategoryName: c.Name, CategoryPath: c.Path, Level: c.Level, Fields: fields}, nil
}

func (s *CategoryService) EbayFields(id string) (EbayCategoryFields, error) {
	c, err := s.Cats.Get(id)
	if err != nil {
		return EbayCategoryFields{}, notFound(err)
	}
	fields := c.EbayFields
	if fields == nil {
		fields = domain.FieldList{}
	}
	return EbayCategoryFields{
		CategoryID: c.ID, CategoryName: c.Name, CategoryPath: c.Path,
		EbayCategoryID: c.EbayCategoryID, EbayFields: fields,
	}, nil
}

// CategoryInput is one item of a bulk upsert. ParentID may hold a parent id
// or a parent name.
type CategoryInput struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Level          int              `json:"level"`
	ParentID       string           `json:"parentId"`
	Path           string           `json:"path"`
	MarktplaatsID  string           `json:"marktplaatsId"`
	Fields         domain.FieldList `json:"fields"`
	EbayFields     domain.FieldList `json:"ebayFields"`
	EbayCategoryID string           `json:"ebayCategoryId"`
}

type ImportResult struct {
	Success bool     `json:"success"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Import upserts categories parent-first. Items are processed in level order
// so parents created earlier in the same batch resolve. A bad item is
// skipped and reported; it never aborts the batch.
func (s *CategoryService) Import(items []CategoryInput) ImportResult {
	res := ImportResult{Success: true, Errors: []string{}}
	sorted := make([]CategoryInput, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	for _, in := range sorted {
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" || in.Level <= 0 {
			res.Skipped++
			res.Errors = append(res.Errors, "Skipped category: missing name or level")
			continue
		}
		created, err := s.upsert(in)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("Error processing %s: %v", in.Name, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res
}

func (s *CategoryService) upsert(in CategoryInput) (bool, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = validate.Slug(in.Name)
	}
	if id == "" {
		return false, fmt.Errorf("%w: cannot derive id from name", ErrValidation)
	}

	parent, err := s.resolveParent(in)
	if err != nil {
		return false, err
	}
	path := strings.TrimSpace(in.Path)
	if path == "" {
		path = in.Name
		if parent != nil {
			path = parent.Path + PathSeparator + in.Name
		}
	}

	c := domain.Category{
		ID:             id,
		Name:           in.Name,
		Level:          in.Level,
		Path:           path,
		MarktplaatsID:  optional(in.MarktplaatsID),
		Fields:         in.Fields,
		EbayFields:     in.EbayFields,
		EbayCategoryID: optional(in.EbayCategoryID),
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}

	existing, err := s.Cats.FindByIDOrPath(id, path)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, s.Cats.Insert(c)
	}

	// absent optional data keeps what is stored
	c.ID = existing.ID
	if c.MarktplaatsID == nil {
		c.MarktplaatsID = existing.MarktplaatsID
	}
	if c.Fields == nil {
		c.Fields = existing.Fields
	}
	if c.EbayFields == nil {
		c.EbayFields = existing.EbayFields
	}
	if c.EbayCategoryID == nil {
		c.EbayCategoryID = existing.EbayCategoryID
	}
	if c.ParentID != nil && *c.ParentID == existing.ID {
		return false, fmt.Errorf("%w: category cannot be its own parent", ErrValidation)
	}
	return false, s.Cats.Update(c)
}

// resolveParent looks the parent up by id or name, falling back to the
// parent segment of a multi-segment path.
func (s *CategoryService) resolveParent(in CategoryInput) (*domain.Category, error) {
	if ref := strings.TrimSpace(in.ParentID); ref != "" {
		return s.Cats.FindByIDOrName(ref)
	}
	if i := strings.LastIndex(in.Path, PathSeparator); i > 0 {
		return s.Cats.FindByIDOrPath("", strings.TrimSpace(in.Path[:i]))
	}
	return nil, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
