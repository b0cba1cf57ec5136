package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// Field type tags used by category field descriptors.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldRadio    = "radio"
	FieldCheckbox = "checkbox"
)

// CategoryField describes one marketplace-specific input of a category.
// Radio and checkbox entries sharing a Name form one group; the first entry
// in the list anchors the group.
type CategoryField struct {
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Options     []string `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// FieldList is a JSON column of field descriptors. Empty lists persist as NULL.
type FieldList []CategoryField

func (f FieldList) Value() (driver.Value, error) {
	if len(f) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]CategoryField(f))
	return string(b), err
}

func (f *FieldList) Scan(src any) error {
	return scanJSON(src, f)
}

// Names returns the distinct field names in list order; grouped radio and
// checkbox entries contribute their name once.
func (f FieldList) Names() []string {
	seen := make(map[string]bool, len(f))
	var out []string
	for _, fd := range f {
		if fd.Name == "" || seen[fd.Name] {
			continue
		}
		seen[fd.Name] = true
		out = append(out, fd.Name)
	}
	return out
}

type Category struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Level          int       `db:"level" json:"level"`
	Path           string    `db:"path" json:"path"`
	ParentID       *string   `db:"parent_id" json:"parentId"`
	MarktplaatsID  *string   `db:"marktplaats_id" json:"marktplaatsId,omitempty"`
	Fields         FieldList `db:"fields" json:"fields,omitempty"`
	EbayFields     FieldList `db:"ebay_fields" json:"ebayFields,omitempty"`
	EbayCategoryID *string   `db:"ebay_category_id" json:"ebayCategoryId,omitempty"`
	CreatedAt      Timestamp `db:"created_at" json:"createdAt"`
	UpdatedAt      Timestamp `db:"updated_at" json:"updatedAt"`
}

func (c Category) Parent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}

// CategoryNode is a category with its children inlined.
type CategoryNode struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Level         int             `json:"level"`
	Path          string          `json:"path"`
	ParentID      *string         `json:"parentId,omitempty"`
	MarktplaatsID *string         `json:"marktplaatsId,omitempty"`
	Fields        FieldList       `json:"fields,omitempty"`
	Children      []*CategoryNode `json:"children"`
}
