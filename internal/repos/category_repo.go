package repos

import (
	"database/sql"
	"errors"

	"listingdesk/internal/domain"

	"github.com/jmoiron/sqlx"
)

const categoryCols = `id, name, level, path, parent_id, marktplaats_id, fields, ebay_fields, ebay_category_id, created_at, updated_at`

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns every category ordered by level then name.
func (r *CategoryRepo) List() ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.Select(&out, `SELECT `+categoryCols+` FROM categories ORDER BY level, name`)
	return out, err
}

func (r *CategoryRepo) Get(id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.Get(&c, r.db.Rebind(`SELECT `+categoryCols+` FROM categories WHERE id = ?`), id)
	return c, err
}

// ListWithFields returns categories carrying a non-null fields payload.
func (r *CategoryRepo) ListWithFields() ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.Select(&out, `SELECT `+categoryCols+` FROM categories WHERE fields IS NOT NULL ORDER BY level, name`)
	return out, err
}

// ListByIDs returns the given categories ordered by level then name.
func (r *CategoryRepo) ListByIDs(ids []string) ([]domain.Category, error) {
	out := []domain.Category{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+categoryCols+` FROM categories WHERE id IN (?) ORDER BY level, name`, ids)
	if err != nil {
		return nil, err
	}
	err = r.db.Select(&out, r.db.Rebind(q), args...)
	return out, err
}

// ParentsOf maps each of ids that has a parent to its parent id.
func (r *CategoryRepo) ParentsOf(ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT id, parent_id FROM categories WHERE id IN (?) AND parent_id IS NOT NULL`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID       string `db:"id"`
		ParentID string `db:"parent_id"`
	}
	if err := r.db.Select(&rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.ParentID
	}
	return out, nil
}

// FindByIDOrName resolves a parent reference. It returns nil when nothing matches.
func (r *CategoryRepo) FindByIDOrName(ref string) (*domain.Category, error) {
	return r.findFirst(`SELECT `+categoryCols+` FROM categories WHERE id = ? OR name = ? ORDER BY level LIMIT 1`, ref, ref)
}

// FindByIDOrPath finds an existing category for upsert. It returns nil when nothing matches.
func (r *CategoryRepo) FindByIDOrPath(id, path string) (*domain.Category, error) {
	return r.findFirst(`SELECT `+categoryCols+` FROM categories WHERE id = ? OR path = ? LIMIT 1`, id, path)
}

func (r *CategoryRepo) findFirst(q string, args ...any) (*domain.Category, error) {
	var c domain.Category
	err := r.db.Get(&c, r.db.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Insert(c domain.Category) error {
	now := domain.Now()
	_, err := r.db.Exec(r.db.Rebind(`
		INSERT INTO categories(`+categoryCols+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)
	`), c.ID, c.Name, c.Level, c.Path, c.ParentID, c.MarktplaatsID, c.Fields, c.EbayFields, c.EbayCategoryID, now, now)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *CategoryRepo) Update(c domain.Category) error {
	_, err := r.db.Exec(r.db.Rebind(`
		UPDATE categories
		SET name = ?, level = ?, path = ?, parent_id = ?, marktplaats_id = ?,
		    fields = ?, ebay_fields = ?, ebay_category_id = ?, updated_at = ?
		WHERE id = ?
	`), c.Name, c.Level, c.Path, c.ParentID, c.MarktplaatsID, c.Fields, c.EbayFields, c.EbayCategoryID, domain.Now(), c.ID)
	return err
}
