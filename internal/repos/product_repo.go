package repos

import (
	"strings"

	"listingdesk/internal/domain"

	"github.com/jmoiron/sqlx"
)

const productCols = `p.id, p.user_id, p.title, p.description, p.price, p.article_number, p.category_id,
    p.category_fields, p.ebay_fields, p.platforms, p.condition, p.delivery_option, p.location,
    p.status, p.marktplaats_url, p.marktplaats_ad_id, p.views, p.saves, p.posted_at,
    p.created_at, p.updated_at, c.path AS category_path`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

// clearPosted is the SET fragment for a reset to pending.
const clearPosted = `status = 'pending', marktplaats_url = NULL, marktplaats_ad_id = NULL,
    views = 0, saves = 0, posted_at = NULL`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// where collects AND-ed conditions; an empty owner means no owner filter.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) owner(owner string) {
	if owner != "" {
		w.add(`p.user_id = ?`, owner)
	}
}

func (w *where) statusIn(sts []domain.Status) {
	if len(sts) == 0 {
		return
	}
	marks := make([]string, len(sts))
	for i, s := range sts {
		marks[i] = "?"
		w.args = append(w.args, string(s))
	}
	w.conds = append(w.conds, `p.status IN (`+strings.Join(marks, ",")+`)`)
}

func (w *where) idIn(ids []string) {
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		w.args = append(w.args, id)
	}
	w.conds = append(w.conds, `p.id IN (`+strings.Join(marks, ",")+`)`)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return ` WHERE ` + strings.Join(w.conds, ` AND `)
}

func (r *ProductRepo) Create(p domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = domain.Now()
	}
	if p.Status == "" {
		p.Status = domain.StatusPending
	}
	_, err := r.db.Exec(r.db.Rebind(`
		INSERT INTO products(
		  id, user_id, title, description, price, article_number, category_id,
		  category_fields, ebay_fields, platforms, condition, delivery_option, location,
		  status, views, saves, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,0,0,?,?)
	`), p.ID, p.UserID, p.Title, p.Description, p.Price, p.ArticleNumber, p.CategoryID,
		p.CategoryFields, p.EbayFields, p.Platforms, p.Condition, p.DeliveryOption, p.Location,
		p.Status, p.CreatedAt, p.CreatedAt)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.db.Rebind(`SELECT `+productCols+productFrom+` WHERE p.id = ?`), id)
	return p, err
}

// List returns products newest first.
func (r *ProductRepo) List(owner string) ([]domain.Product, error) {
	var w where
	w.owner(owner)
	out := []domain.Product{}
	err := r.db.Select(&out, r.db.Rebind(`SELECT `+productCols+productFrom+w.sql()+` ORDER BY p.created_at DESC`), w.args...)
	return out, err
}

// ListPending returns pending products oldest first; limit <= 0 means no limit.
func (r *ProductRepo) ListPending(owner string, limit int) ([]domain.Product, error) {
	var w where
	w.owner(owner)
	w.add(`p.status = ?`, string(domain.StatusPending))
	q := `SELECT ` + productCols + productFrom + w.sql() + ` ORDER BY p.created_at ASC, p.id ASC`
	if limit > 0 {
		q += ` LIMIT ?`
		w.args = append(w.args, limit)
	}
	out := []domain.Product{}
	err := r.db.Select(&out, r.db.Rebind(q), w.args...)
	return out, err
}

// ListPosted returns completed products that carry an ad URL.
func (r *ProductRepo) ListPosted(owner string) ([]domain.Product, error) {
	var w where
	w.owner(owner)
	w.add(`p.status = ?`, string(domain.StatusCompleted))
	w.add(`p.marktplaats_url IS NOT NULL`)
	out := []domain.Product{}
	err := r.db.Select(&out, r.db.Rebind(`SELECT `+productCols+productFrom+w.sql()+` ORDER BY p.created_at ASC`), w.args...)
	return out, err
}

// Update writes the owner-editable fields. Workflow columns are untouched.
func (r *ProductRepo) Update(p domain.Product) error {
	_, err := r.db.Exec(r.db.Rebind(`
		UPDATE products
		SET title = ?, description = ?, price = ?, article_number = ?, category_id = ?,
		    category_fields = ?, ebay_fields = ?, platforms = ?, condition = ?,
		    delivery_option = ?, location = ?, updated_at = ?
		WHERE id = ?
	`), p.Title, p.Description, p.Price, p.ArticleNumber, p.CategoryID,
		p.CategoryFields, p.EbayFields, p.Platforms, p.Condition,
		p.DeliveryOption, p.Location, domain.Now(), p.ID)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ProductRepo) Delete(id string) error {
	_, err := r.db.Exec(r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	return err
}

func (r *ProductRepo) CountByStatus(owner string) (domain.StatusCounts, error) {
	var w where
	w.owner(owner)
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	var counts domain.StatusCounts
	err := r.db.Select(&rows, r.db.Rebind(`SELECT p.status, COUNT(*) AS n FROM products p`+w.sql()+` GROUP BY p.status`), w.args...)
	if err != nil {
		return counts, err
	}
	for _, row := range rows {
		counts.Add(domain.Status(row.Status), row.N)
	}
	return counts, nil
}

// Claim moves a pending product to processing. It reports false when the
// product was not pending, e.g. because another run claimed it first.
func (r *ProductRepo) Claim(id string) (bool, error) {
	return r.exec(`UPDATE products SET status = 'processing', updated_at = ? WHERE id = ? AND status = 'pending'`,
		domain.Now(), id)
}

// Complete records a successful post on a processing product.
func (r *ProductRepo) Complete(id string, o domain.PostOutcome) (bool, error) {
	var posted *domain.Timestamp
	if o.PostedAt != "" || o.AdURL != "" || o.AdID != "" {
		now := domain.Now()
		posted = &now
	}
	return r.exec(`
		UPDATE products
		SET status = 'completed', marktplaats_url = ?, marktplaats_ad_id = ?,
		    views = ?, saves = ?, posted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, nullable(o.AdURL), nullable(o.AdID), o.Views, o.Saves, posted, domain.Now(), id)
}

// Fail marks a processing product as failed.
func (r *ProductRepo) Fail(id string) (bool, error) {
	return r.exec(`UPDATE products SET status = 'failed', updated_at = ? WHERE id = ? AND status = 'processing'`,
		domain.Now(), id)
}

// Reset moves products back to pending and clears post metadata. A nil from
// resets regardless of status; a nil ids resets every product in scope.
func (r *ProductRepo) Reset(owner string, ids []string, from []domain.Status) (int64, error) {
	if ids != nil && len(ids) == 0 {
		return 0, nil
	}
	var w where
	w.owner(owner)
	w.statusIn(from)
	if ids != nil {
		w.idIn(ids)
	}
	args := append([]any{domain.Now()}, w.args...)
	res, err := r.db.Exec(r.db.Rebind(`UPDATE products SET `+clearPosted+`, updated_at = ? WHERE id IN (SELECT p.id FROM products p`+w.sql()+`)`), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns how many products match owner and from (nil from = any status).
func (r *ProductRepo) Count(owner string, from []domain.Status) (int, error) {
	var w where
	w.owner(owner)
	w.statusIn(from)
	var n int
	err := r.db.Get(&n, r.db.Rebind(`SELECT COUNT(*) FROM products p`+w.sql()), w.args...)
	return n, err
}

// UpdateStats refreshes ad statistics without touching status.
func (r *ProductRepo) UpdateStats(id string, s domain.AdStats, postedAt *domain.Timestamp) error {
	_, err := r.db.Exec(r.db.Rebind(`
		UPDATE products
		SET views = ?, saves = ?,
		    marktplaats_ad_id = COALESCE(?, marktplaats_ad_id),
		    marktplaats_url = COALESCE(?, marktplaats_url),
		    posted_at = COALESCE(?, posted_at),
		    updated_at = ?
		WHERE id = ?
	`), s.Views, s.Saves, nullable(s.AdID), nullable(s.AdURL), postedAt, domain.Now(), id)
	return err
}

func (r *ProductRepo) exec(q string, args ...any) (bool, error) {
	res, err := r.db.Exec(r.db.Rebind(q), args...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
