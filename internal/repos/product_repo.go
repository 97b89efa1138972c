package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"pricewatch/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
  id, owner_id, article, status, problematic,
  name, price, card_price, old_price, rating, review_count, available, image_url,
  COALESCE(fetched_at,'') AS fetched_at,
  rolling_avg, COALESCE(rolling_avg_at,'') AS rolling_avg_at,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) Create(p *domain.TrackedProduct) error {
	p.CreatedAt = Now()
	_, err := r.db.Exec(`
  INSERT INTO products(id, owner_id, article, status, problematic, created_at)
  VALUES(?,?,?,?,?,?)`,
		p.ID, p.OwnerID, p.Article, p.Status, p.Problematic, p.CreatedAt)
	return err
}

func (r *ProductRepo) Get(id string) (domain.TrackedProduct, error) {
	var p domain.TrackedProduct
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

func (r *ProductRepo) GetByOwnerArticle(ownerID, article string) (domain.TrackedProduct, error) {
	var p domain.TrackedProduct
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE owner_id = ? AND article = ?`, ownerID, article)
	return p, err
}

// ListCollectible returns every product the collector should visit, in
// stable article order (the collector relies on this ordering for
// reproducible runs). Products in the error state are included so a later
// successful fetch can recover them; only explicit deactivation excludes a
// product.
func (r *ProductRepo) ListCollectible() ([]domain.TrackedProduct, error) {
	var out []domain.TrackedProduct
	err := r.db.Select(&out, `
  SELECT `+productCols+` FROM products WHERE status != 'inactive' ORDER BY article, owner_id`)
	return out, err
}

// UpdateAttrs writes the last-known snapshot onto the product after a
// successful fetch and clears the error status.
func (r *ProductRepo) UpdateAttrs(id string, a domain.ProductAttrs) error {
	_, err := r.db.Exec(`
  UPDATE products SET
    name = ?, price = ?, card_price = ?, old_price = ?, rating = ?,
    review_count = ?, available = ?, image_url = ?, fetched_at = ?,
    status = 'active', problematic = 0, updated_at = ?
  WHERE id = ?`,
		a.Name, a.Price, a.CardPrice, a.OldPrice, a.Rating,
		a.ReviewCount, a.Available, a.ImageURL,
		a.FetchedAt.UTC().Format(TimeLayout), Now(), id)
	return err
}

// MarkProblem flips the product into the error state after a failed fetch.
// Last-known attributes are kept for stale comparisons.
func (r *ProductRepo) MarkProblem(id string) error {
	_, err := r.db.Exec(`
  UPDATE products SET status = 'error', problematic = 1, updated_at = ? WHERE id = ?`,
		Now(), id)
	return err
}

func (r *ProductRepo) SetStatus(id, status string) error {
	_, err := r.db.Exec(`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`, status, Now(), id)
	return err
}

// UpdateRollingAvg is called by the aggregator only. A nil avg records the
// explicit no-data state.
func (r *ProductRepo) UpdateRollingAvg(id string, avg *float64, at string) error {
	_, err := r.db.Exec(`UPDATE products SET rolling_avg = ?, rolling_avg_at = ? WHERE id = ?`, avg, at, id)
	return err
}

func (r *ProductRepo) CountByOwner(ownerID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM products WHERE owner_id = ?`, ownerID)
	return n, err
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }
