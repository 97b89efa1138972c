package repos

import (
	"time"

	"github.com/jmoiron/sqlx"

	"pricewatch/internal/domain"
)

// HistoryRepo is the append-only price history store. Rows are never
// updated; window aggregates are always computed from raw rows at query
// time.
type HistoryRepo struct{ db *sqlx.DB }

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func (r *HistoryRepo) Append(s *domain.PriceSnapshot) error {
	if s.CreatedAt == "" {
		s.CreatedAt = Now()
	}
	res, err := r.db.Exec(`
  INSERT INTO price_snapshots(product_id, price, card_price, old_price, available,
    rating, review_count, success, fetch_ms, created_at)
  VALUES(?,?,?,?,?,?,?,?,?,?)`,
		s.ProductID, s.Price, s.CardPrice, s.OldPrice, s.Available,
		s.Rating, s.ReviewCount, s.Success, s.FetchMS, s.CreatedAt)
	if err != nil {
		return err
	}
	s.ID, _ = res.LastInsertId()
	return nil
}

// QueryWindow aggregates successful snapshots over the trailing window.
// SampleCount==0 means no data: avg/min/max stay nil rather than zero.
func (r *HistoryRepo) QueryWindow(productID string, days int) (domain.WindowAggregate, error) {
	cutoff := windowCutoff(days)
	var row struct {
		Avg     *float64 `db:"avg"`
		Min     *float64 `db:"min"`
		Max     *float64 `db:"max"`
		Count   int      `db:"count"`
		FirstAt *string  `db:"first_at"`
		LastAt  *string  `db:"last_at"`
	}
	err := r.db.Get(&row, `
  SELECT AVG(price) AS avg, MIN(price) AS min, MAX(price) AS max,
         COUNT(*) AS count, MIN(created_at) AS first_at, MAX(created_at) AS last_at
  FROM price_snapshots
  WHERE product_id = ? AND success = 1 AND created_at >= ?`,
		productID, cutoff)
	if err != nil {
		return domain.WindowAggregate{}, err
	}
	agg := domain.WindowAggregate{SampleCount: row.Count}
	if row.Count > 0 {
		agg.Avg, agg.Min, agg.Max = row.Avg, row.Min, row.Max
		if row.FirstAt != nil {
			agg.FirstAt = *row.FirstAt
		}
		if row.LastAt != nil {
			agg.LastAt = *row.LastAt
		}
	}
	return agg, nil
}

// QueryRecent lists snapshots newest first for display. Failed rows are
// included only on request.
func (r *HistoryRepo) QueryRecent(productID string, days, limit int, includeFailed bool) ([]domain.PriceSnapshot, error) {
	q := `
  SELECT id, product_id, price, card_price, old_price, available,
         rating, review_count, success, fetch_ms, created_at
  FROM price_snapshots
  WHERE product_id = ? AND created_at >= ?`
	if !includeFailed {
		q += ` AND success = 1`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	var out []domain.PriceSnapshot
	err := r.db.Select(&out, q, productID, windowCutoff(days), limit)
	return out, err
}

// Prune deletes snapshots past retention. Idempotent; sqlite serializes the
// delete with concurrent appends so writers are never locked out for long.
func (r *HistoryRepo) Prune(olderThanDays int) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM price_snapshots WHERE created_at < ?`, windowCutoff(olderThanDays))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func windowCutoff(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(TimeLayout)
}
