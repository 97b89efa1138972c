package repos

import (
	"github.com/jmoiron/sqlx"

	"pricewatch/internal/domain"
)

// SnapshotRepo stores immutable comparison snapshots.
type SnapshotRepo struct{ db *sqlx.DB }

func NewSnapshotRepo(db *sqlx.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

func (r *SnapshotRepo) Insert(s *domain.ComparisonSnapshot) error {
	if s.CreatedAt == "" {
		s.CreatedAt = Now()
	}
	_, err := r.db.Exec(`
  INSERT INTO comparison_snapshots(id, group_id, payload, metrics, comp_index, grade, is_fresh, created_at)
  VALUES(?,?,?,?,?,?,?,?)`,
		s.ID, s.GroupID, s.Payload, s.Metrics, s.CompIndex, s.Grade, s.IsFresh, s.CreatedAt)
	return err
}

// ListByGroup returns snapshots within the window, newest first.
func (r *SnapshotRepo) ListByGroup(groupID string, days int) ([]domain.ComparisonSnapshot, error) {
	var out []domain.ComparisonSnapshot
	err := r.db.Select(&out, `
  SELECT id, group_id, payload, metrics, comp_index, grade, is_fresh, created_at
  FROM comparison_snapshots
  WHERE group_id = ? AND created_at >= ?
  ORDER BY created_at DESC, id DESC`,
		groupID, windowCutoff(days))
	return out, err
}

// LatestIndexes returns each group's newest comp_index for an owner,
// skipping groups that never produced metrics.
func (r *SnapshotRepo) LatestIndexes(ownerID string) ([]float64, error) {
	var out []float64
	err := r.db.Select(&out, `
  SELECT s.comp_index
  FROM comparison_snapshots s
  JOIN comparison_groups g ON g.id = s.group_id
  WHERE g.owner_id = ? AND s.comp_index IS NOT NULL
    AND s.created_at = (
      SELECT MAX(created_at) FROM comparison_snapshots
      WHERE group_id = s.group_id AND comp_index IS NOT NULL
    )`, ownerID)
	return out, err
}

func (r *SnapshotRepo) Prune(olderThanDays int) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM comparison_snapshots WHERE created_at < ?`, windowCutoff(olderThanDays))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
