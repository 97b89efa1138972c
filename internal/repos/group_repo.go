package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"pricewatch/internal/domain"
)

type GroupRepo struct{ db *sqlx.DB }

func NewGroupRepo(db *sqlx.DB) *GroupRepo { return &GroupRepo{db: db} }

func (r *GroupRepo) Create(g *domain.ComparisonGroup) error {
	g.CreatedAt = Now()
	_, err := r.db.Exec(`
  INSERT INTO comparison_groups(id, owner_id, name, group_type, created_at)
  VALUES(?,?,?,?,?)`,
		g.ID, g.OwnerID, g.Name, g.GroupType, g.CreatedAt)
	return err
}

func (r *GroupRepo) Get(id string) (domain.ComparisonGroup, error) {
	var g domain.ComparisonGroup
	err := r.db.Get(&g, `
  SELECT id, owner_id, COALESCE(name,'') AS name, group_type, created_at
  FROM comparison_groups WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return g, domain.ErrGroupNotFound
	}
	return g, err
}

// AddMember inserts a membership. The (group_id, product_id) primary key
// does the duplicate detection, so concurrent adds of the same product
// cannot race past a pre-check; the loser's constraint violation is
// translated into the engine-level duplicate error.
func (r *GroupRepo) AddMember(m *domain.GroupMembership) error {
	m.CreatedAt = Now()
	_, err := r.db.Exec(`
  INSERT INTO group_members(group_id, product_id, role, position, created_at)
  VALUES(?,?,?,?,?)`,
		m.GroupID, m.ProductID, m.Role, m.Position, m.CreatedAt)
	if isConstraintViolation(err) {
		return domain.ErrDuplicateMember
	}
	return err
}

// isConstraintViolation matches the sqlite driver's PK/UNIQUE failure.
func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint")
}

// Members loads memberships joined with their products, in position order.
func (r *GroupRepo) Members(groupID string) ([]domain.Member, error) {
	rows, err := r.db.Queryx(`
  SELECT m.group_id, m.product_id, m.role, m.position, m.created_at,
         p.id, p.owner_id, p.article, p.status, p.problematic,
         p.name, p.price, p.card_price, p.old_price, p.rating, p.review_count,
         p.available, p.image_url,
         COALESCE(p.fetched_at,'') AS fetched_at,
         p.rolling_avg, COALESCE(p.rolling_avg_at,'') AS rolling_avg_at,
         p.created_at AS p_created_at, COALESCE(p.updated_at,'') AS p_updated_at
  FROM group_members m
  JOIN products p ON p.id = m.product_id
  WHERE m.group_id = ?
  ORDER BY m.position, m.created_at`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		err := rows.Scan(
			&m.GroupID, &m.ProductID, &m.Role, &m.Position, &m.GroupMembership.CreatedAt,
			&m.Product.ID, &m.Product.OwnerID, &m.Product.Article, &m.Product.Status, &m.Product.Problematic,
			&m.Product.Name, &m.Product.Price, &m.Product.CardPrice, &m.Product.OldPrice,
			&m.Product.Rating, &m.Product.ReviewCount, &m.Product.Available, &m.Product.ImageURL,
			&m.Product.FetchedAt, &m.Product.RollingAvg, &m.Product.RollingAvgAt,
			&m.Product.CreatedAt, &m.Product.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *GroupRepo) NextPosition(groupID string) (int, error) {
	var n int
	err := r.db.Get(&n, `
  SELECT COALESCE(MAX(position)+1, 0) FROM group_members WHERE group_id = ?`, groupID)
	return n, err
}

func (r *GroupRepo) CountByOwner(ownerID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM comparison_groups WHERE owner_id = ?`, ownerID)
	return n, err
}
