package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/config"
	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
)

// ComparisonService is the engine computing competitive metrics between a
// tracked own product and its competitors, persisting an immutable snapshot
// per computation.
type ComparisonService struct {
	Groups    *repos.GroupRepo
	Snapshots *repos.SnapshotRepo
	Products  *repos.ProductRepo
	Tracker   *TrackerService
	Fetch     Fetcher
	Weights   config.Weights
	Bounds    [4]float64
	Freshness time.Duration
	now       func() time.Time
}

func NewComparisonService(groups *repos.GroupRepo, snapshots *repos.SnapshotRepo, products *repos.ProductRepo, tracker *TrackerService, fetcher Fetcher, cfg config.Config) *ComparisonService {
	return &ComparisonService{
		Groups:    groups,
		Snapshots: snapshots,
		Products:  products,
		Tracker:   tracker,
		Fetch:     fetcher,
		Weights:   cfg.Weights,
		Bounds:    cfg.GradeBounds,
		Freshness: time.Duration(cfg.FreshnessSec) * time.Second,
		now:       time.Now,
	}
}

// MemberView is one member's attributes at compute time; the serialized
// slice forms the snapshot payload.
type MemberView struct {
	Role    string                `json:"role"`
	Product domain.TrackedProduct `json:"product"`
}

// ComparisonResult is the full outcome of one comparison computation.
type ComparisonResult struct {
	Group         domain.ComparisonGroup `json:"group"`
	Members       []MemberView           `json:"members"`
	Metrics       *Metrics               `json:"metrics,omitempty"`
	IsFresh       bool                   `json:"is_fresh"`
	StaleArticles []string               `json:"stale_articles,omitempty"`
	SnapshotID    string                 `json:"snapshot_id,omitempty"`
	Persisted     bool                   `json:"persisted"`
	ComputedAt    string                 `json:"computed_at"`
}

func (s *ComparisonService) CreateGroup(ownerID, name, groupType string) (domain.ComparisonGroup, error) {
	if groupType == "" {
		groupType = domain.GroupComparison
	}
	g := domain.ComparisonGroup{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		GroupType: groupType,
	}
	if err := s.Groups.Create(&g); err != nil {
		return domain.ComparisonGroup{}, err
	}
	return g, nil
}

// AddMember resolves (or creates) the tracked product and links it to the
// group. Duplicate products in one group are rejected without a partial
// row.
func (s *ComparisonService) AddMember(ctx context.Context, groupID, article, role string, scrapeNow bool) (domain.GroupMembership, error) {
	g, err := s.Groups.Get(groupID)
	if err != nil {
		return domain.GroupMembership{}, err
	}
	p, err := s.Tracker.Resolve(ctx, g.OwnerID, article, scrapeNow)
	if err != nil {
		return domain.GroupMembership{}, err
	}
	pos, err := s.Groups.NextPosition(groupID)
	if err != nil {
		return domain.GroupMembership{}, err
	}
	m := domain.GroupMembership{GroupID: groupID, ProductID: p.ID, Role: role, Position: pos}
	if err := s.Groups.AddMember(&m); err != nil {
		return domain.GroupMembership{}, err
	}
	return m, nil
}

// QuickCompare is the primary on-demand entry: a fresh group, both members
// fetched live, metrics computed immediately. It always creates a new
// group.
func (s *ComparisonService) QuickCompare(ctx context.Context, ownerID, ownArticle, competitorArticle, name string) (*ComparisonResult, error) {
	if name == "" {
		name = fmt.Sprintf("%s vs %s", ownArticle, competitorArticle)
	}
	g, err := s.CreateGroup(ownerID, name, domain.GroupComparison)
	if err != nil {
		return nil, err
	}
	if _, err := s.AddMember(ctx, g.ID, ownArticle, domain.RoleOwn, true); err != nil {
		return nil, err
	}
	if _, err := s.AddMember(ctx, g.ID, competitorArticle, domain.RoleCompetitor, true); err != nil {
		return nil, err
	}
	return s.Compute(ctx, g.ID, false)
}

// Compute loads all members, refreshing each live when asked or when its
// attributes are older than the freshness threshold. A failed refresh falls
// back to last-known attributes and flags the result stale instead of
// failing the whole comparison. The result is persisted as an immutable
// snapshot; persistence failure still returns the computed result.
func (s *ComparisonService) Compute(ctx context.Context, groupID string, refresh bool) (*ComparisonResult, error) {
	g, err := s.Groups.Get(groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.Groups.Members(groupID)
	if err != nil {
		return nil, err
	}
	if len(members) < 2 {
		return nil, domain.ErrInsufficientMembers
	}

	result := &ComparisonResult{
		Group:      g,
		IsFresh:    true,
		ComputedAt: s.now().UTC().Format(repos.TimeLayout),
	}

	var own, competitor *domain.TrackedProduct
	ownCount, compCount := 0, 0
	for i := range members {
		m := &members[i]
		if refresh || s.isStale(m.Product) {
			attrs, ferr := s.Fetch.Fetch(ctx, m.Product.Article, refresh)
			if ferr != nil {
				// Best effort: keep last-known attributes, mark stale.
				result.IsFresh = false
				result.StaleArticles = append(result.StaleArticles, m.Product.Article)
				applog.JobError("comparison", "member.refresh.fail", ferr, map[string]any{"article": m.Product.Article})
			} else {
				if err := s.Tracker.RecordFetch(m.Product.ID, attrs); err != nil {
					applog.JobError("comparison", "member.record.fail", err, map[string]any{"product_id": m.Product.ID})
				}
				applyAttrs(&m.Product, attrs)
			}
		}
		result.Members = append(result.Members, MemberView{Role: m.Role, Product: m.Product})
		switch m.Role {
		case domain.RoleOwn:
			ownCount++
			own = &m.Product
		case domain.RoleCompetitor:
			compCount++
			competitor = &m.Product
		}
	}

	// Metrics are defined only for the exactly-one-own vs exactly-one-
	// competitor shape; other group shapes stay display-only.
	if ownCount == 1 && compCount == 1 {
		if ownSide, ok := SideFromProduct(*own); ok {
			if compSide, ok := SideFromProduct(*competitor); ok {
				m := ComputeMetrics(ownSide, compSide, s.Weights, s.Bounds)
				result.Metrics = &m
			}
		}
	}

	snap, perr := s.persist(result)
	if perr != nil {
		applog.JobError("comparison", "snapshot.persist.fail", perr, map[string]any{"group_id": groupID})
		return result, fmt.Errorf("%w: %v", domain.ErrPersistence, perr)
	}
	result.SnapshotID = snap.ID
	result.Persisted = true
	return result, nil
}

func (s *ComparisonService) persist(r *ComparisonResult) (*domain.ComparisonSnapshot, error) {
	payload, err := json.Marshal(r.Members)
	if err != nil {
		return nil, err
	}
	snap := &domain.ComparisonSnapshot{
		ID:      uuid.New().String(),
		GroupID: r.Group.ID,
		Payload: string(payload),
		IsFresh: r.IsFresh,
	}
	if r.Metrics != nil {
		mb, err := json.Marshal(r.Metrics)
		if err != nil {
			return nil, err
		}
		ms := string(mb)
		snap.Metrics = &ms
		snap.CompIndex = &r.Metrics.Index
		snap.Grade = &r.Metrics.Grade
	}
	if err := s.Snapshots.Insert(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// History returns the group's comparison snapshots within the window.
func (s *ComparisonService) History(groupID string, days int) ([]domain.ComparisonSnapshot, error) {
	if _, err := s.Groups.Get(groupID); err != nil {
		return nil, err
	}
	return s.Snapshots.ListByGroup(groupID, days)
}

// UserStats summarizes an owner's footprint: tracked products, groups, and
// the mean competitiveness index across each group's newest snapshot.
func (s *ComparisonService) UserStats(ownerID string) (domain.UserStats, error) {
	stats := domain.UserStats{OwnerID: ownerID}
	var err error
	if stats.Products, err = s.Products.CountByOwner(ownerID); err != nil {
		return stats, err
	}
	if stats.Groups, err = s.Groups.CountByOwner(ownerID); err != nil {
		return stats, err
	}
	indexes, err := s.Snapshots.LatestIndexes(ownerID)
	if err != nil {
		return stats, err
	}
	if len(indexes) > 0 {
		sum := 0.0
		for _, v := range indexes {
			sum += v
		}
		avg := round2(sum / float64(len(indexes)))
		stats.AvgCompIndex = &avg
	}
	return stats, nil
}

func (s *ComparisonService) isStale(p domain.TrackedProduct) bool {
	if p.FetchedAt == "" {
		return true
	}
	t, err := time.Parse(repos.TimeLayout, p.FetchedAt)
	if err != nil {
		return true
	}
	return s.now().Sub(t) > s.Freshness
}

func applyAttrs(p *domain.TrackedProduct, a domain.ProductAttrs) {
	name := a.Name
	price := a.Price
	p.Name = &name
	p.Price = &price
	p.CardPrice = a.CardPrice
	p.OldPrice = a.OldPrice
	p.Rating = a.Rating
	p.ReviewCount = a.ReviewCount
	p.Available = a.Available
	if a.ImageURL != "" {
		img := a.ImageURL
		p.ImageURL = &img
	}
	p.FetchedAt = a.FetchedAt.UTC().Format(repos.TimeLayout)
	p.Status = domain.StatusActive
	p.Problematic = false
}
