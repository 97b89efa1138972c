package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
)

// TrackerService registers products for monitoring and serves their price
// history and window aggregates.
type TrackerService struct {
	Products *repos.ProductRepo
	History  *repos.HistoryRepo
	Fetch    Fetcher
	Agg      *Aggregator
}

func NewTrackerService(products *repos.ProductRepo, history *repos.HistoryRepo, fetcher Fetcher, agg *Aggregator) *TrackerService {
	return &TrackerService{Products: products, History: history, Fetch: fetcher, Agg: agg}
}

// Register tracks a new product for the owner, fetching live data up front.
// Registering an already-tracked article returns the existing product.
func (s *TrackerService) Register(ctx context.Context, ownerID, article string) (domain.TrackedProduct, error) {
	return s.Resolve(ctx, ownerID, article, true)
}

// Resolve finds the owner's tracked product for an article, creating it
// when absent. With scrapeNow a new product is fetched live before the row
// is written; an unfetchable article leaves no partial row behind.
func (s *TrackerService) Resolve(ctx context.Context, ownerID, article string, scrapeNow bool) (domain.TrackedProduct, error) {
	if p, err := s.Products.GetByOwnerArticle(ownerID, article); err == nil {
		return p, nil
	} else if !repos.IsNotFound(err) {
		return domain.TrackedProduct{}, err
	}

	p := domain.TrackedProduct{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Article: article,
		Status:  domain.StatusActive,
	}

	if !scrapeNow {
		if err := s.Products.Create(&p); err != nil {
			return domain.TrackedProduct{}, err
		}
		return p, nil
	}

	attrs, err := s.Fetch.Fetch(ctx, article, false)
	if err != nil {
		return domain.TrackedProduct{}, fmt.Errorf("%w: %s: %v", domain.ErrProductNotFound, article, err)
	}
	if err := s.Products.Create(&p); err != nil {
		return domain.TrackedProduct{}, err
	}
	if err := s.Products.UpdateAttrs(p.ID, attrs); err != nil {
		return domain.TrackedProduct{}, err
	}
	if err := s.appendSnapshot(p.ID, attrs); err != nil {
		applog.JobError("tracker", "snapshot.append.fail", err, map[string]any{"product_id": p.ID})
	}
	if _, err := s.Agg.Refresh(p.ID); err != nil {
		applog.JobError("tracker", "aggregate.refresh.fail", err, map[string]any{"product_id": p.ID})
	}
	return s.Products.Get(p.ID)
}

// RecordFetch persists a successful on-demand fetch: last-known attributes
// plus an append-only history row.
func (s *TrackerService) RecordFetch(productID string, attrs domain.ProductAttrs) error {
	if err := s.Products.UpdateAttrs(productID, attrs); err != nil {
		return err
	}
	return s.appendSnapshot(productID, attrs)
}

func (s *TrackerService) appendSnapshot(productID string, attrs domain.ProductAttrs) error {
	return s.History.Append(&domain.PriceSnapshot{
		ProductID:   productID,
		Price:       &attrs.Price,
		CardPrice:   attrs.CardPrice,
		OldPrice:    attrs.OldPrice,
		Available:   attrs.Available,
		Rating:      attrs.Rating,
		ReviewCount: attrs.ReviewCount,
		Success:     true,
		FetchMS:     attrs.FetchMS,
	})
}

// PriceHistory lists snapshots for display, newest first.
func (s *TrackerService) PriceHistory(productID string, days, limit int, includeFailed bool) ([]domain.PriceSnapshot, error) {
	if _, err := s.Products.Get(productID); err != nil {
		if repos.IsNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return s.History.QueryRecent(productID, days, limit, includeFailed)
}

// PriceAverage computes the window aggregate from raw snapshots at query
// time; the denormalized rolling_avg is never consulted here.
func (s *TrackerService) PriceAverage(productID string, days int) (domain.WindowAggregate, error) {
	if _, err := s.Products.Get(productID); err != nil {
		if repos.IsNotFound(err) {
			return domain.WindowAggregate{}, domain.ErrProductNotFound
		}
		return domain.WindowAggregate{}, err
	}
	return s.History.QueryWindow(productID, days)
}
