package services

import (
	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
)

// Aggregator recomputes rolling window averages from raw snapshots and is
// the sole writer of the denormalized rolling_avg fields.
type Aggregator struct {
	Products   *repos.ProductRepo
	History    *repos.HistoryRepo
	WindowDays int
}

func NewAggregator(products *repos.ProductRepo, history *repos.HistoryRepo, windowDays int) *Aggregator {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Aggregator{Products: products, History: history, WindowDays: windowDays}
}

// Refresh recomputes the product's rolling average from the raw history.
// With no successful snapshots in the window the field is set back to NULL,
// keeping "insufficient data" distinct from zero. Idempotent for unchanged
// history.
func (a *Aggregator) Refresh(productID string) (domain.WindowAggregate, error) {
	agg, err := a.History.QueryWindow(productID, a.WindowDays)
	if err != nil {
		return domain.WindowAggregate{}, err
	}
	if agg.SampleCount == 0 {
		return agg, a.Products.UpdateRollingAvg(productID, nil, "")
	}
	avg := round2(*agg.Avg)
	return agg, a.Products.UpdateRollingAvg(productID, &avg, repos.Now())
}

// RefreshMany refreshes a batch of products, logging and skipping per-item
// failures. Used by the collector's tail pass.
func (a *Aggregator) RefreshMany(productIDs []string) {
	for _, id := range productIDs {
		if _, err := a.Refresh(id); err != nil {
			applog.JobError("aggregator", "refresh.fail", err, map[string]any{"product_id": id})
		}
	}
}

// RefreshAll recomputes averages for every collectible product.
func (a *Aggregator) RefreshAll() error {
	products, err := a.Products.ListCollectible()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	a.RefreshMany(ids)
	return nil
}
