package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
)

// Fetcher is the slice of the fetch client the services need. The concrete
// client lives in internal/fetch; tests substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, article string, skipCache bool) (domain.ProductAttrs, error)
}

// Collector is the scheduled batch job that refreshes price history for
// every tracked product. Only one run may be active at a time; overlapping
// triggers are skipped, never queued.
type Collector struct {
	Products  *repos.ProductRepo
	History   *repos.HistoryRepo
	Fetch     Fetcher
	Agg       *Aggregator
	BatchSize int
	DelayMin  time.Duration
	DelayMax  time.Duration

	mu    sync.Mutex
	sleep func(time.Duration) // test hook
}

func NewCollector(products *repos.ProductRepo, history *repos.HistoryRepo, fetcher Fetcher, agg *Aggregator, batchSize int, delayMin, delayMax time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Collector{
		Products:  products,
		History:   history,
		Fetch:     fetcher,
		Agg:       agg,
		BatchSize: batchSize,
		DelayMin:  delayMin,
		DelayMax:  delayMax,
		sleep:     time.Sleep,
	}
}

// Run walks all collectible products in stable article order, fetching each with
// the cache bypassed and appending a snapshot whether the fetch succeeded
// or not. A single product failure never aborts the run. Returns a
// Skipped summary when another run is already in progress.
func (c *Collector) Run(ctx context.Context) (domain.RunSummary, error) {
	if !c.mu.TryLock() {
		applog.Job("collector", "run.skipped", map[string]any{"reason": "already running"})
		return domain.RunSummary{Skipped: true}, nil
	}
	defer c.mu.Unlock()

	start := time.Now()
	summary := domain.RunSummary{StartedAt: start.UTC().Format(repos.TimeLayout)}

	products, err := c.Products.ListCollectible()
	if err != nil {
		return summary, err
	}
	applog.Job("collector", "run.start", map[string]any{"products": len(products)})

	processed := make([]string, 0, len(products))
	for i, p := range products {
		select {
		case <-ctx.Done():
			applog.Job("collector", "run.cancelled", map[string]any{"done": i})
			summary.DurationMS = time.Since(start).Milliseconds()
			return summary, ctx.Err()
		default:
		}

		summary.Attempted++
		c.collectOne(ctx, p, &summary)
		processed = append(processed, p.ID)

		if i < len(products)-1 {
			c.sleep(c.itemDelay())
		}
		if (i+1)%c.BatchSize == 0 {
			applog.Job("collector", "batch.done", map[string]any{"done": i + 1, "total": len(products)})
		}
	}

	// Tail pass: refresh denormalized rolling averages in one sweep.
	c.Agg.RefreshMany(processed)

	summary.DurationMS = time.Since(start).Milliseconds()
	applog.Job("collector", "run.done", map[string]any{
		"attempted": summary.Attempted, "succeeded": summary.Succeeded,
		"failed": summary.Failed, "append_errors": summary.AppendErrors,
		"duration_ms": summary.DurationMS,
	})
	return summary, nil
}

func (c *Collector) collectOne(ctx context.Context, p domain.TrackedProduct, summary *domain.RunSummary) {
	attrs, ferr := c.Fetch.Fetch(ctx, p.Article, true)

	snap := &domain.PriceSnapshot{ProductID: p.ID}
	if ferr != nil {
		summary.Failed++
		snap.Success = false
		applog.JobError("collector", "item.fetch.fail", ferr, map[string]any{"article": p.Article})
		if err := c.Products.MarkProblem(p.ID); err != nil {
			applog.JobError("collector", "item.mark.fail", err, map[string]any{"product_id": p.ID})
		}
	} else {
		summary.Succeeded++
		snap.Success = true
		snap.Price = &attrs.Price
		snap.CardPrice = attrs.CardPrice
		snap.OldPrice = attrs.OldPrice
		snap.Available = attrs.Available
		snap.Rating = attrs.Rating
		snap.ReviewCount = attrs.ReviewCount
		snap.FetchMS = attrs.FetchMS
		if err := c.Products.UpdateAttrs(p.ID, attrs); err != nil {
			applog.JobError("collector", "item.update.fail", err, map[string]any{"product_id": p.ID})
		}
	}

	// Append retried once, then counted as a degraded run.
	if err := c.History.Append(snap); err != nil {
		if err = c.History.Append(snap); err != nil {
			summary.AppendErrors++
			applog.JobError("collector", "item.append.fail", err, map[string]any{"product_id": p.ID})
		}
	}
}

func (c *Collector) itemDelay() time.Duration {
	if c.DelayMax <= c.DelayMin {
		return c.DelayMin
	}
	return c.DelayMin + time.Duration(rand.Int63n(int64(c.DelayMax-c.DelayMin)))
}
