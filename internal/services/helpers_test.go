package services_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"pricewatch/internal/config"
	"pricewatch/internal/domain"
	"pricewatch/internal/fetch"
	"pricewatch/internal/repos"
	"pricewatch/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1) // one shared in-memory database
	return db
}

// fakeFetcher serves canned attributes per article; articles in fail return
// a typed fetch error. block, when set, holds every call until released.
type fakeFetcher struct {
	attrs map[string]domain.ProductAttrs
	fail  map[string]fetch.Kind
	calls int64
	block chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		attrs: make(map[string]domain.ProductAttrs),
		fail:  make(map[string]fetch.Kind),
	}
}

func (f *fakeFetcher) add(article string, price float64, rating float64, reviews int) {
	r, n := rating, reviews
	f.attrs[article] = domain.ProductAttrs{
		Article:     article,
		Name:        "Product " + article,
		Price:       price,
		Rating:      &r,
		ReviewCount: &n,
		Available:   true,
		FetchedAt:   time.Now().UTC(),
		FetchMS:     12,
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, article string, skipCache bool) (domain.ProductAttrs, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	if kind, ok := f.fail[article]; ok {
		return domain.ProductAttrs{}, &fetch.Error{Kind: kind, Article: article}
	}
	attrs, ok := f.attrs[article]
	if !ok {
		return domain.ProductAttrs{}, &fetch.Error{Kind: fetch.KindNotFound, Article: article}
	}
	attrs.FetchedAt = time.Now().UTC()
	return attrs, nil
}

type fixture struct {
	db       *sqlx.DB
	fetcher  *fakeFetcher
	products *repos.ProductRepo
	history  *repos.HistoryRepo
	groups   *repos.GroupRepo
	snaps    *repos.SnapshotRepo
	agg      *services.Aggregator
	tracker  *services.TrackerService
	comp     *services.ComparisonService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memdb(t)
	f := &fixture{
		db:       db,
		fetcher:  newFakeFetcher(),
		products: repos.NewProductRepo(db),
		history:  repos.NewHistoryRepo(db),
		groups:   repos.NewGroupRepo(db),
		snaps:    repos.NewSnapshotRepo(db),
	}
	cfg := config.Config{
		WindowDays:   7,
		FreshnessSec: 3600,
		Weights:      testWeights,
		GradeBounds:  testBounds,
	}
	f.agg = services.NewAggregator(f.products, f.history, cfg.WindowDays)
	f.tracker = services.NewTrackerService(f.products, f.history, f.fetcher, f.agg)
	f.comp = services.NewComparisonService(f.groups, f.snaps, f.products, f.tracker, f.fetcher, cfg)
	return f
}

func (f *fixture) seedTracked(t *testing.T, owner string, n int) []domain.TrackedProduct {
	t.Helper()
	out := make([]domain.TrackedProduct, 0, n)
	for i := 0; i < n; i++ {
		article := fmt.Sprintf("ART%05d", i)
		p := domain.TrackedProduct{
			ID:      fmt.Sprintf("p-%03d", i),
			OwnerID: owner,
			Article: article,
			Status:  domain.StatusActive,
		}
		if err := f.products.Create(&p); err != nil {
			t.Fatal(err)
		}
		out = append(out, p)
	}
	return out
}

func (f *fixture) snapshotCount(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := f.db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatal(err)
	}
	return n
}
