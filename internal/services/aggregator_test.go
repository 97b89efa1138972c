package services_test

import (
	"testing"

	"pricewatch/internal/domain"
)

func TestAggregatorRefresh(t *testing.T) {
	f := newFixture(t)
	products := f.seedTracked(t, "u-1", 1)
	id := products[0].ID

	for _, price := range []float64{100, 110, 120} {
		p := price
		if err := f.history.Append(&domain.PriceSnapshot{ProductID: id, Price: &p, Success: true}); err != nil {
			t.Fatal(err)
		}
	}

	agg, err := f.agg.Refresh(id)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 3 {
		t.Fatalf("want 3 samples, got %d", agg.SampleCount)
	}

	p, err := f.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.RollingAvg == nil || *p.RollingAvg != 110 {
		t.Fatalf("want rolling_avg 110, got %+v", p.RollingAvg)
	}
	if p.RollingAvgAt == "" {
		t.Fatal("rolling_avg_at must be stamped")
	}
}

func TestAggregatorRefresh_Idempotent(t *testing.T) {
	f := newFixture(t)
	products := f.seedTracked(t, "u-1", 1)
	id := products[0].ID

	price := 250.0
	if err := f.history.Append(&domain.PriceSnapshot{ProductID: id, Price: &price, Success: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.agg.Refresh(id); err != nil {
		t.Fatal(err)
	}
	first, err := f.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}

	// No new snapshots: a second refresh yields the identical aggregate.
	if _, err := f.agg.Refresh(id); err != nil {
		t.Fatal(err)
	}
	second, err := f.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if *first.RollingAvg != *second.RollingAvg {
		t.Fatalf("refresh not idempotent: %v vs %v", *first.RollingAvg, *second.RollingAvg)
	}
}

func TestAggregatorRefresh_NoDataWritesNull(t *testing.T) {
	f := newFixture(t)
	products := f.seedTracked(t, "u-1", 1)
	id := products[0].ID

	// Failed-only history is still "no data".
	if err := f.history.Append(&domain.PriceSnapshot{ProductID: id, Success: false}); err != nil {
		t.Fatal(err)
	}

	agg, err := f.agg.Refresh(id)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 0 {
		t.Fatalf("want no data, got %+v", agg)
	}

	p, err := f.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.RollingAvg != nil {
		t.Fatalf("no-data refresh must write NULL, got %v", *p.RollingAvg)
	}
}
