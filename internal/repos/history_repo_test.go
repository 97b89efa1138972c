package repos_test

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"pricewatch/internal/domain"
	"pricewatch/internal/repos"
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

func seedProduct(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	p := &domain.TrackedProduct{ID: id, OwnerID: "u-1", Article: "ART" + id, Status: domain.StatusActive}
	if err := repos.NewProductRepo(db).Create(p); err != nil {
		t.Fatal(err)
	}
}

func fptr(v float64) *float64 { return &v }

func TestQueryWindow_NoData(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	agg, err := hist.QueryWindow("p1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 0 {
		t.Fatalf("want sample_count 0, got %d", agg.SampleCount)
	}
	if agg.Avg != nil || agg.Min != nil || agg.Max != nil {
		t.Fatalf("no-data window must have nil aggregates, got %+v", agg)
	}
}

func TestQueryWindow_FailedOnlyIsNoData(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	for i := 0; i < 3; i++ {
		if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Success: false}); err != nil {
			t.Fatal(err)
		}
	}

	agg, err := hist.QueryWindow("p1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 0 || agg.Avg != nil {
		t.Fatalf("failed-only window must be no-data, got %+v", agg)
	}
}

func TestQueryWindow_Aggregates(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	for _, price := range []float64{100, 200, 300} {
		if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Price: fptr(price), Success: true}); err != nil {
			t.Fatal(err)
		}
	}
	// A failed row and a foreign product's row must not leak in.
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Success: false}); err != nil {
		t.Fatal(err)
	}
	seedProduct(t, db, "p2")
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p2", Price: fptr(999), Success: true}); err != nil {
		t.Fatal(err)
	}

	agg, err := hist.QueryWindow("p1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 3 {
		t.Fatalf("want 3 samples, got %d", agg.SampleCount)
	}
	if *agg.Avg != 200 || *agg.Min != 100 || *agg.Max != 300 {
		t.Fatalf("want avg=200 min=100 max=300, got %+v", agg)
	}
	if agg.FirstAt == "" || agg.LastAt == "" {
		t.Fatalf("window bounds missing: %+v", agg)
	}
}

func TestQueryWindow_ExcludesOutsideWindow(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	old := time.Now().UTC().AddDate(0, 0, -10).Format(repos.TimeLayout)
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Price: fptr(100), Success: true, CreatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Price: fptr(300), Success: true}); err != nil {
		t.Fatal(err)
	}

	agg, err := hist.QueryWindow("p1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if agg.SampleCount != 1 || *agg.Avg != 300 {
		t.Fatalf("10-day-old row must be outside a 7-day window, got %+v", agg)
	}
}

func TestQueryRecent_OrderAndFailedFilter(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	base := time.Now().UTC()
	rows := []struct {
		price   float64
		success bool
		at      time.Time
	}{
		{100, true, base.Add(-3 * time.Hour)},
		{0, false, base.Add(-2 * time.Hour)},
		{120, true, base.Add(-1 * time.Hour)},
	}
	for _, r := range rows {
		snap := &domain.PriceSnapshot{ProductID: "p1", Success: r.success, CreatedAt: r.at.Format(repos.TimeLayout)}
		if r.success {
			snap.Price = fptr(r.price)
		}
		if err := hist.Append(snap); err != nil {
			t.Fatal(err)
		}
	}

	got, err := hist.QueryRecent("p1", 7, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 successful rows, got %d", len(got))
	}
	if *got[0].Price != 120 || *got[1].Price != 100 {
		t.Fatalf("want newest first (120, 100), got (%v, %v)", *got[0].Price, *got[1].Price)
	}

	all, err := hist.QueryRecent("p1", 7, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 rows with failures included, got %d", len(all))
	}
}

func TestPrune(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	hist := repos.NewHistoryRepo(db)

	old := time.Now().UTC().AddDate(0, 0, -120).Format(repos.TimeLayout)
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Price: fptr(100), Success: true, CreatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := hist.Append(&domain.PriceSnapshot{ProductID: "p1", Price: fptr(200), Success: true}); err != nil {
		t.Fatal(err)
	}

	n, err := hist.Prune(90)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 pruned row, got %d", n)
	}
	// Idempotent: nothing left past retention.
	n, err = hist.Prune(90)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second prune must delete nothing, got %d", n)
	}
}

func TestGroupRepo_DuplicateMember(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	groups := repos.NewGroupRepo(db)

	g := &domain.ComparisonGroup{ID: "g1", OwnerID: "u-1", GroupType: domain.GroupComparison}
	if err := groups.Create(g); err != nil {
		t.Fatal(err)
	}
	m := &domain.GroupMembership{GroupID: "g1", ProductID: "p1", Role: domain.RoleOwn}
	if err := groups.AddMember(m); err != nil {
		t.Fatal(err)
	}
	dup := &domain.GroupMembership{GroupID: "g1", ProductID: "p1", Role: domain.RoleCompetitor}
	if err := groups.AddMember(dup); err != domain.ErrDuplicateMember {
		t.Fatalf("want ErrDuplicateMember, got %v", err)
	}
	members, err := groups.Members("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("group must still have exactly 1 membership, got %d", len(members))
	}
}

func TestGroupRepo_DuplicateMemberConcurrentWriter(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "p1")
	groups := repos.NewGroupRepo(db)

	g := &domain.ComparisonGroup{ID: "g1", OwnerID: "u-1", GroupType: domain.GroupComparison}
	if err := groups.Create(g); err != nil {
		t.Fatal(err)
	}

	// A competing writer lands the membership between any read the repo
	// could have made and its insert; the constraint violation must still
	// surface as the duplicate error, not a raw driver error.
	if _, err := db.Exec(`
  INSERT INTO group_members(group_id, product_id, role, position, created_at)
  VALUES('g1','p1','own',0,?)`, repos.Now()); err != nil {
		t.Fatal(err)
	}
	m := &domain.GroupMembership{GroupID: "g1", ProductID: "p1", Role: domain.RoleCompetitor}
	if err := groups.AddMember(m); err != domain.ErrDuplicateMember {
		t.Fatalf("want ErrDuplicateMember, got %v", err)
	}
}
