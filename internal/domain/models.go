package domain

import "time"

// Product lifecycle statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusError    = "error"
)

// Group types.
const (
	GroupComparison = "comparison"
	GroupVariants   = "variants"
	GroupSimilar    = "similar"
)

// Membership roles.
const (
	RoleOwn        = "own"
	RoleCompetitor = "competitor"
	RoleItem       = "item"
)

type TrackedProduct struct {
	ID          string   `db:"id" json:"id"`
	OwnerID     string   `db:"owner_id" json:"owner_id"`
	Article     string   `db:"article" json:"article"`
	Status      string   `db:"status" json:"status"` // active | inactive | error
	Problematic bool     `db:"problematic" json:"problematic"`
	Name        *string  `db:"name" json:"name,omitempty"`
	Price       *float64 `db:"price" json:"price,omitempty"`
	CardPrice   *float64 `db:"card_price" json:"card_price,omitempty"`
	OldPrice    *float64 `db:"old_price" json:"old_price,omitempty"`
	Rating      *float64 `db:"rating" json:"rating,omitempty"`
	ReviewCount *int     `db:"review_count" json:"review_count,omitempty"`
	Available   bool     `db:"available" json:"available"`
	ImageURL    *string  `db:"image_url" json:"image_url,omitempty"`
	FetchedAt   string   `db:"fetched_at" json:"fetched_at,omitempty"`
	// Rolling window average; written only by the aggregator.
	RollingAvg   *float64 `db:"rolling_avg" json:"rolling_avg,omitempty"`
	RollingAvgAt string   `db:"rolling_avg_at" json:"rolling_avg_at,omitempty"`
	CreatedAt    string   `db:"created_at" json:"created_at"`
	UpdatedAt    string   `db:"updated_at" json:"updated_at,omitempty"`
}

// ProductAttrs is one point-in-time read of a product's public attributes,
// as returned by the fetch client.
type ProductAttrs struct {
	Article     string    `json:"article"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	CardPrice   *float64  `json:"card_price,omitempty"`
	OldPrice    *float64  `json:"old_price,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"review_count,omitempty"`
	Available   bool      `json:"available"`
	ImageURL    string    `json:"image_url,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	FetchMS     int64     `json:"fetch_ms"`
}

// PriceSnapshot is an append-only history row. Failed fetches still produce
// a row with Success=false and NULL prices so gaps stay observable.
type PriceSnapshot struct {
	ID          int64    `db:"id" json:"id"`
	ProductID   string   `db:"product_id" json:"product_id"`
	Price       *float64 `db:"price" json:"price,omitempty"`
	CardPrice   *float64 `db:"card_price" json:"card_price,omitempty"`
	OldPrice    *float64 `db:"old_price" json:"old_price,omitempty"`
	Available   bool     `db:"available" json:"available"`
	Rating      *float64 `db:"rating" json:"rating,omitempty"`
	ReviewCount *int     `db:"review_count" json:"review_count,omitempty"`
	Success     bool     `db:"success" json:"success"`
	FetchMS     int64    `db:"fetch_ms" json:"fetch_ms"`
	CreatedAt   string   `db:"created_at" json:"created_at"`
}

// WindowAggregate is the result of a rolling-window query over successful
// snapshots. SampleCount==0 means "no data": Avg/Min/Max are nil, never 0.
type WindowAggregate struct {
	Avg         *float64 `json:"avg"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	SampleCount int      `json:"sample_count"`
	FirstAt     string   `json:"first_at,omitempty"`
	LastAt      string   `json:"last_at,omitempty"`
}

type ComparisonGroup struct {
	ID        string `db:"id" json:"id"`
	OwnerID   string `db:"owner_id" json:"owner_id"`
	Name      string `db:"name" json:"name,omitempty"`
	GroupType string `db:"group_type" json:"group_type"` // comparison | variants | similar
	CreatedAt string `db:"created_at" json:"created_at"`
}

type GroupMembership struct {
	GroupID   string `db:"group_id" json:"group_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Role      string `db:"role" json:"role"` // own | competitor | item
	Position  int    `db:"position" json:"position"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Member joins a membership with its tracked product.
type Member struct {
	GroupMembership
	Product TrackedProduct `json:"product"`
}

// ComparisonSnapshot is an immutable record of one computed comparison.
type ComparisonSnapshot struct {
	ID        string   `db:"id" json:"id"`
	GroupID   string   `db:"group_id" json:"group_id"`
	Payload   string   `db:"payload" json:"payload"` // member attrs at compute time (JSON)
	Metrics   *string  `db:"metrics" json:"metrics,omitempty"`
	CompIndex *float64 `db:"comp_index" json:"comp_index,omitempty"`
	Grade     *string  `db:"grade" json:"grade,omitempty"`
	IsFresh   bool     `db:"is_fresh" json:"is_fresh"`
	CreatedAt string   `db:"created_at" json:"created_at"`
}

// RunSummary reports one collector run.
type RunSummary struct {
	StartedAt    string `json:"started_at"`
	Attempted    int    `json:"attempted"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
	AppendErrors int    `json:"append_errors"`
	DurationMS   int64  `json:"duration_ms"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// UserStats aggregates an owner's tracking footprint.
type UserStats struct {
	OwnerID      string   `json:"owner_id"`
	Products     int      `json:"products"`
	Groups       int      `json:"groups"`
	AvgCompIndex *float64 `json:"avg_comp_index,omitempty"`
}
