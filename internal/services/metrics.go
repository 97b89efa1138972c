package services

import (
	"fmt"
	"math"

	"pricewatch/internal/config"
	"pricewatch/internal/domain"
)

// MetricScore is a normalized per-metric score in [0,1] favoring the own
// side. Known=false means missing data: the metric contributes the neutral
// 0.5 instead of being excluded or confused with a real zero.
type MetricScore struct {
	Value float64
	Known bool
}

// Side carries the attributes of one comparison side. RollingAvg comes from
// the aggregator's denormalized window average.
type Side struct {
	Price       float64
	CardPrice   *float64
	Rating      *float64
	ReviewCount *int
	Available   bool
	RollingAvg  *float64
}

// SideFromProduct maps a tracked product's last-known attributes onto a
// comparison side. ok is false until the product has been fetched at least
// once.
func SideFromProduct(p domain.TrackedProduct) (Side, bool) {
	if p.Price == nil {
		return Side{}, false
	}
	return Side{
		Price:       *p.Price,
		CardPrice:   p.CardPrice,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Available:   p.Available,
		RollingAvg:  p.RollingAvg,
	}, true
}

type PriceDiff struct {
	Absolute       float64 `json:"absolute"`
	Percentage     float64 `json:"percentage"`
	WhoCheaper     string  `json:"who_cheaper"`
	Recommendation string  `json:"recommendation"`
}

type RatingDiff struct {
	Absolute  float64 `json:"absolute"`
	WhoBetter string  `json:"who_better"`
}

type DiscountDiff struct {
	Own        float64 `json:"own"`
	Competitor float64 `json:"competitor"`
	Absolute   float64 `json:"absolute"`
	// Percentage is undefined (null, not zero) when the competitor's
	// discount index is 0.
	Percentage *float64 `json:"percentage"`
	WhoBetter  string   `json:"who_better"`
}

type ReviewsDiff struct {
	Absolute   int     `json:"absolute"`
	Percentage float64 `json:"percentage"`
	WhoMore    string  `json:"who_more"`
}

// Metrics is the full comparison result for one own/competitor pair.
// Rating/Discount/Reviews stay null (not zero) when data is missing on
// either side.
type Metrics struct {
	Price          *PriceDiff    `json:"price"`
	Rating         *RatingDiff   `json:"rating"`
	Discount       *DiscountDiff `json:"discount"`
	Reviews        *ReviewsDiff  `json:"reviews"`
	Index          float64       `json:"index"`
	Grade          string        `json:"grade"`
	Recommendation string        `json:"recommendation"`
}

// ComputeMetrics derives all comparison metrics for exactly one own and one
// competitor side. It is pure: the same inputs always yield bit-identical
// output.
func ComputeMetrics(own, comp Side, w config.Weights, bounds [4]float64) Metrics {
	m := Metrics{}
	scores := map[string]MetricScore{}

	// Price: absolute and percentage share the base-price basis so their
	// signs can never disagree. Only who_cheaper consults the effective
	// (card) price.
	pct := round2((own.Price - comp.Price) / comp.Price * 100)
	m.Price = &PriceDiff{
		Absolute:       round2(own.Price - comp.Price),
		Percentage:     pct,
		WhoCheaper:     whoLower(effectivePrice(own), effectivePrice(comp)),
		Recommendation: priceRecommendation(pct),
	}
	scores["price"] = MetricScore{Value: clamp01(0.5 - pct/20), Known: true}

	// Rating: undefined when either side lacks one.
	if own.Rating != nil && comp.Rating != nil {
		diff := round2(*own.Rating - *comp.Rating)
		m.Rating = &RatingDiff{Absolute: diff, WhoBetter: whoHigher(*own.Rating, *comp.Rating)}
		scores["rating"] = MetricScore{Value: clamp01(0.5 + diff), Known: true}
	} else {
		scores["rating"] = MetricScore{Value: 0.5}
	}

	// Discount index: how far the effective price sits below the rolling
	// window average, per side.
	ownDisc, ownOK := discountIndex(own)
	compDisc, compOK := discountIndex(comp)
	if ownOK && compOK {
		abs := round2(ownDisc - compDisc)
		d := &DiscountDiff{
			Own:        ownDisc,
			Competitor: compDisc,
			Absolute:   abs,
			WhoBetter:  whoHigher(ownDisc, compDisc),
		}
		if compDisc != 0 {
			p := round2(abs / compDisc * 100)
			d.Percentage = &p
		}
		m.Discount = d
		scores["discount"] = MetricScore{Value: clamp01(0.5 + abs/20), Known: true}
	} else {
		scores["discount"] = MetricScore{Value: 0.5}
	}

	// Reviews.
	if own.ReviewCount != nil && comp.ReviewCount != nil {
		o, c := *own.ReviewCount, *comp.ReviewCount
		rd := &ReviewsDiff{Absolute: o - c, WhoMore: whoHigher(float64(o), float64(c))}
		switch {
		case c > 0:
			rd.Percentage = round2(float64(o-c) / float64(c) * 100)
		case o > 0:
			rd.Percentage = 100
		}
		m.Reviews = rd
		scores["reviews"] = MetricScore{Value: clamp01(0.5 + rd.Percentage/200), Known: true}
	} else {
		scores["reviews"] = MetricScore{Value: 0.5}
	}

	// Availability.
	switch {
	case own.Available == comp.Available:
		scores["availability"] = MetricScore{Value: 0.5, Known: true}
	case own.Available:
		scores["availability"] = MetricScore{Value: 1, Known: true}
	default:
		scores["availability"] = MetricScore{Value: 0, Known: true}
	}

	m.Index = CompositeIndex(scores, w)
	m.Grade = GradeFor(m.Index, bounds)
	m.Recommendation = overallRecommendation(m.Grade, scores)
	return m
}

// CompositeIndex is the weighted sum over per-metric scores, clamped to
// [0,1]. Unknown metrics already carry the neutral 0.5.
func CompositeIndex(scores map[string]MetricScore, w config.Weights) float64 {
	weights := map[string]float64{
		"price":        w.Price,
		"rating":       w.Rating,
		"discount":     w.Discount,
		"reviews":      w.Reviews,
		"availability": w.Availability,
	}
	// Fixed summation order keeps recomputation bit-identical.
	var sum, total float64
	for _, name := range metricOrder {
		weight := weights[name]
		score, ok := scores[name]
		if !ok {
			score = MetricScore{Value: 0.5}
		}
		sum += weight * score.Value
		total += weight
	}
	if total == 0 {
		return 0.5
	}
	return clamp01(sum / total)
}

// GradeFor buckets the index into a letter grade. Lower bounds inclusive.
func GradeFor(index float64, bounds [4]float64) string {
	switch {
	case index >= bounds[0]:
		return "A"
	case index >= bounds[1]:
		return "B"
	case index >= bounds[2]:
		return "C"
	case index >= bounds[3]:
		return "D"
	default:
		return "F"
	}
}

var metricHints = map[string]string{
	"price":        "consider a 5-10% price reduction",
	"rating":       "work on product quality and rating",
	"discount":     "consider a promotional or loyalty discount",
	"reviews":      "grow the review base",
	"availability": "restore stock availability",
}

// metricOrder fixes the tie-break for the weakest metric: halt on the first
// minimum in weight order.
var metricOrder = []string{"price", "rating", "discount", "reviews", "availability"}

func overallRecommendation(grade string, scores map[string]MetricScore) string {
	if grade == "A" {
		return "Grade A - competitive across the board"
	}
	weakest := ""
	low := math.Inf(1)
	for _, name := range metricOrder {
		s, ok := scores[name]
		if !ok || !s.Known {
			continue
		}
		if s.Value < low {
			low = s.Value
			weakest = name
		}
	}
	if weakest == "" {
		return fmt.Sprintf("Grade %s - insufficient data for a recommendation", grade)
	}
	return fmt.Sprintf("Grade %s - %s is the primary disadvantage; %s", grade, weakest, metricHints[weakest])
}

func priceRecommendation(pct float64) string {
	switch {
	case pct > 10:
		return "price is more than 10% above the competitor; consider lowering it"
	case pct < -10:
		return "clear price advantage; there may be room to raise"
	default:
		return "price is competitive"
	}
}

func effectivePrice(s Side) float64 {
	if s.CardPrice != nil && *s.CardPrice > 0 {
		return *s.CardPrice
	}
	return s.Price
}

// discountIndex is the percentage by which the effective price sits below
// the rolling window average. Undefined without a window average.
func discountIndex(s Side) (float64, bool) {
	if s.RollingAvg == nil || *s.RollingAvg <= 0 {
		return 0, false
	}
	return round2((*s.RollingAvg - effectivePrice(s)) / *s.RollingAvg * 100), true
}

func whoLower(own, comp float64) string {
	switch {
	case own < comp:
		return "own"
	case comp < own:
		return "competitor"
	default:
		return "equal"
	}
}

func whoHigher(own, comp float64) string {
	switch {
	case own > comp:
		return "own"
	case comp > own:
		return "competitor"
	default:
		return "equal"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
