package fetch

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/domain"
)

// Extractor is one strategy for mapping a raw product page into the
// internal attribute schema. Strategies are tried in order; the first one
// yielding a plausible price wins.
type Extractor interface {
	Name() string
	Try(doc *goquery.Document) (domain.ProductAttrs, bool)
}

// DefaultExtractors returns the production strategy chain: embedded state
// JSON first, schema.org markup second, visual selectors last.
func DefaultExtractors() []Extractor {
	return []Extractor{stateExtractor{}, ldJSONExtractor{}, selectorExtractor{}}
}

// stateExtractor reads the page's embedded JSON state block.
type stateExtractor struct{}

func (stateExtractor) Name() string { return "state_json" }

func (stateExtractor) Try(doc *goquery.Document) (domain.ProductAttrs, bool) {
	raw := doc.Find(`script#product-state`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return domain.ProductAttrs{}, false
	}
	var state struct {
		Name  string `json:"name"`
		Price struct {
			Base float64  `json:"base"`
			Card *float64 `json:"card"`
			Old  *float64 `json:"old"`
		} `json:"price"`
		Rating      *float64 `json:"rating"`
		ReviewCount *int     `json:"review_count"`
		Available   bool     `json:"available"`
		Image       string   `json:"image"`
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.ProductAttrs{}, false
	}
	if state.Price.Base <= 0 {
		return domain.ProductAttrs{}, false
	}
	return domain.ProductAttrs{
		Name:        state.Name,
		Price:       state.Price.Base,
		CardPrice:   state.Price.Card,
		OldPrice:    state.Price.Old,
		Rating:      state.Rating,
		ReviewCount: state.ReviewCount,
		Available:   state.Available,
		ImageURL:    state.Image,
	}, true
}

// ldJSONExtractor reads schema.org Product microdata.
type ldJSONExtractor struct{}

func (ldJSONExtractor) Name() string { return "ld_json" }

func (ldJSONExtractor) Try(doc *goquery.Document) (domain.ProductAttrs, bool) {
	var out domain.ProductAttrs
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld struct {
			Type   string `json:"@type"`
			Name   string `json:"name"`
			Image  string `json:"image"`
			Offers struct {
				Price        string `json:"price"`
				Availability string `json:"availability"`
			} `json:"offers"`
			AggregateRating struct {
				RatingValue *float64 `json:"ratingValue"`
				ReviewCount *int     `json:"reviewCount"`
			} `json:"aggregateRating"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil || ld.Type != "Product" {
			return true
		}
		price, ok := parsePrice(ld.Offers.Price)
		if !ok {
			return true
		}
		out = domain.ProductAttrs{
			Name:        ld.Name,
			Price:       price,
			Rating:      ld.AggregateRating.RatingValue,
			ReviewCount: ld.AggregateRating.ReviewCount,
			Available:   strings.Contains(ld.Offers.Availability, "InStock"),
			ImageURL:    ld.Image,
		}
		found = true
		return false
	})
	return out, found
}

// selectorExtractor is the visual fallback: CSS selectors over the rendered
// markup. Selector drift shows up as ParseFailure in the logs.
type selectorExtractor struct{}

func (selectorExtractor) Name() string { return "selectors" }

func (selectorExtractor) Try(doc *goquery.Document) (domain.ProductAttrs, bool) {
	price, ok := parsePrice(firstText(doc, ".price-current", "[data-price]", ".product-price"))
	if !ok {
		return domain.ProductAttrs{}, false
	}
	out := domain.ProductAttrs{
		Name:      firstText(doc, ".product-name", "h1"),
		Price:     price,
		Available: doc.Find(".out-of-stock").Length() == 0,
	}
	if v, ok := parsePrice(firstText(doc, ".price-card")); ok {
		out.CardPrice = &v
	}
	if v, ok := parsePrice(firstText(doc, ".price-old")); ok {
		out.OldPrice = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(firstText(doc, ".rating-value")), 64); err == nil {
		out.Rating = &v
	}
	if n, err := strconv.Atoi(digits(firstText(doc, ".review-count"))); err == nil {
		out.ReviewCount = &n
	}
	if src, ok := doc.Find(".product-image img").First().Attr("src"); ok {
		out.ImageURL = src
	}
	return out, true
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// parsePrice normalizes localized price strings like "1 299,50 ₽".
// A non-positive result is not a plausible price.
func parsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '.':
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
