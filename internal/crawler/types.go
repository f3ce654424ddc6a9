package crawler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one harvested catalog entry. It is built once by the Extractor
// and never modified afterwards.
type Product struct {
	ID              string
	Title           string
	Brand           string
	PriceSale       decimal.Decimal
	PriceOriginal   decimal.NullDecimal
	DiscountPercent int
	ImageURL        *string
	ProductURL      string
	SourceCategory  string
	ScrapedAt       time.Time
}

type productJSON struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Brand           string       `json:"brand"`
	PriceSale       json.Number  `json:"price_sale"`
	PriceOriginal   *json.Number `json:"price_original"`
	DiscountPercent int          `json:"discount_percent"`
	ImageURL        *string      `json:"image_url"`
	ProductURL      string       `json:"product_url"`
	SourceCategory  string       `json:"source_category"`
	ScrapedAt       time.Time    `json:"scraped_at"`
}

// MarshalJSON writes prices as numbers with exactly two decimals
func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:              p.ID,
		Title:           p.Title,
		Brand:           p.Brand,
		PriceSale:       json.Number(p.PriceSale.StringFixed(2)),
		DiscountPercent: p.DiscountPercent,
		ImageURL:        p.ImageURL,
		ProductURL:      p.ProductURL,
		SourceCategory:  p.SourceCategory,
		ScrapedAt:       p.ScrapedAt,
	}
	if p.PriceOriginal.Valid {
		n := json.Number(p.PriceOriginal.Decimal.StringFixed(2))
		out.PriceOriginal = &n
	}
	return json.Marshal(out)
}

// CategoryStatus tells apart the ways a category can end
type CategoryStatus string

const (
	// StatusOK means at least one record was harvested
	StatusOK CategoryStatus = "ok"
	// StatusEmpty means the page loaded but no fragment produced a valid record
	StatusEmpty CategoryStatus = "empty"
	// StatusGated means navigation landed on a country or availability gate
	StatusGated CategoryStatus = "gated"
	// StatusFailed means navigation or snapshotting failed after all retries
	StatusFailed CategoryStatus = "failed"
	// StatusSkipped means the category was not visited, e.g. during a gate cooldown
	StatusSkipped CategoryStatus = "skipped"
)

// RejectReason names why a fragment did not produce a record
type RejectReason string

const (
	RejectNoURL            RejectReason = "no_url"
	RejectNoTitle          RejectReason = "no_title"
	RejectNoPrice          RejectReason = "no_price"
	RejectBelowMinPrice    RejectReason = "below_min_price"
	RejectBelowMinDiscount RejectReason = "below_min_discount"
	RejectPanic            RejectReason = "panic"
)

// CategoryResult is the outcome of one category run
type CategoryResult struct {
	URL       string               `json:"url"`
	Status    CategoryStatus       `json:"status"`
	LandedURL string               `json:"landed_url,omitempty"`
	Fragments int                  `json:"fragments"`
	Products  []Product            `json:"-"`
	Rejected  map[RejectReason]int `json:"rejected,omitempty"`
	Err       error                `json:"-"`
	Duration  time.Duration        `json:"duration"`
}

// Recorder receives pipeline measurements
type Recorder interface {
	ObserveCategory(status CategoryStatus, duration time.Duration)
	AddRecords(n int)
	IncRejected(reason RejectReason)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCategory(CategoryStatus, time.Duration) {}
func (nopRecorder) AddRecords(int)                                {}
func (nopRecorder) IncRejected(RejectReason)                      {}

// Batch is the outcome of one full run over all categories
type Batch struct {
	Products   []Product
	Categories []CategoryResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Count returns how many categories ended with status
func (b Batch) Count(status CategoryStatus) int {
	n := 0
	for _, c := range b.Categories {
		if c.Status == status {
			n++
		}
	}
	return n
}
