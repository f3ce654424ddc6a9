package crawler

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/dealmungchi/saleharvester/helpers"
	"github.com/dealmungchi/saleharvester/internal/price"
	"github.com/dealmungchi/saleharvester/logger"
)

// ExtractorConfig holds the record filters
type ExtractorConfig struct {
	MinSalePrice       decimal.Decimal
	MinDiscountPercent *int
}

// Extractor builds Products from listing fragments. It only reads the
// fragment, so one Extractor may serve many goroutines.
type Extractor struct {
	cfg    ExtractorConfig
	now    func() time.Time
	logger *logger.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(cfg ExtractorConfig, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{cfg: cfg, now: time.Now, logger: log}
}

// Extract builds a Product from fragment, resolving links against baseURL.
// It returns false instead of a partially filled Product.
func (e *Extractor) Extract(fragment *goquery.Selection, baseURL string) (Product, bool) {
	p, reason := e.Evaluate(fragment, baseURL)
	return p, reason == ""
}

// Evaluate is Extract with the rejection reason; the reason is empty on success
func (e *Extractor) Evaluate(fragment *goquery.Selection, baseURL string) (p Product, reason RejectReason) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug().Interface("panic", r).Msg("Fragment extraction panicked")
			p, reason = Product{}, RejectPanic
		}
	}()
	return e.build(fragment, baseURL)
}

func (e *Extractor) build(fragment *goquery.Selection, baseURL string) (Product, RejectReason) {
	productURL, ok := helpers.ResolveURL(baseURL, Resolve(fragment, LinkStrategies))
	if !ok {
		return Product{}, RejectNoURL
	}

	var imageURL *string
	if img, ok := helpers.ResolveURL(baseURL, Resolve(fragment, ImageStrategies)); ok {
		imageURL = &img
	}

	title := Resolve(fragment, TitleStrategies)
	brand := Resolve(fragment, BrandStrategies)

	pair := price.Disambiguate(price.ExtractCandidatePrices(InnerText(fragment)))
	if len(pair.Discarded) > 0 {
		e.logger.Debug().
			Str("product_url", productURL).
			Str("sale", pair.Sale.Decimal.StringFixed(2)).
			Str("original", pair.Original.Decimal.StringFixed(2)).
			Int("discarded", len(pair.Discarded)).
			Msg("More than two price candidates")
	}

	if title == "" {
		return Product{}, RejectNoTitle
	}
	if !pair.Sale.Valid {
		return Product{}, RejectNoPrice
	}
	if pair.Sale.Decimal.LessThan(e.cfg.MinSalePrice) {
		return Product{}, RejectBelowMinPrice
	}

	discount := price.ComputeDiscount(pair.Original, pair.Sale)
	if e.cfg.MinDiscountPercent != nil && discount < *e.cfg.MinDiscountPercent {
		return Product{}, RejectBelowMinDiscount
	}

	return Product{
		ID:              helpers.StripQuery(productURL),
		Title:           title,
		Brand:           brand,
		PriceSale:       pair.Sale.Decimal,
		PriceOriginal:   pair.Original,
		DiscountPercent: discount,
		ImageURL:        imageURL,
		ProductURL:      productURL,
		SourceCategory:  baseURL,
		ScrapedAt:       e.now().UTC(),
	}, ""
}
