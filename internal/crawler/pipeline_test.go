package crawler

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

const listingPage = `<html><body><main>
<article class="product">
	<a href="/p/abc123?q=1"><img src="/img/abc123.jpg" alt="Sneaker Model"></a>
	<div class="brand">Brand X</div>
	<div>€39,99</div><div>€79,99</div>
</article>
<article class="product">
	<a href="/p/cheap"><h3>Key Ring</h3></a>
	<div>€2,50</div>
</article>
<article class="product">
	<a href="/p/def456"><h3 class="product-title">Trail Boot</h3></a>
	<span class="brand">Peak</span>
	<div>UVP 149,00 €</div><div>99,00 €</div><div>(1 Paar = 99,00 €/Paar)</div>
</article>
<article class="product">
	<a href="/p/noprice"><h3>Sold out</h3></a>
</article>
</main></body></html>`

// recorder collects pipeline measurements for assertions
type recorder struct {
	mu       sync.Mutex
	statuses []CategoryStatus
	records  int
	rejected map[RejectReason]int
}

func (r *recorder) ObserveCategory(status CategoryStatus, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recorder) AddRecords(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records += n
}

func (r *recorder) IncRejected(reason RejectReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected == nil {
		r.rejected = make(map[RejectReason]int)
	}
	r.rejected[reason]++
}

func newTestPipeline(t *testing.T, page *MockPage, rec Recorder, debugDir string) *Pipeline {
	t.Helper()
	log := logger.Nop()

	nav := newTestNavigator(page)
	loader := newTestLoader(page)
	extractor := NewExtractor(ExtractorConfig{MinSalePrice: decimal.NewFromInt(5)}, log)

	return NewPipeline(page, nav, loader, extractor, NewDiagnostics(debugDir, page, log), rec,
		PipelineConfig{TargetCount: 50, MaxSteps: 10, ItemSelector: "article.product"}, log)
}

func TestPipelineRun(t *testing.T) {
	page := &MockPage{counts: []int{4}, html: listingPage}
	rec := &recorder{}

	result := newTestPipeline(t, page, rec, "").Run(context.Background(), categoryURL)

	require.NoError(t, result.Err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, categoryURL, result.LandedURL)
	assert.Equal(t, 4, result.Fragments)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "https://shop.example/p/abc123", result.Products[0].ID)
	assert.Equal(t, 50, result.Products[0].DiscountPercent)
	assert.Equal(t, "Trail Boot", result.Products[1].Title)
	assert.Equal(t, "Peak", result.Products[1].Brand)
	assert.True(t, result.Products[1].PriceSale.Equal(decimal.NewFromInt(99)))
	assert.True(t, result.Products[1].PriceOriginal.Decimal.Equal(decimal.NewFromInt(149)))
	assert.Equal(t, 34, result.Products[1].DiscountPercent)

	assert.Equal(t, map[RejectReason]int{RejectBelowMinPrice: 1, RejectNoPrice: 1}, result.Rejected)

	assert.Equal(t, []CategoryStatus{StatusOK}, rec.statuses)
	assert.Equal(t, 2, rec.records)
	assert.Equal(t, 1, rec.rejected[RejectNoPrice])
}

func TestPipelineCapsFragmentsAtTarget(t *testing.T) {
	page := &MockPage{counts: []int{4}, html: listingPage}
	p := newTestPipeline(t, page, nil, "")
	p.cfg.TargetCount = 1

	result := p.Run(context.Background(), categoryURL)

	assert.Equal(t, 1, result.Fragments)
	assert.Len(t, result.Products, 1)
}

func TestPipelineGated(t *testing.T) {
	page := &MockPage{landedURL: "https://shop.example/gate", html: listingPage}

	result := newTestPipeline(t, page, nil, "").Run(context.Background(), categoryURL)

	assert.Equal(t, StatusGated, result.Status)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeGate))
	assert.Contains(t, result.Err.Error(), "https://shop.example/gate")
	assert.Empty(t, result.Products)
	assert.Equal(t, 0, page.countCalls, "gated pages are not loaded")
}

func TestPipelineNavigationFailureCapturesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	fail := stderrors.New("net::ERR_TIMED_OUT")
	page := &MockPage{navigateErrs: []error{fail, fail, fail}}

	result := newTestPipeline(t, page, nil, dir).Run(context.Background(), categoryURL)

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeNavigation))
	assert.Empty(t, result.Products)
	assert.Equal(t, 1, page.screenshots)

	dumps, err := filepath.Glob(filepath.Join(dir, "*_navigation_shop_example_sale_shoes.html"))
	require.NoError(t, err)
	assert.Len(t, dumps, 1)
}

func TestPipelineEmptyCategory(t *testing.T) {
	dir := t.TempDir()
	page := &MockPage{counts: []int{0}, html: `<html><body><p>Keine Angebote</p></body></html>`}

	result := newTestPipeline(t, page, nil, dir).Run(context.Background(), categoryURL)

	assert.Equal(t, StatusEmpty, result.Status)
	assert.NoError(t, result.Err)
	assert.Equal(t, 0, result.Fragments)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "html dump only, screenshot failed")
}

func TestPipelineSnapshotFailure(t *testing.T) {
	page := &MockPage{counts: []int{3}, htmlErr: stderrors.New("target closed")}

	result := newTestPipeline(t, page, nil, "").Run(context.Background(), categoryURL)

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errors.IsType(result.Err, errors.ErrorTypeExtraction))
}
