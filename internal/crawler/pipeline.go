package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

// PipelineConfig sizes a category run
type PipelineConfig struct {
	TargetCount  int
	MaxSteps     int
	ItemSelector string
}

// Pipeline harvests one category at a time over a shared page
type Pipeline struct {
	page        browser.Page
	navigator   *Navigator
	loader      *Loader
	extractor   *Extractor
	diagnostics *Diagnostics
	recorder    Recorder
	cfg         PipelineConfig
	logger      *logger.Logger
}

// NewPipeline wires the pipeline components. diagnostics and recorder may be nil.
func NewPipeline(
	page browser.Page,
	navigator *Navigator,
	loader *Loader,
	extractor *Extractor,
	diagnostics *Diagnostics,
	recorder Recorder,
	cfg PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		page:        page,
		navigator:   navigator,
		loader:      loader,
		extractor:   extractor,
		diagnostics: diagnostics,
		recorder:    recorder,
		cfg:         cfg,
		logger:      log,
	}
}

// Run harvests categoryURL. It never returns an error: failures are reported
// through the result status.
func (p *Pipeline) Run(ctx context.Context, categoryURL string) CategoryResult {
	start := time.Now()
	result := p.run(ctx, categoryURL)
	result.Duration = time.Since(start)

	p.recorder.ObserveCategory(result.Status, result.Duration)
	p.recorder.AddRecords(len(result.Products))
	for reason, n := range result.Rejected {
		for i := 0; i < n; i++ {
			p.recorder.IncRejected(reason)
		}
	}

	log := p.logger.ForCategory(categoryURL)
	event := log.Info()
	if result.Err != nil {
		event = log.Warn().Err(result.Err)
	}
	event.
		Str("status", string(result.Status)).
		Int("fragments", result.Fragments).
		Int("records", len(result.Products)).
		Interface("rejected", result.Rejected).
		Dur("duration", result.Duration).
		Msg("Category finished")

	return result
}

func (p *Pipeline) run(ctx context.Context, categoryURL string) CategoryResult {
	result := CategoryResult{URL: categoryURL}

	outcome, err := p.navigator.Open(ctx, categoryURL)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		p.diagnostics.Capture(ctx, categoryURL, "navigation")
		return result
	}
	result.LandedURL = outcome.FinalURL
	if !outcome.OK {
		result.Status = StatusGated
		result.Err = errors.NewGate(categoryURL, outcome.FinalURL)
		return result
	}

	p.loader.LoadUntil(ctx, p.cfg.TargetCount, p.cfg.MaxSteps)

	html, err := p.page.HTML(ctx)
	if err != nil {
		result.Status = StatusFailed
		result.Err = errors.NewExtraction(categoryURL, "page snapshot failed", err)
		p.diagnostics.Capture(ctx, categoryURL, "snapshot")
		return result
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Status = StatusFailed
		result.Err = errors.NewExtraction(categoryURL, "page snapshot unparsable", err)
		return result
	}

	fragments := doc.Find(p.cfg.ItemSelector)
	if p.cfg.TargetCount > 0 && fragments.Length() > p.cfg.TargetCount {
		fragments = fragments.Slice(0, p.cfg.TargetCount)
	}
	result.Fragments = fragments.Length()

	result.Products, result.Rejected = p.extractAll(fragments, categoryURL)
	if len(result.Products) == 0 {
		result.Status = StatusEmpty
		p.diagnostics.Capture(ctx, categoryURL, "empty")
		return result
	}

	result.Status = StatusOK
	return result
}

// extractAll evaluates fragments concurrently and returns the records in page order
func (p *Pipeline) extractAll(fragments *goquery.Selection, baseURL string) ([]Product, map[RejectReason]int) {
	type outcome struct {
		product Product
		reason  RejectReason
	}
	outcomes := make([]outcome, fragments.Length())

	var wg sync.WaitGroup
	fragments.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			prod, reason := p.extractor.Evaluate(s, baseURL)
			outcomes[i] = outcome{product: prod, reason: reason}
		}(i, s)
	})
	wg.Wait()

	var products []Product
	rejected := make(map[RejectReason]int)
	for _, o := range outcomes {
		if o.reason != "" {
			rejected[o.reason]++
			continue
		}
		products = append(products, o.product)
	}
	return products, rejected
}
