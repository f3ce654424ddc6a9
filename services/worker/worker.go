package worker

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/dealmungchi/saleharvester/internal"
	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/logger"
)

const (
	publishKey     = "product"
	handoffTimeout = 30 * time.Second
)

// Runner harvests a single category
type Runner interface {
	Run(ctx context.Context, categoryURL string) crawler.CategoryResult
}

// Worker runs every category, merges the results and hands them to the sinks
type Worker struct {
	ctx           context.Context
	runner        Runner
	categories    []string
	deps          internal.Dependencies
	logger        *logger.Logger
	crawlInterval time.Duration

	mu      sync.RWMutex
	last    crawler.Batch
	hasLast bool
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	runner Runner,
	categories []string,
	deps internal.Dependencies,
	crawlInterval time.Duration,
) *Worker {
	return &Worker{
		ctx:           ctx,
		runner:        runner,
		categories:    categories,
		deps:          deps,
		logger:        logger.ForWorker(),
		crawlInterval: crawlInterval,
	}
}

// Start runs once, or on every crawl interval until the context is done
func (w *Worker) Start() error {
	for {
		start := time.Now()
		w.RunOnce(w.ctx)
		w.logger.Info().Dur("elapsed", time.Since(start)).Msg("Run finished")

		if w.crawlInterval <= 0 {
			return nil
		}
		select {
		case <-w.ctx.Done():
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// RunOnce harvests all categories in order and returns the merged batch.
// Categories are visited one after another over the shared page.
func (w *Worker) RunOnce(ctx context.Context) crawler.Batch {
	batch := crawler.Batch{StartedAt: time.Now().UTC()}
	lists := make([][]crawler.Product, 0, len(w.categories))

	for _, url := range w.categories {
		if ctx.Err() != nil {
			w.logger.Warn().Str("category", url).Msg("Run cancelled, remaining categories not visited")
			break
		}
		result := w.runCategory(ctx, url)
		batch.Categories = append(batch.Categories, result)
		lists = append(lists, result.Products)
	}

	batch.Products = crawler.Merge(lists...)
	batch.FinishedAt = time.Now().UTC()

	// A cancelled run still hands off what it harvested.
	handoffCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handoffTimeout)
	defer cancel()
	w.publish(batch.Products)
	w.save(handoffCtx, batch)
	if w.deps.Recorder != nil {
		w.deps.Recorder.IncRuns()
	}

	w.mu.Lock()
	w.last, w.hasLast = batch, true
	w.mu.Unlock()

	w.logger.Info().
		Int("records", len(batch.Products)).
		Int("ok", batch.Count(crawler.StatusOK)).
		Int("empty", batch.Count(crawler.StatusEmpty)).
		Int("gated", batch.Count(crawler.StatusGated)).
		Int("failed", batch.Count(crawler.StatusFailed)).
		Int("skipped", batch.Count(crawler.StatusSkipped)).
		Msg("Run summary")
	return batch
}

// LastRun returns the most recent completed batch
func (w *Worker) LastRun() (crawler.Batch, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.hasLast
}

func (w *Worker) runCategory(ctx context.Context, url string) crawler.CategoryResult {
	if w.deps.Cooldown.Active(url) {
		w.logger.Info().Str("category", url).Msg("Gate cooldown active, skipping category")
		return crawler.CategoryResult{URL: url, Status: crawler.StatusSkipped}
	}

	result := w.runner.Run(ctx, url)
	if result.Status == crawler.StatusGated {
		if err := w.deps.Cooldown.Start(url); err != nil {
			w.logger.Warn().Err(err).Str("category", url).Msg("Failed to start gate cooldown")
		}
	}
	return result
}

// publish streams every record and trims the stream afterwards
func (w *Worker) publish(products []crawler.Product) {
	if w.deps.Publisher == nil {
		return
	}

	for i, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			w.logger.Error().Err(err).Str("id", p.ID).Msg("Failed to encode record")
			continue
		}
		if err := w.deps.Publisher.Publish(publishKey, data); err != nil {
			w.logger.Error().Err(err).Str("id", p.ID).Msg("Failed to publish record")
			continue
		}
		if i == 0 && os.Getenv("HARVEST_ENVIRONMENT") != "production" {
			w.logger.Debug().RawJSON("record", data).Msg("Published first record")
		}
	}

	if err := w.deps.Publisher.TrimStreams(); err != nil {
		w.logger.Error().Err(err).Msg("Stream trimming failed")
	}
}

func (w *Worker) save(ctx context.Context, batch crawler.Batch) {
	for _, sink := range w.deps.Sinks {
		if err := sink.Save(ctx, batch); err != nil {
			w.logger.Error().Err(err).Str("sink", sink.Name()).Msg("Sink failed")
			if w.deps.Recorder != nil {
				w.deps.Recorder.IncSinkErrors(sink.Name())
			}
		}
	}
}
