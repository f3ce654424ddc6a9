package internal

import (
	"context"

	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/services/cache"
	"github.com/dealmungchi/saleharvester/services/publisher"
)

// Sink persists the merged output of a run
type Sink interface {
	Name() string
	Save(ctx context.Context, batch crawler.Batch) error
}

// RunRecorder receives per-run measurements
type RunRecorder interface {
	IncRuns()
	IncSinkErrors(sink string)
}

// Dependencies holds all service dependencies. Every field is optional.
type Dependencies struct {
	Cooldown  *cache.Cooldown
	Publisher publisher.Publisher
	Sinks     []Sink
	Recorder  RunRecorder
}
