package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

const timestampLayout = "2006-01-02_15-04-05"

// CategorySummary is one line of the run summary
type CategorySummary struct {
	crawler.CategoryResult
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// Summary describes a run without the records themselves
type Summary struct {
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
	Records    int                            `json:"records"`
	Statuses   map[crawler.CategoryStatus]int `json:"statuses"`
	Categories []CategorySummary              `json:"categories"`
}

// JSONExporter writes each run as a products file plus a summary file
type JSONExporter struct {
	dir    string
	logger *logger.Logger
	now    func() time.Time
}

// NewJSONExporter creates an exporter writing into dir
func NewJSONExporter(dir string) *JSONExporter {
	return &JSONExporter{dir: dir, logger: logger.ForComponent("exporter"), now: time.Now}
}

// Name identifies the sink in logs
func (e *JSONExporter) Name() string { return "json" }

// Save writes products_<ts>.json and summary_<ts>.json. An empty run still
// produces an empty products array so downstream jobs can tell it ran.
func (e *JSONExporter) Save(ctx context.Context, batch crawler.Batch) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return errors.NewStorage("json", "create output directory "+e.dir, err)
	}

	stamp := e.now().Format(timestampLayout)
	products := batch.Products
	if products == nil {
		products = []crawler.Product{}
	}

	productsPath := filepath.Join(e.dir, fmt.Sprintf("products_%s.json", stamp))
	if err := writeJSON(productsPath, products); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(e.dir, fmt.Sprintf("summary_%s.json", stamp)), Summarize(batch)); err != nil {
		return err
	}

	e.logger.Info().
		Str("file", productsPath).
		Int("count", len(products)).
		Msg("Exported products to JSON")
	return nil
}

// Summarize builds the run summary for batch
func Summarize(batch crawler.Batch) Summary {
	s := Summary{
		StartedAt:  batch.StartedAt,
		FinishedAt: batch.FinishedAt,
		Records:    len(batch.Products),
		Statuses:   make(map[crawler.CategoryStatus]int),
		Categories: make([]CategorySummary, 0, len(batch.Categories)),
	}
	for _, c := range batch.Categories {
		s.Statuses[c.Status]++
		line := CategorySummary{CategoryResult: c, Records: len(c.Products)}
		if c.Err != nil {
			line.Error = c.Err.Error()
		}
		s.Categories = append(s.Categories, line)
	}
	return s
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewStorage("json", "marshal "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewStorage("json", "write "+path, err)
	}
	return nil
}
