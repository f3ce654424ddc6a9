package exporter

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/saleharvester/internal/crawler"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func newTestExporter(dir string) *JSONExporter {
	e := NewJSONExporter(dir)
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestJSONExporterSave(t *testing.T) {
	dir := t.TempDir()
	product := crawler.Product{
		ID:              "https://shop.example/p/abc123",
		Title:           "Sneaker Model",
		PriceSale:       decimal.RequireFromString("39.9"),
		PriceOriginal:   decimal.NewNullDecimal(decimal.RequireFromString("79.99")),
		DiscountPercent: 50,
		ProductURL:      "https://shop.example/p/abc123",
		SourceCategory:  "https://shop.example/sale/shoes",
		ScrapedAt:       fixedNow,
	}
	batch := crawler.Batch{
		Products: []crawler.Product{product},
		Categories: []crawler.CategoryResult{
			{URL: "https://shop.example/sale/shoes", Status: crawler.StatusOK, Products: []crawler.Product{product}},
			{URL: "https://shop.example/sale/bags", Status: crawler.StatusFailed, Err: stderrors.New("timeout")},
		},
		StartedAt:  fixedNow.Add(-time.Minute),
		FinishedAt: fixedNow,
	}

	require.NoError(t, newTestExporter(dir).Save(context.Background(), batch))

	data, err := os.ReadFile(filepath.Join(dir, "products_2026-03-01_12-30-00.json"))
	require.NoError(t, err)
	var products []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Sneaker Model", products[0]["title"])
	assert.Contains(t, string(data), `"price_sale": 39.90`)
	assert.Nil(t, products[0]["image_url"])

	data, err = os.ReadFile(filepath.Join(dir, "summary_2026-03-01_12-30-00.json"))
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, map[crawler.CategoryStatus]int{crawler.StatusOK: 1, crawler.StatusFailed: 1}, summary.Statuses)
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, 1, summary.Categories[0].Records)
	assert.Equal(t, "timeout", summary.Categories[1].Error)
}

func TestJSONExporterWritesEmptyArray(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	require.NoError(t, newTestExporter(dir).Save(context.Background(), crawler.Batch{}))

	data, err := os.ReadFile(filepath.Join(dir, "products_2026-03-01_12-30-00.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
