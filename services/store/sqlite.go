package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	brand            TEXT NOT NULL,
	price_sale       TEXT NOT NULL,
	price_original   TEXT,
	discount_percent INTEGER NOT NULL,
	image_url        TEXT,
	product_url      TEXT NOT NULL,
	source_category  TEXT NOT NULL,
	scraped_at       TEXT NOT NULL,
	first_seen_at    TEXT NOT NULL
)`

const upsert = `
INSERT INTO products (id, title, brand, price_sale, price_original, discount_percent,
	image_url, product_url, source_category, scraped_at, first_seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	brand = excluded.brand,
	price_sale = excluded.price_sale,
	price_original = excluded.price_original,
	discount_percent = excluded.discount_percent,
	image_url = excluded.image_url,
	product_url = excluded.product_url,
	source_category = excluded.source_category,
	scraped_at = excluded.scraped_at`

// ErrNotFound is returned by Get for unknown ids
var ErrNotFound = stderrors.New("store: product not found")

// SQLiteStore keeps the latest state of every harvested product, keyed by id
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStorage("sqlite", "open "+path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewStorage("sqlite", "create schema", err)
	}

	return &SQLiteStore{db: db, logger: logger.ForComponent("store")}, nil
}

// Name identifies the sink in logs
func (s *SQLiteStore) Name() string { return "sqlite" }

// Save implements the run sink
func (s *SQLiteStore) Save(ctx context.Context, batch crawler.Batch) error {
	return s.SaveProducts(ctx, batch.Products)
}

// SaveProducts upserts products in one transaction. first_seen_at is kept on update.
func (s *SQLiteStore) SaveProducts(ctx context.Context, products []crawler.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorage("sqlite", "begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return errors.NewStorage("sqlite", "prepare upsert", err)
	}
	defer stmt.Close()

	for _, p := range products {
		var original sql.NullString
		if p.PriceOriginal.Valid {
			original = sql.NullString{String: p.PriceOriginal.Decimal.StringFixed(2), Valid: true}
		}
		var image sql.NullString
		if p.ImageURL != nil {
			image = sql.NullString{String: *p.ImageURL, Valid: true}
		}
		scraped := p.ScrapedAt.UTC().Format(time.RFC3339Nano)

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.Brand, p.PriceSale.StringFixed(2), original, p.DiscountPercent,
			image, p.ProductURL, p.SourceCategory, scraped, scraped,
		); err != nil {
			return errors.NewStorage("sqlite", "upsert "+p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorage("sqlite", "commit", err)
	}
	s.logger.Debug().Int("count", len(products)).Msg("Stored products")
	return nil
}

// Get loads a product and the time it was first stored
func (s *SQLiteStore) Get(ctx context.Context, id string) (crawler.Product, time.Time, error) {
	var (
		p                      crawler.Product
		sale                   string
		original, image        sql.NullString
		scrapedAt, firstSeenAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, brand, price_sale, price_original, discount_percent,
			image_url, product_url, source_category, scraped_at, first_seen_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Brand, &sale, &original, &p.DiscountPercent,
		&image, &p.ProductURL, &p.SourceCategory, &scrapedAt, &firstSeenAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return crawler.Product{}, time.Time{}, ErrNotFound
	}
	if err != nil {
		return crawler.Product{}, time.Time{}, errors.NewStorage("sqlite", "get "+id, err)
	}

	if p.PriceSale, err = decimal.NewFromString(sale); err != nil {
		return crawler.Product{}, time.Time{}, errors.NewStorage("sqlite", "decode price_sale", err)
	}
	if original.Valid {
		d, err := decimal.NewFromString(original.String)
		if err != nil {
			return crawler.Product{}, time.Time{}, errors.NewStorage("sqlite", "decode price_original", err)
		}
		p.PriceOriginal = decimal.NewNullDecimal(d)
	}
	if image.Valid {
		p.ImageURL = &image.String
	}
	if p.ScrapedAt, err = time.Parse(time.RFC3339Nano, scrapedAt); err != nil {
		return crawler.Product{}, time.Time{}, errors.NewStorage("sqlite", "decode scraped_at", err)
	}
	firstSeen, err := time.Parse(time.RFC3339Nano, firstSeenAt)
	if err != nil {
		return crawler.Product{}, time.Time{}, errors.NewStorage("sqlite", "decode first_seen_at", err)
	}
	return p, firstSeen, nil
}

// Count returns the number of stored products
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, errors.NewStorage("sqlite", "count", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
