package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sjsage522/carlistingworker/internal/listing"
	"sjsage522/carlistingworker/logger"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	price BIGINT,
	currency TEXT NOT NULL,
	year INTEGER,
	mileage TEXT,
	fuel_type TEXT,
	brand TEXT,
	engine_capacity TEXT,
	transmission TEXT,
	location TEXT,
	image_url TEXT,
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TEXT,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_listings_year ON listings(year);
CREATE INDEX IF NOT EXISTS idx_listings_location ON listings(location);
`

const insertSQL = `
INSERT INTO listings (url, title, price, currency, year, mileage, fuel_type, brand,
	engine_capacity, transmission, location, image_url, is_featured, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (url) DO NOTHING;
`

// PostgresPublisher writes records into a listings table. Rows are never updated:
// a URL that is already stored is skipped.
type PostgresPublisher struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresPublisher connects to dsn and pings the server.
func NewPostgresPublisher(ctx context.Context, dsn string) (*PostgresPublisher, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, crawlerrors.NewPublisher(SinkPostgres, "failed to create postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, crawlerrors.NewPublisher(SinkPostgres, "failed to connect postgres", err)
	}

	return &PostgresPublisher{pool: pool, log: logger.ForPublisher(SinkPostgres)}, nil
}

// EnsureSchema creates the listings table and its indexes if missing.
func (p *PostgresPublisher) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return crawlerrors.NewPublisher(SinkPostgres, "failed to ensure schema", err)
	}
	return nil
}

// PushBatch inserts the records in one round trip.
func (p *PostgresPublisher) PushBatch(ctx context.Context, records []listing.Record) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertSQL,
			r.URL, r.Title, r.Price, r.Currency, r.Year, r.Mileage, r.FuelType, r.Brand,
			r.EngineCapacity, r.Transmission, r.Location, r.ImageURL, r.IsFeatured, r.UpdatedAt,
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := int64(0)
	for i := 0; i < len(records); i++ {
		tag, err := results.Exec()
		if err != nil {
			return crawlerrors.NewPublisher(SinkPostgres, fmt.Sprintf("batch insert failed at row %d", i), err)
		}
		inserted += tag.RowsAffected()
	}

	p.log.Debug().
		Int("records", len(records)).
		Int64("inserted", inserted).
		Msg("Batch written")
	return nil
}

// Count returns the number of stored listings.
func (p *PostgresPublisher) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings").Scan(&n)
	return n, err
}

// Close closes the pool.
func (p *PostgresPublisher) Close() error {
	p.pool.Close()
	return nil
}
