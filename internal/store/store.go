// Package store persists minute and daily bars in PostgreSQL. Bar
// timestamps are stored as naive New York wall-clock values; reads
// rebind them to the exchange zone.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// insertChunk bounds the number of queued statements per pgx batch.
const insertChunk = 5000

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MinConns int
	MaxConns int
}

// ConnString builds the pool connection string. The password is
// URL-encoded to survive special characters.
func (c Config) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslMode,
	)
}

// Store wraps a pgx connection pool with the bar schema operations.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.With(slog.String("component", "store")),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ServerVersion reports the backend version string.
func (s *Store) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := s.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return version, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS intraday_bars (
    product  TEXT      NOT NULL,
    interval TEXT      NOT NULL,
    ts       TIMESTAMP NOT NULL,
    open   DOUBLE PRECISION NOT NULL,
    high   DOUBLE PRECISION NOT NULL,
    low    DOUBLE PRECISION NOT NULL,
    close  DOUBLE PRECISION NOT NULL,
    volume BIGINT NOT NULL,
    PRIMARY KEY (product, interval, ts)
);

CREATE TABLE IF NOT EXISTS daily_bars (
    product TEXT      NOT NULL,
    ts      TIMESTAMP NOT NULL,
    open   DOUBLE PRECISION NOT NULL,
    high   DOUBLE PRECISION NOT NULL,
    low    DOUBLE PRECISION NOT NULL,
    close  DOUBLE PRECISION NOT NULL,
    volume BIGINT NOT NULL,
    PRIMARY KEY (product, ts)
);

CREATE INDEX IF NOT EXISTS idx_intraday_lookup
    ON intraday_bars (product, interval, ts)
    INCLUDE (open, high, low, close, volume);

CREATE INDEX IF NOT EXISTS idx_daily_lookup
    ON daily_bars (product, ts)
    INCLUDE (open, high, low, close, volume);
`

// EnsureSchema creates the bar tables and covering indexes when they
// are missing. Safe to run repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// MinuteBars returns the 1min bars of a product within [from, to],
// ordered by time.
func (s *Store) MinuteBars(ctx context.Context, product string, from, to time.Time) ([]domain.Bar, error) {
	const q = `
		SELECT ts, open, high, low, close, volume
		FROM intraday_bars
		WHERE product = $1 AND interval = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts`
	return s.queryBars(ctx, q, product, domain.IntervalMinute, from, to)
}

// MinuteBarsHour is MinuteBars restricted to one hour of the day, so
// the minute-of-hour grouping loads only the rows it needs.
func (s *Store) MinuteBarsHour(ctx context.Context, product string, from, to time.Time, hour int) ([]domain.Bar, error) {
	const q = `
		SELECT ts, open, high, low, close, volume
		FROM intraday_bars
		WHERE product = $1 AND interval = $2 AND ts >= $3 AND ts <= $4
		  AND EXTRACT(HOUR FROM ts) = $5
		ORDER BY ts`
	return s.queryBars(ctx, q, product, domain.IntervalMinute, from, to, hour)
}

// DailyBars returns the daily bars of a product within [from, to],
// ordered by time.
func (s *Store) DailyBars(ctx context.Context, product string, from, to time.Time) ([]domain.Bar, error) {
	const q = `
		SELECT ts, open, high, low, close, volume
		FROM daily_bars
		WHERE product = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts`
	return s.queryBars(ctx, q, product, from, to)
}

func (s *Store) queryBars(ctx context.Context, q string, args ...any) ([]domain.Bar, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = calendar.InNewYork(b.Time)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	return bars, nil
}

// Products lists the product symbols present in either table.
func (s *Store) Products(ctx context.Context) ([]string, error) {
	const q = `
		SELECT product FROM intraday_bars
		UNION
		SELECT product FROM daily_bars
		ORDER BY 1`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const coverageSQL = `
	SELECT COALESCE(m.product, d.product) AS product,
	       COALESCE(m.n, 0) AS minute_bars,
	       COALESCE(d.n, 0) AS daily_bars,
	       LEAST(m.first, d.first) AS first_day,
	       GREATEST(m.last, d.last) AS last_day
	FROM (
		SELECT product, COUNT(*) AS n, MIN(ts) AS first, MAX(ts) AS last
		FROM intraday_bars WHERE interval = '1min' GROUP BY product
	) m
	FULL OUTER JOIN (
		SELECT product, COUNT(*) AS n, MIN(ts) AS first, MAX(ts) AS last
		FROM daily_bars GROUP BY product
	) d ON m.product = d.product`

// Coverage reports per-product bar counts and the covered day span.
func (s *Store) Coverage(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, coverageSQL+" ORDER BY 1")
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductCoverage reports the coverage of a single product. A product
// with no rows at all comes back zero-valued with only Symbol set.
func (s *Store) ProductCoverage(ctx context.Context, product string) (domain.Product, error) {
	rows, err := s.pool.Query(ctx, coverageSQL+" WHERE COALESCE(m.product, d.product) = $1", product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Product{}, fmt.Errorf("read coverage: %w", err)
		}
		return domain.Product{Symbol: product}, nil
	}
	return scanCoverage(rows)
}

func scanCoverage(rows pgx.Rows) (domain.Product, error) {
	var (
		p           domain.Product
		first, last *time.Time
	)
	if err := rows.Scan(&p.Symbol, &p.MinuteBars, &p.DailyBars, &first, &last); err != nil {
		return domain.Product{}, fmt.Errorf("scan coverage: %w", err)
	}
	if first != nil {
		ny := calendar.InNewYork(*first)
		p.FirstDay = &ny
	}
	if last != nil {
		ny := calendar.InNewYork(*last)
		p.LastDay = &ny
	}
	return p, nil
}

// HasMinuteData reports whether any 1min rows exist for the product.
func (s *Store) HasMinuteData(ctx context.Context, product string) (bool, error) {
	return s.exists(ctx,
		`SELECT 1 FROM intraday_bars WHERE product = $1 AND interval = $2 LIMIT 1`,
		product, domain.IntervalMinute)
}

// HasDailyData reports whether any daily rows exist for the product.
func (s *Store) HasDailyData(ctx context.Context, product string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM daily_bars WHERE product = $1 LIMIT 1`, product)
}

func (s *Store) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, q, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query existence: %w", err)
	}
	return true, nil
}

// InsertMinuteBars bulk-loads 1min bars with ON CONFLICT DO NOTHING.
// It returns the number of rows actually written.
func (s *Store) InsertMinuteBars(ctx context.Context, product string, bars []domain.Bar) (int64, error) {
	const q = `
		INSERT INTO intraday_bars (product, interval, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product, interval, ts) DO NOTHING`
	return s.insertBars(ctx, bars, func(batch *pgx.Batch, b domain.Bar) {
		batch.Queue(q, product, domain.IntervalMinute, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
	})
}

// InsertDailyBars bulk-loads daily bars with ON CONFLICT DO NOTHING.
// It returns the number of rows actually written.
func (s *Store) InsertDailyBars(ctx context.Context, product string, bars []domain.Bar) (int64, error) {
	const q = `
		INSERT INTO daily_bars (product, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product, ts) DO NOTHING`
	return s.insertBars(ctx, bars, func(batch *pgx.Batch, b domain.Bar) {
		batch.Queue(q, product, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
	})
}

func (s *Store) insertBars(ctx context.Context, bars []domain.Bar, queue func(*pgx.Batch, domain.Bar)) (int64, error) {
	var written int64
	for start := 0; start < len(bars); start += insertChunk {
		chunk := bars[start:min(start+insertChunk, len(bars))]

		batch := &pgx.Batch{}
		for _, b := range chunk {
			queue(batch, b)
		}

		results := s.pool.SendBatch(ctx, batch)
		n, err := drainBatch(results, len(chunk))
		if err != nil {
			return written, fmt.Errorf("batch insert: %w", err)
		}
		written += n

		s.logger.Debug("flushed bar chunk",
			slog.Int("queued", len(chunk)),
			slog.Int64("written", n))
	}
	return written, nil
}

func drainBatch(results pgx.BatchResults, n int) (int64, error) {
	defer results.Close()

	var written int64
	for i := 0; i < n; i++ {
		ct, err := results.Exec()
		if err != nil {
			return written, err
		}
		written += ct.RowsAffected()
	}
	return written, nil
}
