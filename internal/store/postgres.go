package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"price-tracker/internal/config"
	"price-tracker/internal/model"
)

// PostgresStore keeps the price series in PostgreSQL. Writers for the same
// product are serialized with a transaction-scoped advisory lock.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.PostgresConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Connect creates a connection pool. A non-empty databaseURL takes
// precedence over the discrete settings in cfg.
func Connect(ctx context.Context, databaseURL string, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	connStr := databaseURL
	if connStr == "" {
		connStr = BuildConnString(cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
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

	return pool, nil
}

// NewPostgres wraps pool and creates the schema if needed
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS observations (
		id BIGSERIAL PRIMARY KEY,
		product_name TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		observed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		product_name TEXT NOT NULL,
		url TEXT,
		price DOUBLE PRECISION NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_observations_product_time ON observations(product_name, observed_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_product ON alerts(product_name, created_at);
	`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, obs model.Observation) error {
	if err := validate(obs); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, obs.ProductName); err != nil {
		return fmt.Errorf("lock product %s: %w", obs.ProductName, err)
	}

	var latest *time.Time
	err = tx.QueryRow(ctx,
		`SELECT MAX(observed_at) FROM observations WHERE product_name = $1`,
		obs.ProductName,
	).Scan(&latest)
	if err != nil {
		return fmt.Errorf("read latest timestamp: %w", err)
	}
	if latest != nil && obs.Timestamp.Before(*latest) {
		return fmt.Errorf("%s at %s: %w", obs.ProductName, obs.Timestamp.Format(time.RFC3339), ErrOutOfOrder)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO observations (product_name, price, observed_at)
		VALUES ($1, $2, $3)
	`, obs.ProductName, obs.Price, obs.Timestamp); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Latest(ctx context.Context, name string) (model.Observation, bool, error) {
	return s.queryOne(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = $1
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, name)
}

func (s *PostgresStore) LatestBefore(ctx context.Context, name string, ts time.Time) (model.Observation, bool, error) {
	return s.queryOne(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = $1 AND observed_at < $2
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, name, ts)
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (model.Observation, bool, error) {
	var obs model.Observation
	err := s.pool.QueryRow(ctx, query, args...).Scan(&obs.ProductName, &obs.Price, &obs.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Observation{}, false, nil
	}
	if err != nil {
		return model.Observation{}, false, fmt.Errorf("scan observation: %w", err)
	}
	obs.Timestamp = obs.Timestamp.UTC()
	return obs, true, nil
}

func (s *PostgresStore) Recent(ctx context.Context, name string, n int) ([]model.Observation, error) {
	if n <= 0 {
		return s.History(ctx, name)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT product_name, price, observed_at FROM (
			SELECT id, product_name, price, observed_at
			FROM observations
			WHERE product_name = $1
			ORDER BY observed_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY observed_at ASC, id ASC
	`, name, n)
	if err != nil {
		return nil, fmt.Errorf("query recent observations: %w", err)
	}

	var out []model.Observation
	err = eachRow(rows, func(obs model.Observation) error {
		out = append(out, obs)
		return nil
	})
	return out, err
}

func (s *PostgresStore) History(ctx context.Context, name string) ([]model.Observation, error) {
	var out []model.Observation
	err := s.Each(ctx, name, func(obs model.Observation) error {
		out = append(out, obs)
		return nil
	})
	return out, err
}

func (s *PostgresStore) Each(ctx context.Context, name string, fn func(model.Observation) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = $1
		ORDER BY observed_at ASC, id ASC
	`, name)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	return eachRow(rows, fn)
}

func eachRow(rows pgx.Rows, fn func(model.Observation) error) error {
	defer rows.Close()
	for rows.Next() {
		var obs model.Observation
		if err := rows.Scan(&obs.ProductName, &obs.Price, &obs.Timestamp); err != nil {
			return fmt.Errorf("scan observation: %w", err)
		}
		obs.Timestamp = obs.Timestamp.UTC()
		if err := fn(obs); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) ProductNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT product_name FROM observations ORDER BY product_name`)
	if err != nil {
		return nil, fmt.Errorf("query product names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan product names: %w", err)
	}
	return names, nil
}

func (s *PostgresStore) RecordAlert(ctx context.Context, alert model.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, product_name, url, price, threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, alert.ID, alert.ProductName, alert.URL, alert.Price, alert.Threshold, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Alerts(ctx context.Context, name string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, product_name, COALESCE(url, ''), price, threshold, created_at
		FROM alerts
		WHERE $1 = '' OR product_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.ProductName, &a.URL, &a.Price, &a.Threshold, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Timestamp = a.Timestamp.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
