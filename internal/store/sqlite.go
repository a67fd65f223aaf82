package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"price-tracker/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the price series in a SQLite database. Timestamps are
// stored as Unix microseconds.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	dataDir string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLiteStore instance
func NewSQLite(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, SQLiteFile)

	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		dataDir: dataDir,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// migrate creates tables and indexes
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_name TEXT NOT NULL,
		price REAL NOT NULL CHECK (price >= 0),
		observed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		product_name TEXT NOT NULL,
		url TEXT,
		price REAL NOT NULL,
		threshold REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_observations_product_time ON observations(product_name, observed_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_product ON alerts(product_name, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append writes an observation, rejecting one older than the latest stored
func (s *SQLiteStore) Append(ctx context.Context, obs model.Observation) error {
	if err := validate(obs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(observed_at) FROM observations WHERE product_name = ?`,
		obs.ProductName,
	).Scan(&latest)
	if err != nil {
		return fmt.Errorf("read latest timestamp: %w", err)
	}

	ts := obs.Timestamp.UnixMicro()
	if latest.Valid && ts < latest.Int64 {
		return fmt.Errorf("%s at %s: %w", obs.ProductName, obs.Timestamp.Format(time.RFC3339), ErrOutOfOrder)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO observations (product_name, price, observed_at)
		VALUES (?, ?, ?)
	`, obs.ProductName, obs.Price, ts); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}

	return tx.Commit()
}

// Latest returns the newest observation for name
func (s *SQLiteStore) Latest(ctx context.Context, name string) (model.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, name))
}

// LatestBefore returns the newest observation strictly before ts
func (s *SQLiteStore) LatestBefore(ctx context.Context, name string, ts time.Time) (model.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = ? AND observed_at < ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, name, ts.UnixMicro()))
}

func (s *SQLiteStore) scanOne(row *sql.Row) (model.Observation, bool, error) {
	var (
		obs      model.Observation
		observed int64
	)
	err := row.Scan(&obs.ProductName, &obs.Price, &observed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Observation{}, false, nil
	}
	if err != nil {
		return model.Observation{}, false, fmt.Errorf("scan observation: %w", err)
	}
	obs.Timestamp = time.UnixMicro(observed).UTC()
	return obs, true, nil
}

// Recent returns up to n of the newest observations, oldest first
func (s *SQLiteStore) Recent(ctx context.Context, name string, n int) ([]model.Observation, error) {
	if n <= 0 {
		return s.History(ctx, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_name, price, observed_at FROM (
			SELECT id, product_name, price, observed_at
			FROM observations
			WHERE product_name = ?
			ORDER BY observed_at DESC, id DESC
			LIMIT ?
		) ORDER BY observed_at ASC, id ASC
	`, name, n)
	if err != nil {
		return nil, fmt.Errorf("query recent observations: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	err = scanRows(rows, func(obs model.Observation) error {
		out = append(out, obs)
		return nil
	})
	return out, err
}

// History returns every observation for name, oldest first
func (s *SQLiteStore) History(ctx context.Context, name string) ([]model.Observation, error) {
	var out []model.Observation
	err := s.Each(ctx, name, func(obs model.Observation) error {
		out = append(out, obs)
		return nil
	})
	return out, err
}

// Each streams the history for name row by row
func (s *SQLiteStore) Each(ctx context.Context, name string, fn func(model.Observation) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_name, price, observed_at
		FROM observations
		WHERE product_name = ?
		ORDER BY observed_at ASC, id ASC
	`, name)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanRows(rows, fn)
}

func scanRows(rows *sql.Rows, fn func(model.Observation) error) error {
	for rows.Next() {
		var (
			obs      model.Observation
			observed int64
		)
		if err := rows.Scan(&obs.ProductName, &obs.Price, &observed); err != nil {
			return fmt.Errorf("scan observation: %w", err)
		}
		obs.Timestamp = time.UnixMicro(observed).UTC()
		if err := fn(obs); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ProductNames returns every product with at least one observation, sorted
func (s *SQLiteStore) ProductNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT product_name FROM observations ORDER BY product_name`)
	if err != nil {
		return nil, fmt.Errorf("query product names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RecordAlert appends an alert to the alert log
func (s *SQLiteStore) RecordAlert(ctx context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, product_name, url, price, threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.ProductName, alert.URL, alert.Price, alert.Threshold, alert.Timestamp.UnixMicro())
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Alerts returns the newest alerts first. An empty name matches every product.
func (s *SQLiteStore) Alerts(ctx context.Context, name string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_name, url, price, threshold, created_at
		FROM alerts
		WHERE ? = '' OR product_name = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a       model.Alert
			url     sql.NullString
			created int64
		)
		if err := rows.Scan(&a.ID, &a.ProductName, &url, &a.Price, &a.Threshold, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.URL = url.String
		a.Timestamp = time.UnixMicro(created).UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
