package store

import (
	"context"
	"errors"
	"math"
	"time"

	"price-tracker/internal/model"
)

// File names inside the data directory
const (
	SQLiteFile       = "price-tracker.db"
	ObservationsFile = "observations.json"
	AlertsFile       = "alerts.json"
)

var (
	// ErrOutOfOrder is returned when an observation is older than the
	// product's latest stored observation
	ErrOutOfOrder = errors.New("observation timestamp precedes latest stored observation")

	// ErrInvalidObservation is returned for an empty name or a negative or
	// non-finite price
	ErrInvalidObservation = errors.New("invalid observation")
)

// Store is the append-only time series of price observations.
// SQLiteStore, PostgresStore and MemoryStore implement it.
type Store interface {
	// Observation writes
	Append(ctx context.Context, obs model.Observation) error

	// Observation reads. The bool is false when nothing matched.
	Latest(ctx context.Context, name string) (model.Observation, bool, error)
	LatestBefore(ctx context.Context, name string, ts time.Time) (model.Observation, bool, error)

	// Recent returns up to n of the newest observations in ascending time order
	Recent(ctx context.Context, name string, n int) ([]model.Observation, error)
	History(ctx context.Context, name string) ([]model.Observation, error)

	// Each streams the history in ascending time order without loading it
	// all at once. Iteration stops at the first error fn returns.
	Each(ctx context.Context, name string, fn func(model.Observation) error) error

	ProductNames(ctx context.Context) ([]string, error)

	// Alert log
	RecordAlert(ctx context.Context, alert model.Alert) error
	Alerts(ctx context.Context, name string, limit int) ([]model.Alert, error)

	Close() error
}

func validate(obs model.Observation) error {
	if obs.ProductName == "" {
		return errors.Join(ErrInvalidObservation, errors.New("empty product name"))
	}
	if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) || obs.Price < 0 {
		return errors.Join(ErrInvalidObservation, errors.New("price must be finite and non-negative"))
	}
	return nil
}
