// Package analysis compares new prices with history, evaluates thresholds
// and summarizes price trends.
package analysis

import (
	"context"
	"errors"
	"time"

	"price-tracker/internal/model"
)

var (
	// ErrDivisionUndefined is returned alongside a ChangeResult whose
	// previous price was zero, so no percent change exists
	ErrDivisionUndefined = errors.New("percent change undefined for zero baseline")

	// ErrInsufficientData is returned when fewer than two observations exist
	ErrInsufficientData = errors.New("insufficient data")
)

// History is the read side of the observation store used by the detector
// and the trend analyzer
type History interface {
	LatestBefore(ctx context.Context, name string, ts time.Time) (model.Observation, bool, error)
	Each(ctx context.Context, name string, fn func(model.Observation) error) error
}
