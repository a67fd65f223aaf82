// Package tracker runs tracking cycles over the product catalog and
// produces trend reports.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"price-tracker/internal/analysis"
	"price-tracker/internal/model"
	"price-tracker/internal/pricing"
)

// Extractor fetches a product page and returns its name and raw price
type Extractor interface {
	Extract(ctx context.Context, p model.Product) (string, model.RawPrice, error)
}

// ObservationStore is the store surface a cycle writes through
type ObservationStore interface {
	analysis.History
	Append(ctx context.Context, obs model.Observation) error
}

// Notifier receives every successful reading with its alert, if any
type Notifier interface {
	Observe(ctx context.Context, product model.Product, price float64, alert *model.Alert)
}

// Exporter receives the rows of a finished cycle
type Exporter interface {
	Append(rows []model.ExportRow) error
}

// NameRecorder learns the page name of products configured without one and
// returns the name the product's series is kept under
type NameRecorder interface {
	RecordName(p model.Product, name string) string
}

// Orchestrator runs one tracking pass over a product list
type Orchestrator struct {
	extractor Extractor
	store     ObservationStore
	detector  *analysis.Detector
	notifier  Notifier
	exporter  Exporter
	names     NameRecorder
	workers   int
	now       func() time.Time
	logger    *slog.Logger

	locks keyedMutex
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithExporter(e Exporter) Option {
	return func(o *Orchestrator) { o.exporter = e }
}

func WithNameRecorder(r NameRecorder) Option {
	return func(o *Orchestrator) { o.names = r }
}

// WithWorkers sets the worker pool size. 1 processes products sequentially.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithClock overrides the observation timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(extractor Extractor, store ObservationStore, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		extractor: extractor,
		store:     store,
		detector:  analysis.NewDetector(store),
		workers:   1,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	row     *model.ExportRow
	alert   *model.Alert
	failure *model.CycleFailure
	skipped bool
}

// RunCycle tracks every product once. Per-product failures are recorded in
// the report and never abort the cycle. Rows keep the order of products.
func (o *Orchestrator) RunCycle(ctx context.Context, products []model.Product) model.CycleReport {
	report := model.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
		Rows:      []model.ExportRow{},
		Alerts:    []model.Alert{},
		Failures:  []model.CycleFailure{},
	}
	o.logger.Info("starting cycle", "cycle_id", report.ID, "products", len(products), "workers", o.workers)

	results := make([]outcome, len(products))
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for i, p := range products {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i].skipped = true
			continue
		}
		if ctx.Err() != nil {
			<-sem
			results[i].skipped = true
			continue
		}

		wg.Add(1)
		go func(i int, p model.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.track(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for _, r := range results {
		switch {
		case r.skipped:
			report.Skipped++
		case r.failure != nil:
			report.Failed++
			report.Failures = append(report.Failures, *r.failure)
		case r.row != nil:
			report.Succeeded++
			report.Rows = append(report.Rows, *r.row)
			if r.alert != nil {
				report.Alerts = append(report.Alerts, *r.alert)
			}
		}
	}
	report.Cancelled = ctx.Err() != nil
	report.FinishedAt = o.now()

	if o.exporter != nil && len(report.Rows) > 0 {
		if err := o.exporter.Append(report.Rows); err != nil {
			o.logger.Error("export failed", "cycle_id", report.ID, "rows", len(report.Rows), "err", err)
		}
	}

	o.logger.Info("cycle complete",
		"cycle_id", report.ID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"alerts", len(report.Alerts),
		"cancelled", report.Cancelled,
		"duration", report.Duration(),
	)
	return report
}

// track runs extract, normalize, detect, append, evaluate and notify for one product
func (o *Orchestrator) track(ctx context.Context, p model.Product) outcome {
	name, raw, err := o.extractor.Extract(ctx, p)
	if err != nil {
		return o.fail(p, "extract", err)
	}

	price, err := pricing.NormalizeSplit(raw.Whole, raw.Fraction)
	if err != nil {
		return o.fail(p, "normalize", err)
	}

	if p.Name == "" {
		p.Name = name
		if o.names != nil {
			p.Name = o.names.RecordName(p, name)
		}
	}

	unlock := o.locks.Lock(p.Name)
	defer unlock()

	ts := o.now()

	// Detect reads strictly before ts; a failed lookup leaves nothing written
	change, err := o.detector.Detect(ctx, p.Name, price, ts)
	switch {
	case errors.Is(err, analysis.ErrDivisionUndefined):
		o.logger.Warn("percent change undefined", "product", p.Name, "old_price", 0, "new_price", price)
	case err != nil:
		return o.fail(p, "detect", err)
	}

	if err := o.store.Append(ctx, model.Observation{ProductName: p.Name, Timestamp: ts, Price: price}); err != nil {
		return o.fail(p, "store", err)
	}

	alert := analysis.Evaluate(p, price, ts)
	if o.notifier != nil {
		o.notifier.Observe(ctx, p, price, alert)
	}

	attrs := []any{"product", p.Name, "price", price, "change", change.Kind}
	if change.PercentDelta != nil {
		attrs = append(attrs, "percent", *change.PercentDelta)
	}
	if change.Kind == model.ChangeDrop {
		o.logger.Info("price dropped", attrs...)
	} else {
		o.logger.Debug("price recorded", attrs...)
	}

	return outcome{
		row: &model.ExportRow{
			Timestamp:   ts,
			ProductName: p.Name,
			URL:         p.URL,
			Price:       price,
			Change:      change,
			Alerted:     alert != nil,
		},
		alert: alert,
	}
}

func (o *Orchestrator) fail(p model.Product, stage string, err error) outcome {
	o.logger.Warn("product failed", "product", p.Label(), "stage", stage, "err", err)
	return outcome{failure: &model.CycleFailure{
		ProductName: p.Name,
		URL:         p.URL,
		Reason:      fmt.Sprintf("%s: %v", stage, err),
	}}
}

// keyedMutex serializes work per product name
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
