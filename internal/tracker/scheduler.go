package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"price-tracker/internal/model"
)

// ProductSource supplies the products for each cycle
type ProductSource interface {
	Products() []model.Product
}

// Scheduler triggers tracking cycles and reports on fixed intervals.
// Cycles never overlap; RunNow waits for a running cycle to finish.
type Scheduler struct {
	orchestrator   *Orchestrator
	reports        *ReportGenerator
	catalog        ProductSource
	interval       time.Duration
	reportInterval time.Duration
	logger         *slog.Logger

	cycleMu sync.Mutex

	mu         sync.RWMutex
	isRunning  bool
	lastCycle  *model.CycleReport
	lastReport *model.Report

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(
	orchestrator *Orchestrator,
	reports *ReportGenerator,
	catalog ProductSource,
	interval, reportInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		orchestrator:   orchestrator,
		reports:        reports,
		catalog:        catalog,
		interval:       interval,
		reportInterval: reportInterval,
		logger:         logger,
	}
}

// Start runs a cycle immediately, then one every interval and a report
// every report interval until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		s.logger.Warn("scheduler already running")
		return
	}
	s.isRunning = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval, "report_interval", s.reportInterval)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	cycleTicker := time.NewTicker(s.interval)
	defer cycleTicker.Stop()
	reportTicker := time.NewTicker(s.reportInterval)
	defer reportTicker.Stop()

	// Run immediately on start
	s.RunNow(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-cycleTicker.C:
			s.RunNow(ctx)
		case <-reportTicker.C:
			if _, err := s.ReportNow(ctx); err != nil {
				s.logger.Error("scheduled report failed", "err", err)
			}
		}
	}
}

// Stop cancels the loop and waits for an in-flight cycle to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs one cycle over the current catalog
func (s *Scheduler) RunNow(ctx context.Context) model.CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := s.orchestrator.RunCycle(ctx, s.catalog.Products())

	s.mu.Lock()
	s.lastCycle = &report
	s.mu.Unlock()
	return report
}

// ReportNow generates and publishes a trend report
func (s *Scheduler) ReportNow(ctx context.Context) (model.Report, error) {
	report, err := s.reports.Publish(ctx)
	if err != nil {
		return model.Report{}, err
	}

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	return report, nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status is the scheduler state exposed by the health endpoint
type Status struct {
	IsRunning      bool               `json:"is_running"`
	Interval       string             `json:"interval"`
	ReportInterval string             `json:"report_interval"`
	LastCycle      *model.CycleReport `json:"last_cycle,omitempty"`
	LastReportAt   *time.Time         `json:"last_report_at,omitempty"`
}

// Status returns the current status of the scheduler
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		IsRunning:      s.isRunning,
		Interval:       s.interval.String(),
		ReportInterval: s.reportInterval.String(),
		LastCycle:      s.lastCycle,
	}
	if s.lastReport != nil {
		at := s.lastReport.GeneratedAt
		st.LastReportAt = &at
	}
	return st
}
