package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"price-tracker/internal/analysis"
	"price-tracker/internal/model"
)

// ReportSource is the store surface the report generator reads
type ReportSource interface {
	analysis.History
	ProductNames(ctx context.Context) ([]string, error)
}

// ReportWriter persists a generated report, e.g. as a CSV snapshot
type ReportWriter interface {
	WriteReport(report model.Report) error
}

// ReportGenerator builds one trend summary per stored product
type ReportGenerator struct {
	source   ReportSource
	analyzer *analysis.Analyzer
	writer   ReportWriter
	now      func() time.Time
	logger   *slog.Logger
}

func NewReportGenerator(source ReportSource, writer ReportWriter, logger *slog.Logger) *ReportGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportGenerator{
		source:   source,
		analyzer: analysis.NewAnalyzer(source),
		writer:   writer,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Generate returns summaries sorted by product name. Products with fewer
// than two observations are included with Available=false.
func (g *ReportGenerator) Generate(ctx context.Context) (model.Report, error) {
	names, err := g.source.ProductNames(ctx)
	if err != nil {
		return model.Report{}, fmt.Errorf("list products: %w", err)
	}

	report := model.Report{
		GeneratedAt: g.now(),
		Summaries:   make([]model.TrendSummary, 0, len(names)),
	}
	for _, name := range names {
		summary, err := g.analyzer.Analyze(ctx, name)
		if err != nil && !errors.Is(err, analysis.ErrInsufficientData) {
			return model.Report{}, err
		}
		report.Summaries = append(report.Summaries, summary)
	}
	return report, nil
}

// Publish generates a report and hands it to the writer. A write failure
// is logged and the report is still returned.
func (g *ReportGenerator) Publish(ctx context.Context) (model.Report, error) {
	report, err := g.Generate(ctx)
	if err != nil {
		return model.Report{}, err
	}

	available := 0
	for _, s := range report.Summaries {
		if s.Available {
			available++
		}
	}
	g.logger.Info("report generated", "products", len(report.Summaries), "available", available)

	if g.writer != nil {
		if err := g.writer.WriteReport(report); err != nil {
			g.logger.Error("report export failed", "err", err)
		}
	}
	return report, nil
}
