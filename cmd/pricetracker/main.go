package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"price-tracker/internal/analysis"
	"price-tracker/internal/api"
	"price-tracker/internal/config"
	"price-tracker/internal/export"
	"price-tracker/internal/model"
	"price-tracker/internal/notify"
	"price-tracker/internal/pricing"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"
	"price-tracker/internal/tracker"
	"price-tracker/internal/version"
)

const usage = `usage: pricetracker [serve|cycle|report]

  serve   run the scheduler and HTTP API (default)
  cycle   run one tracking cycle and exit
  report  print a trend report and exit
`

func main() {
	versionFlag := flag.Bool("version", false, "Show version information")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *versionFlag {
		fmt.Println("pricetracker", version.String())
		return
	}

	cmd := "serve"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	if err := run(cmd); err != nil {
		slog.Error("pricetracker failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}

func run(cmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting pricetracker",
		"version", version.Version,
		"commit", version.Commit,
		"environment", cfg.Environment,
		"products", len(cfg.Products),
	)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "serve":
		return a.serve(ctx)
	case "cycle":
		report := a.scheduler.RunNow(ctx)
		if report.Cancelled {
			return ctx.Err()
		}
		return nil
	case "report":
		report, err := a.scheduler.ReportNow(ctx)
		if err != nil {
			return err
		}
		printReport(os.Stdout, report, cfg.CurrencySymbol)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// setupLogger uses text output in development and JSON in production.
// LOG_LEVEL overrides the environment's default level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, using %s\n", cfg.LogLevel, level)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	catalog   *tracker.Catalog
	scheduler *tracker.Scheduler
	reports   *tracker.ReportGenerator
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := scraper.NewRegistry(scraper.NewClient(cfg.ScraperUserAgent, cfg.ScraperTimeout))
	if err := registry.Validate(cfg.Products); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: st, catalog: tracker.NewCatalog(cfg.Products)}
	a.closers = append(a.closers, st.Close)
	logger.Info("store opened", "driver", cfg.StoreDriver)

	dispatcher := notify.NewDispatcher(a.alertState(ctx), st, cfg.AlertOnTransition, logger)
	if cfg.BarkKey != "" {
		dispatcher.AddChannel(notify.NewBarkService(cfg.BarkURL, cfg.BarkKey, cfg.CurrencySymbol))
		logger.Info("bark notifications enabled")
	}
	if cfg.NotificationEmail != "" {
		dispatcher.AddChannel(notify.NewEmailService(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
			cfg.SMTPFrom, cfg.NotificationEmail, cfg.CurrencySymbol,
		))
		logger.Info("email notifications enabled", "to", cfg.NotificationEmail)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		dispatcher.AddChannel(publisher)
		a.closers = append(a.closers, publisher.Close)
		logger.Info("kafka alerts enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var exporters export.Multi
	if cfg.ExportCSV {
		exporters = append(exporters, export.NewCSVExporter(filepath.Join(cfg.ExportDir, "prices.csv"), cfg.CurrencySymbol))
	}
	if cfg.ExportXLSX {
		exporters = append(exporters, export.NewXLSXExporter(filepath.Join(cfg.ExportDir, "prices.xlsx"), cfg.CurrencySymbol))
	}

	opts := []tracker.Option{
		tracker.WithNotifier(dispatcher),
		tracker.WithNameRecorder(a.catalog),
		tracker.WithWorkers(cfg.Workers),
	}
	if len(exporters) > 0 {
		opts = append(opts, tracker.WithExporter(exporters))
	}
	orchestrator := tracker.NewOrchestrator(registry, st, logger, opts...)

	var reportWriter tracker.ReportWriter
	if cfg.ExportCSV {
		reportWriter = export.NewReportCSV(cfg.ExportDir, cfg.CurrencySymbol)
	}
	a.reports = tracker.NewReportGenerator(st, reportWriter, logger)
	a.scheduler = tracker.NewScheduler(orchestrator, a.reports, a.catalog, cfg.CycleInterval, cfg.ReportInterval, logger)

	return a, nil
}

// alertState keeps below-threshold state in Redis when configured so it
// survives restarts
func (a *app) alertState(ctx context.Context) notify.AlertState {
	if a.cfg.RedisAddr == "" {
		return notify.NewMemoryState()
	}
	state := notify.NewRedisState(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	a.closers = append(a.closers, state.Close)
	if err := state.Ping(ctx); err != nil {
		a.logger.Warn("redis unreachable, alerts will not be deduplicated until it recovers", "addr", a.cfg.RedisAddr, "err", err)
	}
	return state
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(a.logger))
	handlers := api.NewHandlers(a.store, a.catalog, a.scheduler, analysis.NewAnalyzer(a.store), a.reports, a.cfg.LinksPath, a.logger)
	api.SetupRoutes(r, handlers)

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "err", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("scheduler did not stop in time", "err", err)
	}
	a.logger.Info("pricetracker stopped")
	return nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close", "err", err)
		}
	}
}

func printReport(w io.Writer, report model.Report, currency string) {
	fmt.Fprintf(w, "Price report %s\n\n", report.GeneratedAt.Format(time.RFC1123))
	for _, s := range report.Summaries {
		fmt.Fprintf(w, "%s\n", s.ProductName)
		if !s.Available {
			fmt.Fprintf(w, "  not enough data (%d observation(s))\n\n", s.Count)
			continue
		}
		fmt.Fprintf(w, "  latest  %s%.2f", currency, s.LatestPrice)
		if s.AtHistoricalLow {
			fmt.Fprint(w, "  (historical low)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  range   %s%.2f - %s%.2f, avg %s%.2f over %d readings\n",
			currency, s.MinPrice, currency, s.MaxPrice, currency, s.AvgPrice, s.Count)
		if s.RatePerHour != nil {
			fmt.Fprintf(w, "  trend   %+v per hour\n", pricing.Round(*s.RatePerHour, 4))
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
}
