// Command migrate copies price history and alerts from the JSON data files
// into the SQLite or Postgres store
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"price-tracker/internal/config"
	"price-tracker/internal/model"
	"price-tracker/internal/store"
	"price-tracker/internal/version"
)

func main() {
	dataDir := flag.String("dir", "./data", "Data directory containing JSON files")
	to := flag.String("to", "sqlite", "Destination store: sqlite or postgres")
	dryRun := flag.Bool("dry-run", false, "Show what would be done without making changes")
	force := flag.Bool("force", false, "Force overwrite existing SQLite database")
	versionFlag := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println("migrate", version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if _, err := os.Stat(*dataDir); os.IsNotExist(err) {
		logger.Error("data directory does not exist", "dir", *dataDir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dataDir, *to, *dryRun, *force, logger); err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, to string, dryRun, force bool, logger *slog.Logger) error {
	src, err := store.NewMemory(dataDir)
	if err != nil {
		return fmt.Errorf("read json store: %w", err)
	}

	backupDir := dataDir + "_backup_" + time.Now().Format("20060102_150405")
	if err := backupJSONFiles(dataDir, backupDir); err != nil {
		logger.Warn("backup failed", "err", err)
	} else {
		logger.Info("backup written", "dir", backupDir)
	}

	if dryRun {
		stats, err := migrate(ctx, src, nil, logger)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, stats, "(dry run)")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.StoreDriver = to
	cfg.DataDir = dataDir

	if to == "sqlite" {
		dbPath := filepath.Join(dataDir, store.SQLiteFile)
		if _, err := os.Stat(dbPath); err == nil {
			if !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", dbPath)
			}
			if err := os.Remove(dbPath); err != nil {
				return err
			}
		}
	}

	dst, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", to, err)
	}
	defer dst.Close()

	stats, err := migrate(ctx, src, dst, logger)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, stats, to)
	return nil
}

type migrationStats struct {
	Products     int
	Observations int
	Alerts       int
	Skipped      []string
}

// migrate copies every series and alert from src to dst. A nil dst only
// counts. Series that already exist in dst are skipped.
func migrate(ctx context.Context, src, dst store.Store, logger *slog.Logger) (migrationStats, error) {
	var stats migrationStats

	names, err := src.ProductNames(ctx)
	if err != nil {
		return stats, err
	}

	for _, name := range names {
		if dst != nil {
			if _, exists, err := dst.Latest(ctx, name); err != nil {
				return stats, err
			} else if exists {
				logger.Warn("series already present, skipping", "product", name)
				stats.Skipped = append(stats.Skipped, name)
				continue
			}
		}

		err := src.Each(ctx, name, func(obs model.Observation) error {
			stats.Observations++
			if dst == nil {
				return nil
			}
			return dst.Append(ctx, obs)
		})
		if err != nil {
			return stats, fmt.Errorf("copy %s: %w", name, err)
		}
		stats.Products++
	}

	alerts, err := src.Alerts(ctx, "", 1<<30)
	if err != nil {
		return stats, err
	}
	// stored oldest first
	slices.Reverse(alerts)
	for _, a := range alerts {
		if slices.Contains(stats.Skipped, a.ProductName) {
			continue
		}
		if dst != nil {
			if err := dst.RecordAlert(ctx, a); err != nil {
				return stats, fmt.Errorf("copy alert %s: %w", a.ID, err)
			}
		}
		stats.Alerts++
	}

	return stats, nil
}

func backupJSONFiles(dataDir, backupDir string) error {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return err
	}

	for _, file := range []string{store.ObservationsFile, store.AlertsFile} {
		src := filepath.Join(dataDir, file)
		data, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(backupDir, file), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, stats migrationStats, dest string) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Migration complete %s\n", dest)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Products:     %d\n", stats.Products)
	fmt.Fprintf(w, "Observations: %d\n", stats.Observations)
	fmt.Fprintf(w, "Alerts:       %d\n", stats.Alerts)
	if len(stats.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:      %s\n", strings.Join(stats.Skipped, ", "))
	}
}
