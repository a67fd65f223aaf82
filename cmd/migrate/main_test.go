package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"price-tracker/internal/model"
	"price-tracker/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func seedJSON(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	src, err := store.NewMemory(dir)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []float64{70000, 65000, 64000} {
		if err := src.Append(ctx, model.Observation{ProductName: "iPhone 15", Timestamp: base.Add(time.Duration(i) * time.Hour), Price: p}); err != nil {
			t.Fatal(err)
		}
	}
	if err := src.Append(ctx, model.Observation{ProductName: "Pixel 8", Timestamp: base, Price: 50000}); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"a1", "a2"} {
		alert := model.Alert{ID: id, ProductName: "iPhone 15", Price: 64000, Threshold: 65000, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := src.RecordAlert(ctx, alert); err != nil {
			t.Fatal(err)
		}
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedJSON(t, dir)

	src, err := store.NewMemory(dir)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := store.NewSQLite(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	stats, err := migrate(ctx, src, dst, testLogger)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if stats.Products != 2 || stats.Observations != 4 || stats.Alerts != 2 {
		t.Errorf("stats = %+v", stats)
	}

	history, err := dst.History(ctx, "iPhone 15")
	if err != nil || len(history) != 3 || history[2].Price != 64000 {
		t.Errorf("History = %v, %v", history, err)
	}

	alerts, err := dst.Alerts(ctx, "", 10)
	if err != nil || len(alerts) != 2 || alerts[0].ID != "a2" {
		t.Errorf("Alerts = %v, %v", alerts, err)
	}

	// a second run finds both series present
	again, err := migrate(ctx, src, dst, testLogger)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if again.Products != 0 || len(again.Skipped) != 2 || again.Alerts != 0 {
		t.Errorf("second stats = %+v", again)
	}
}

func TestMigrate_DryRun(t *testing.T) {
	dir := t.TempDir()
	seedJSON(t, dir)
	src, err := store.NewMemory(dir)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := migrate(context.Background(), src, nil, testLogger)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if stats.Observations != 4 || stats.Alerts != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBackupJSONFiles(t *testing.T) {
	dir := t.TempDir()
	seedJSON(t, dir)
	backup := filepath.Join(t.TempDir(), "backup")

	if err := backupJSONFiles(dir, backup); err != nil {
		t.Fatalf("backupJSONFiles: %v", err)
	}
	for _, f := range []string{store.ObservationsFile, store.AlertsFile} {
		if _, err := os.Stat(filepath.Join(backup, f)); err != nil {
			t.Errorf("%s not backed up: %v", f, err)
		}
	}
}
