package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"price-tracker/internal/model"
)

// MemoryStore keeps the price series in memory. With a data directory it
// loads observations.json and alerts.json on start and writes them back
// after every change.
type MemoryStore struct {
	mu           sync.RWMutex
	observations map[string][]model.Observation
	alerts       []model.Alert
	dataDir      string
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an in-memory store. An empty dataDir disables persistence.
func NewMemory(dataDir string) (*MemoryStore, error) {
	s := &MemoryStore{
		observations: make(map[string][]model.Observation),
		dataDir:      dataDir,
	}
	if dataDir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load loads data from JSON files
func (s *MemoryStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := readJSON(filepath.Join(s.dataDir, ObservationsFile), &s.observations); err != nil {
		return fmt.Errorf("failed to load observations: %w", err)
	}
	if s.observations == nil {
		s.observations = make(map[string][]model.Observation)
	}
	if err := readJSON(filepath.Join(s.dataDir, AlertsFile), &s.alerts); err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}
	return nil
}

// Save saves data to JSON files
func (s *MemoryStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *MemoryStore) saveLocked() error {
	if s.dataDir == "" {
		return nil
	}
	if err := writeJSON(filepath.Join(s.dataDir, ObservationsFile), s.observations); err != nil {
		return fmt.Errorf("failed to write observations: %w", err)
	}
	if err := writeJSON(filepath.Join(s.dataDir, AlertsFile), s.alerts); err != nil {
		return fmt.Errorf("failed to write alerts: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path atomically through a temp file
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *MemoryStore) Append(ctx context.Context, obs model.Observation) error {
	if err := validate(obs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.observations[obs.ProductName]
	if n := len(series); n > 0 && obs.Timestamp.Before(series[n-1].Timestamp) {
		return fmt.Errorf("%s at %s: %w", obs.ProductName, obs.Timestamp.Format(time.RFC3339), ErrOutOfOrder)
	}
	s.observations[obs.ProductName] = append(series, obs)

	if err := s.saveLocked(); err != nil {
		// capped so the next append cannot write into a slice a reader holds
		if len(series) == 0 {
			delete(s.observations, obs.ProductName)
		} else {
			s.observations[obs.ProductName] = series[:len(series):len(series)]
		}
		return err
	}
	return nil
}

func (s *MemoryStore) Latest(ctx context.Context, name string) (model.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.observations[name]
	if len(series) == 0 {
		return model.Observation{}, false, nil
	}
	return series[len(series)-1], true, nil
}

func (s *MemoryStore) LatestBefore(ctx context.Context, name string, ts time.Time) (model.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.observations[name]
	// first index at or after ts
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(ts)
	})
	if i == 0 {
		return model.Observation{}, false, nil
	}
	return series[i-1], true, nil
}

func (s *MemoryStore) Recent(ctx context.Context, name string, n int) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.observations[name]
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]model.Observation, len(series))
	copy(out, series)
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, name string) ([]model.Observation, error) {
	return s.Recent(ctx, name, 0)
}

func (s *MemoryStore) Each(ctx context.Context, name string, fn func(model.Observation) error) error {
	s.mu.RLock()
	series := s.observations[name]
	s.mu.RUnlock()

	// series is append-only, so the captured slice header stays valid
	for _, obs := range series {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(obs); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) ProductNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.observations))
	for name, series := range s.observations {
		if len(series) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) RecordAlert(ctx context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.alerts
	s.alerts = append(s.alerts, alert)
	if err := s.saveLocked(); err != nil {
		s.alerts = prev[:len(prev):len(prev)]
		return err
	}
	return nil
}

func (s *MemoryStore) Alerts(ctx context.Context, name string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Alert
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if name == "" || s.alerts[i].ProductName == name {
			out = append(out, s.alerts[i])
		}
	}
	return out, nil
}

// Close flushes to disk when persistence is enabled
func (s *MemoryStore) Close() error {
	return s.Save()
}
