package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"price-tracker/internal/model"
	"price-tracker/internal/store"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, prices map[time.Duration]float64, order ...time.Duration) *store.MemoryStore {
	t.Helper()
	s, err := store.NewMemory("")
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	for _, off := range order {
		err := s.Append(context.Background(), model.Observation{
			ProductName: "iPhone",
			Timestamp:   t0.Add(off),
			Price:       prices[off],
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return s
}

func TestDetect_First(t *testing.T) {
	d := NewDetector(seed(t, nil))

	got, err := d.Detect(context.Background(), "iPhone", 1000, t0)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got.Kind != model.ChangeFirst {
		t.Errorf("Kind = %q, want first", got.Kind)
	}
	if got.OldPrice != nil {
		t.Errorf("OldPrice = %v, want nil", *got.OldPrice)
	}
	if got.PercentDelta != nil {
		t.Errorf("PercentDelta = %v, want nil", *got.PercentDelta)
	}
}

func TestDetect_Kinds(t *testing.T) {
	tests := []struct {
		name      string
		old, new  float64
		wantKind  model.ChangeKind
		wantDelta float64
		wantPct   float64
	}{
		{"drop", 100, 90, model.ChangeDrop, -10, -10},
		{"rise", 100, 125, model.ChangeRise, 25, 25},
		{"unchanged", 100, 100, model.ChangeUnchanged, 0, 0},
		{"rounded percent", 300, 200, model.ChangeDrop, -100, -33.33},
		{"lakh prices", 119999, 109999, model.ChangeDrop, -10000, -8.33},
		{"paise", 64999.99, 64999.98, model.ChangeDrop, -0.01, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seed(t, map[time.Duration]float64{0: tt.old}, 0)
			d := NewDetector(s)

			got, err := d.Detect(context.Background(), "iPhone", tt.new, t0.Add(time.Hour))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.OldPrice == nil || *got.OldPrice != tt.old {
				t.Errorf("OldPrice = %v, want %v", got.OldPrice, tt.old)
			}
			if got.Delta != tt.wantDelta {
				t.Errorf("Delta = %v, want %v", got.Delta, tt.wantDelta)
			}
			if got.PercentDelta == nil || *got.PercentDelta != tt.wantPct {
				t.Errorf("PercentDelta = %v, want %v", got.PercentDelta, tt.wantPct)
			}
		})
	}
}

func TestDetect_UsesImmediatelyPrecedingObservation(t *testing.T) {
	// history low is 80 but the previous reading is 120
	s := seed(t, map[time.Duration]float64{0: 100, time.Hour: 80, 2 * time.Hour: 120}, 0, time.Hour, 2*time.Hour)
	d := NewDetector(s)

	got, err := d.Detect(context.Background(), "iPhone", 110, t0.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got.Kind != model.ChangeDrop || *got.OldPrice != 120 {
		t.Errorf("got %q from %v, want drop from 120", got.Kind, *got.OldPrice)
	}

	// an observation already stored at ts is not its own predecessor
	got, err = d.Detect(context.Background(), "iPhone", 120, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got.Kind != model.ChangeRise || *got.OldPrice != 80 {
		t.Errorf("got %q from %v, want rise from 80", got.Kind, *got.OldPrice)
	}
}

func TestDetect_ZeroBaseline(t *testing.T) {
	s := seed(t, map[time.Duration]float64{0: 0}, 0)
	d := NewDetector(s)

	got, err := d.Detect(context.Background(), "iPhone", 50, t0.Add(time.Hour))
	if !errors.Is(err, ErrDivisionUndefined) {
		t.Fatalf("err = %v, want ErrDivisionUndefined", err)
	}
	if got.Kind != model.ChangeRise || got.Delta != 50 {
		t.Errorf("got %+v, want rise with delta 50", got)
	}
	if got.PercentDelta != nil {
		t.Errorf("PercentDelta = %v, want nil", *got.PercentDelta)
	}
}

type failingHistory struct{ err error }

func (f failingHistory) LatestBefore(context.Context, string, time.Time) (model.Observation, bool, error) {
	return model.Observation{}, false, f.err
}

func (f failingHistory) Each(context.Context, string, func(model.Observation) error) error {
	return f.err
}

func TestDetect_StoreError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := NewDetector(failingHistory{boom}).Detect(context.Background(), "iPhone", 1, t0)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

func TestEvaluate(t *testing.T) {
	product := model.Product{Name: "iPhone", URL: "https://www.flipkart.com/p/1", Threshold: model.Float(50000)}

	alert := Evaluate(product, 49999, t0)
	if alert == nil {
		t.Fatal("Evaluate(49999) = nil, want alert")
	}
	if alert.Price != 49999 || alert.Threshold != 50000 || alert.ProductName != "iPhone" || alert.ID == "" {
		t.Errorf("alert = %+v", alert)
	}
	if !alert.Timestamp.Equal(t0) {
		t.Errorf("Timestamp = %v, want %v", alert.Timestamp, t0)
	}

	if got := Evaluate(product, 50000, t0); got != nil {
		t.Errorf("Evaluate(50000) = %+v, want nil (strict inequality)", got)
	}
	if got := Evaluate(product, 60000, t0); got != nil {
		t.Errorf("Evaluate(60000) = %+v, want nil", got)
	}

	noThreshold := model.Product{Name: "Pixel"}
	if got := Evaluate(noThreshold, 0, t0); got != nil {
		t.Errorf("Evaluate without threshold = %+v, want nil", got)
	}

	// same inputs, same decision
	if Evaluate(product, 49999, t0) == nil {
		t.Error("Evaluate is not idempotent")
	}
}

func TestAnalyze(t *testing.T) {
	s := seed(t,
		map[time.Duration]float64{0: 100, time.Hour: 80, 4 * time.Hour: 120},
		0, time.Hour, 4*time.Hour,
	)

	got, err := NewAnalyzer(s).Analyze(context.Background(), "iPhone")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !got.Available || got.Count != 3 {
		t.Errorf("Available=%v Count=%d", got.Available, got.Count)
	}
	if got.MinPrice != 80 || got.MaxPrice != 120 || got.LatestPrice != 120 {
		t.Errorf("min=%v max=%v latest=%v, want 80 120 120", got.MinPrice, got.MaxPrice, got.LatestPrice)
	}
	if got.AvgPrice != 100 {
		t.Errorf("AvgPrice = %v, want 100", got.AvgPrice)
	}
	// (120 - 100) / 4h
	if got.RatePerHour == nil || *got.RatePerHour != 5 {
		t.Errorf("RatePerHour = %v, want 5", got.RatePerHour)
	}
	if !got.FirstSeen.Equal(t0) || !got.LastSeen.Equal(t0.Add(4*time.Hour)) {
		t.Errorf("FirstSeen=%v LastSeen=%v", got.FirstSeen, got.LastSeen)
	}
	if got.AtHistoricalLow {
		t.Error("AtHistoricalLow = true, want false")
	}
}

func TestAnalyze_AtHistoricalLow(t *testing.T) {
	s := seed(t,
		map[time.Duration]float64{0: 100, time.Hour: 90, 2 * time.Hour: 70},
		0, time.Hour, 2*time.Hour,
	)
	got, err := NewAnalyzer(s).Analyze(context.Background(), "iPhone")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.AtHistoricalLow {
		t.Error("AtHistoricalLow = false, want true")
	}
	if *got.RatePerHour != -15 {
		t.Errorf("RatePerHour = %v, want -15", *got.RatePerHour)
	}
}

func TestAnalyze_SlowTrendIsNotZero(t *testing.T) {
	month := 720 * time.Hour
	s := seed(t, map[time.Duration]float64{0: 100, month: 101}, 0, month)

	got, err := NewAnalyzer(s).Analyze(context.Background(), "iPhone")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.RatePerHour == nil || *got.RatePerHour <= 0 {
		t.Fatalf("RatePerHour = %v, want a small positive rate", got.RatePerHour)
	}
	if diff := *got.RatePerHour - 1.0/720; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("RatePerHour = %v, want %v", *got.RatePerHour, 1.0/720)
	}
}

func TestAnalyze_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		prices := map[time.Duration]float64{0: 100}
		var order []time.Duration
		if n == 1 {
			order = []time.Duration{0}
		}

		got, err := NewAnalyzer(seed(t, prices, order...)).Analyze(context.Background(), "iPhone")
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("n=%d: err = %v, want ErrInsufficientData", n, err)
		}
		if got.Available {
			t.Errorf("n=%d: Available = true", n)
		}
		if got.Count != n {
			t.Errorf("n=%d: Count = %d", n, got.Count)
		}
	}
}

func TestAnalyze_ZeroElapsedTime(t *testing.T) {
	s, _ := store.NewMemory("")
	ctx := context.Background()
	for _, p := range []float64{100, 90} {
		if err := s.Append(ctx, model.Observation{ProductName: "iPhone", Timestamp: t0, Price: p}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := NewAnalyzer(s).Analyze(ctx, "iPhone")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.RatePerHour != nil {
		t.Errorf("RatePerHour = %v, want nil (undefined)", *got.RatePerHour)
	}
	if !got.Available {
		t.Error("Available = false, want true")
	}
}
