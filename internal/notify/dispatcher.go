// Package notify delivers price alerts to log, push, email and Kafka
// channels and suppresses repeats while a product stays below threshold.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"price-tracker/internal/model"
)

// Channel delivers one alert
type Channel interface {
	Name() string
	Send(ctx context.Context, alert model.Alert) error
}

// AlertRecorder persists delivered alerts
type AlertRecorder interface {
	RecordAlert(ctx context.Context, alert model.Alert) error
}

// Dispatcher applies the alert policy and fans alerts out to channels
type Dispatcher struct {
	channels     []Channel
	state        AlertState
	recorder     AlertRecorder
	onTransition bool
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewDispatcher creates a new notification dispatcher. With onTransition
// set, an alert is delivered only when a product moves below threshold and
// again only after a reading at or above it.
func NewDispatcher(state AlertState, recorder AlertRecorder, onTransition bool, logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if state == nil {
		state = NewMemoryState()
	}
	return &Dispatcher{
		channels:     channels,
		state:        state,
		recorder:     recorder,
		onTransition: onTransition,
		logger:       logger,
	}
}

// AddChannel registers another delivery channel
func (d *Dispatcher) AddChannel(c Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, c)
}

// Observe is called for every successful reading. alert is nil when the
// price is not below threshold or the product has none, and either case
// ends the below-threshold state.
func (d *Dispatcher) Observe(ctx context.Context, product model.Product, price float64, alert *model.Alert) {
	if alert == nil {
		if d.onTransition {
			if err := d.state.Clear(ctx, product.Name); err != nil {
				d.logger.Warn("failed to clear alert state", "product", product.Name, "err", err)
			}
		}
		return
	}

	if d.onTransition {
		entered, err := d.state.Enter(ctx, product.Name)
		if err != nil {
			// deliver rather than drop when state is unavailable
			d.logger.Warn("alert state unavailable", "product", product.Name, "err", err)
		} else if !entered {
			d.logger.Debug("alert suppressed, already below threshold", "product", product.Name, "price", price)
			return
		}
	}

	d.Deliver(ctx, *alert)
}

// Deliver logs, records and sends alert on every channel. Channel errors
// are logged.
func (d *Dispatcher) Deliver(ctx context.Context, alert model.Alert) {
	d.logger.Info("price alert",
		"alert_id", alert.ID,
		"product", alert.ProductName,
		"price", alert.Price,
		"threshold", alert.Threshold,
		"url", alert.URL,
	)

	if d.recorder != nil {
		if err := d.recorder.RecordAlert(ctx, alert); err != nil {
			d.logger.Error("failed to record alert", "alert_id", alert.ID, "err", err)
		}
	}

	d.mu.RLock()
	channels := d.channels
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range channels {
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if err := c.Send(ctx, alert); err != nil {
				d.logger.Error("notification failed", "channel", c.Name(), "product", alert.ProductName, "err", err)
				return
			}
			d.logger.Debug("notification sent", "channel", c.Name(), "product", alert.ProductName)
		}(c)
	}
	wg.Wait()
}
