package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"price-tracker/internal/model"
)

const (
	defaultBarkURL = "https://api.day.app"
)

// BarkService sends push notifications through a Bark server
type BarkService struct {
	client   *http.Client
	baseURL  string
	key      string
	currency string
}

var _ Channel = (*BarkService)(nil)

// NewBarkService creates a new Bark notification service
func NewBarkService(baseURL, key, currency string) *BarkService {
	if baseURL == "" {
		baseURL = defaultBarkURL
	}
	return &BarkService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		key:      key,
		currency: currency,
	}
}

func (b *BarkService) Name() string {
	return "bark"
}

// SendNotification sends a Bark notification
func (b *BarkService) SendNotification(ctx context.Context, title, content string) error {
	if b.key == "" {
		return fmt.Errorf("bark key is empty")
	}

	// Build URL: {base}/{key}/{title}/{content}
	barkURL := fmt.Sprintf("%s/%s/%s/%s", b.baseURL, b.key, url.PathEscape(title), url.PathEscape(content))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, barkURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// Send pushes a below-threshold alert
func (b *BarkService) Send(ctx context.Context, alert model.Alert) error {
	title := "Price alert: " + alert.ProductName
	content := fmt.Sprintf("Now %s%.2f, below your threshold of %s%.2f",
		b.currency, alert.Price, b.currency, alert.Threshold)
	return b.SendNotification(ctx, title, content)
}
