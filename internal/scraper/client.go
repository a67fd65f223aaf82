package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly"
)

// FetchError is a network failure or a non-2xx response for a product page
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher returns the body of a product page
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client fetches pages through a colly collector. It does not retry.
type Client struct {
	collector *colly.Collector
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a new scraper client
func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	return &Client{collector: c}
}

// Fetch visits url once and returns the response body
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	// Callbacks are per collector, so each fetch gets its own clone
	col := c.collector.Clone()

	var (
		body    []byte
		status  int
		respErr error
	)
	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-IN,en;q=0.9")
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	col.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	col.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		respErr = err
	})

	visitErr := col.Visit(url)
	switch {
	case ctx.Err() != nil:
		return nil, &FetchError{URL: url, Err: ctx.Err()}
	case respErr != nil:
		return nil, &FetchError{URL: url, StatusCode: status, Err: respErr}
	case visitErr != nil:
		return nil, &FetchError{URL: url, Err: visitErr}
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, &FetchError{URL: url, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}

	return body, nil
}
