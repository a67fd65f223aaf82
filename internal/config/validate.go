package config

import (
	"errors"
	"fmt"

	"price-tracker/internal/model"
)

// ErrUnknownSource is wrapped by ConfigurationError for a product whose source
// tag has no extraction adapter
var ErrUnknownSource = errors.New("unknown source")

// ConfigurationError is fatal: the process must not start with it
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// KnownSources lists the source tags with an extraction adapter
var KnownSources = []model.Source{model.SourceFlipkart, model.SourceAmazon}

// IsKnownSource reports whether s has an extraction adapter
func IsKnownSource(s model.Source) bool {
	for _, known := range KnownSources {
		if s == known {
			return true
		}
	}
	return false
}

// Validate checks required settings and the product catalog
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "json":
		if c.DataDir == "" {
			return invalid("DATA_DIR", "required for store driver %q", c.StoreDriver)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			if c.Postgres.Host == "" {
				return invalid("PG_HOST", "required when DATABASE_URL is not set")
			}
			if c.Postgres.User == "" {
				return invalid("PG_USER", "required when DATABASE_URL is not set")
			}
		}
		if c.Postgres.MaxConns < 1 {
			return invalid("PG_MAX_CONNS", "must be >= 1, got %d", c.Postgres.MaxConns)
		}
	case "memory":
	default:
		return invalid("STORE_DRIVER", "unsupported driver %q", c.StoreDriver)
	}

	if c.Workers < 1 {
		return invalid("WORKERS", "must be >= 1, got %d", c.Workers)
	}
	if c.CycleInterval <= 0 {
		return invalid("CYCLE_INTERVAL", "must be positive")
	}
	if c.ReportInterval <= 0 {
		return invalid("REPORT_INTERVAL", "must be positive")
	}
	if c.ScraperUserAgent == "" {
		return invalid("HEADER", "user agent is required")
	}
	if (c.ExportCSV || c.ExportXLSX) && c.ExportDir == "" {
		return invalid("EXPORT_DIR", "required when an exporter is enabled")
	}
	if c.NotificationEmail != "" && (c.SMTPUser == "" || c.SMTPPassword == "") {
		return invalid("SMTP_USER", "SMTP credentials are required when NOTIFICATION_EMAIL is set")
	}

	return ValidateProducts(c.Products)
}

// ValidateProducts checks every catalog entry has a URL, a known source and a
// sane threshold, and that configured names are unique
func ValidateProducts(products []model.Product) error {
	names := make(map[string]bool, len(products))
	for i, p := range products {
		field := fmt.Sprintf("products[%d]", i)
		if p.URL == "" {
			return invalid(field+".url", "is required")
		}
		if !IsKnownSource(p.Source) {
			return &ConfigurationError{
				Field: field + ".source",
				Err:   fmt.Errorf("%w %q for %s", ErrUnknownSource, p.Source, p.URL),
			}
		}
		if p.Threshold != nil && *p.Threshold < 0 {
			return invalid(field+".threshold", "must be >= 0, got %v", *p.Threshold)
		}
		if p.Name != "" {
			if names[p.Name] {
				return invalid(field+".name", "duplicate product name %q", p.Name)
			}
			names[p.Name] = true
		}
	}
	return nil
}
