package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"price-tracker/internal/model"
)

type Config struct {
	Environment string
	LogLevel    string
	Port        string
	Host        string

	StoreDriver string
	DataDir     string
	DatabaseURL string
	Postgres    PostgresConfig

	CatalogPath string
	LinksPath   string

	ScraperUserAgent string
	ScraperTimeout   time.Duration
	CycleInterval    time.Duration
	ReportInterval   time.Duration
	Workers          int

	ExportDir      string
	ExportCSV      bool
	ExportXLSX     bool
	CurrencySymbol string

	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string

	BarkKey string
	BarkURL string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AlertOnTransition bool

	// Products is the merged catalog: YAML entries first, then links-file URLs
	Products []model.Product
}

// PostgresConfig holds the connection used when StoreDriver is "postgres"
type PostgresConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int
}

// Load reads .env (if present) and the environment, then the product catalog
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		Port:              getEnv("PORT", "8080"),
		Host:              getEnv("HOST", "0.0.0.0"),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DataDir:           getEnv("DATA_DIR", "./data"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CatalogPath:       getEnv("CATALOG_PATH", "catalog.yaml"),
		LinksPath:         getEnv("LINKS_PATH", "links.txt"),
		ScraperUserAgent:  getEnv("HEADER", getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")),
		ExportDir:         getEnv("EXPORT_DIR", "./exports"),
		CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "₹"),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:          getEnv("SMTP_FROM", "Price Tracker <noreply@example.com>"),
		BarkKey:           getEnv("BARK_KEY", ""),
		BarkURL:           getEnv("BARK_URL", "https://api.day.app"),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "price-alerts"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		Postgres: PostgresConfig{
			Host:     getEnv("PG_HOST", ""),
			Name:     getEnv("PG_NAME", "price_tracker"),
			User:     getEnv("PG_USER", ""),
			Password: getEnv("PG_PASSWORD", ""),
			SSLMode:  getEnv("PG_SSLMODE", "prefer"),
		},
	}

	var err error
	if cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.Postgres.Port, err = getEnvInt("PG_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.Postgres.MaxConns, err = getEnvInt("PG_MAX_CONNS", 4); err != nil {
		return nil, err
	}

	if cfg.ScraperTimeout, err = getEnvDuration("SCRAPER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.ReportInterval, err = getEnvDuration("REPORT_INTERVAL", "24h"); err != nil {
		return nil, err
	}
	// SCRAPE_INTERVAL is the legacy setting in whole seconds
	if secs := getEnv("SCRAPE_INTERVAL", ""); secs != "" && os.Getenv("CYCLE_INTERVAL") == "" {
		n, err := strconv.Atoi(secs)
		if err != nil {
			return nil, fmt.Errorf("invalid SCRAPE_INTERVAL: %w", err)
		}
		cfg.CycleInterval = time.Duration(n) * time.Second
	} else if cfg.CycleInterval, err = getEnvDuration("CYCLE_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	if cfg.ExportCSV, err = getEnvBool("EXPORT_CSV", true); err != nil {
		return nil, err
	}
	if cfg.ExportXLSX, err = getEnvBool("EXPORT_XLSX", true); err != nil {
		return nil, err
	}
	if cfg.AlertOnTransition, err = getEnvBool("ALERT_ON_TRANSITION", true); err != nil {
		return nil, err
	}

	products, err := LoadProducts(cfg.CatalogPath, cfg.LinksPath)
	if err != nil {
		return nil, err
	}
	cfg.Products = products

	return cfg, nil
}

// IsProduction reports whether the process runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
