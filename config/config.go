package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"finsage/models"
)

// Config holds all application configuration
type Config struct {
	// HTTP server configuration
	HTTP HTTPConfig

	// Cache configuration
	Cache CacheConfig

	// Retry configuration for history and fundamentals fetches
	Retry RetryConfig

	// Upstream provider configuration
	Providers ProvidersConfig

	// Pipeline behavior configuration
	Market MarketConfig

	// Production toggles JSON logging
	Production bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	TimeoutSeconds     int
	CORSAllowedOrigins string
}

// CacheConfig holds cache sizing and sweep configuration
type CacheConfig struct {
	QuoteTTLSeconds int
	DataTTLMinutes  int
	DataCapacity    int
	SweepSchedule   string // cron expression for the expiry sweep job
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries           int
	InitialBackoffMillis int
}

// ProvidersConfig holds upstream provider configuration. Base URLs are
// overridable so staging environments and tests can point elsewhere;
// empty means the production endpoint.
type ProvidersConfig struct {
	GoogleBaseURL  string
	YahooBaseURL   string
	Alpaca         AlpacaConfig
	PriceTablePath string
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
}

// MarketConfig holds pipeline behavior configuration
type MarketConfig struct {
	HistoryPeriod    string
	BatchConcurrency int
	BatchLimit       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:               getEnvString("FINSAGE_HTTP_ADDR", ":8080"),
			TimeoutSeconds:     getEnvInt("FINSAGE_HTTP_TIMEOUT_SECONDS", 30),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Cache: CacheConfig{
			QuoteTTLSeconds: getEnvInt("FINSAGE_QUOTE_TTL_SECONDS", 60),
			DataTTLMinutes:  getEnvInt("FINSAGE_DATA_TTL_MINUTES", 30),
			DataCapacity:    getEnvInt("FINSAGE_DATA_CACHE_CAPACITY", 128),
			SweepSchedule:   getEnvString("FINSAGE_CACHE_SWEEP_SCHEDULE", "@every 1m"),
		},
		Retry: RetryConfig{
			MaxRetries:           getEnvIntAtLeast("FINSAGE_RETRY_MAX", 2, 0),
			InitialBackoffMillis: getEnvInt("FINSAGE_RETRY_BACKOFF_MS", 250),
		},
		Providers: ProvidersConfig{
			GoogleBaseURL: os.Getenv("FINSAGE_GOOGLE_BASE_URL"),
			YahooBaseURL:  os.Getenv("FINSAGE_YAHOO_BASE_URL"),
			Alpaca: AlpacaConfig{
				APIKey:    os.Getenv("ALPACA_API_KEY"),
				APISecret: os.Getenv("ALPACA_API_SECRET"),
			},
			PriceTablePath: os.Getenv("FINSAGE_PRICE_TABLE"),
		},
		Market: MarketConfig{
			HistoryPeriod:    getEnvString("FINSAGE_HISTORY_PERIOD", "1y"),
			BatchConcurrency: getEnvInt("FINSAGE_BATCH_CONCURRENCY", 1),
			BatchLimit:       getEnvInt("FINSAGE_BATCH_LIMIT", 50),
		},
		Production: getEnvString("FINSAGE_ENV", "development") == "production",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("FINSAGE_HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Cache.QuoteTTLSeconds <= 0 {
		return fmt.Errorf("FINSAGE_QUOTE_TTL_SECONDS must be positive, got %d", c.Cache.QuoteTTLSeconds)
	}
	if c.Cache.DataTTLMinutes <= 0 {
		return fmt.Errorf("FINSAGE_DATA_TTL_MINUTES must be positive, got %d", c.Cache.DataTTLMinutes)
	}
	if c.Cache.DataCapacity < 1 {
		return fmt.Errorf("FINSAGE_DATA_CACHE_CAPACITY must be at least 1, got %d", c.Cache.DataCapacity)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("FINSAGE_RETRY_MAX must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Market.BatchConcurrency < 1 {
		return fmt.Errorf("FINSAGE_BATCH_CONCURRENCY must be at least 1, got %d", c.Market.BatchConcurrency)
	}
	if !models.HistoryPeriod(c.Market.HistoryPeriod).Valid() {
		return fmt.Errorf("FINSAGE_HISTORY_PERIOD %q is not a recognized period token", c.Market.HistoryPeriod)
	}
	return nil
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Providers.Alpaca.APIKey != "" && c.Providers.Alpaca.APISecret != ""
}

// QuoteTTL returns the quote cache TTL as a duration
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Cache.QuoteTTLSeconds) * time.Second
}

// DataTTL returns the data cache TTL as a duration
func (c *Config) DataTTL() time.Duration {
	return time.Duration(c.Cache.DataTTLMinutes) * time.Minute
}

// HTTPTimeout returns the request timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the initial retry backoff as a duration
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMillis) * time.Millisecond
}

type priceTableFile struct {
	Prices map[string]float64 `yaml:"prices"`
}

// LoadPriceTable reads the optional YAML price table used to seed the
// last-resort snapshot tier. An unset path returns an empty table.
func (c *Config) LoadPriceTable() (map[string]float64, error) {
	if c.Providers.PriceTablePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.Providers.PriceTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read price table: %w", err)
	}

	var table priceTableFile
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}

	for symbol, price := range table.Prices {
		if price <= 0 {
			return nil, fmt.Errorf("price table entry %s has non-positive price %v", symbol, price)
		}
	}

	return table.Prices, nil
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntAtLeast accepts values down to min, unlike getEnvInt which
// rejects zero. Retry counts may legitimately be zero.
func getEnvIntAtLeast(key string, defaultValue, min int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= min {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:               ":8080",
			TimeoutSeconds:     30,
			CORSAllowedOrigins: "*",
		},
		Cache: CacheConfig{
			QuoteTTLSeconds: 60,
			DataTTLMinutes:  30,
			DataCapacity:    128,
			SweepSchedule:   "@every 1m",
		},
		Retry: RetryConfig{
			MaxRetries:           2,
			InitialBackoffMillis: 250,
		},
		Providers: ProvidersConfig{},
		Market: MarketConfig{
			HistoryPeriod:    "1y",
			BatchConcurrency: 1,
			BatchLimit:       50,
		},
		Production: false,
	}
}
