package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// OpenAI-compatible chat completion service
	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"home_ops"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"home_ops"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (optional query-result cache)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// League sources. The listing page is scraped for per-kind PDF links;
	// explicit URLs here always win over anything found on the listing page.
	ListingURL   string        `envconfig:"BOWLING_LISTING_URL" default:"https://www.bopostats.com/"`
	AveragesURL  string        `envconfig:"BOWLING_AVERAGES_URL" default:""`
	ScheduleURL  string        `envconfig:"BOWLING_SCHEDULE_URL" default:""`
	StandingsURL string        `envconfig:"BOWLING_STANDINGS_URL" default:""`
	SnapshotURL  string        `envconfig:"BOWLING_SNAPSHOT_URL" default:""`
	SourcePrefix string        `envconfig:"BOWLING_SOURCE_PREFIX" default:"bowling"`
	RefreshDays  int           `envconfig:"BOWLING_REFRESH_DAYS" default:"7"`
	CacheDir     string        `envconfig:"BOWLING_CACHE_DIR" default:"data/cache"`
	FetchTimeout time.Duration `envconfig:"BOWLING_FETCH_TIMEOUT" default:"20s"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	NightlyRefreshCron string `envconfig:"NIGHTLY_REFRESH_CRON" default:"0 6 * * *"`

	// Caching TTL for query results (seconds)
	CacheTTLQueries int `envconfig:"CACHE_TTL_QUERIES" default:"300"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.RefreshDays < 1 {
		return fmt.Errorf("BOWLING_REFRESH_DAYS must be at least 1")
	}

	if c.ListingURL == "" && c.AveragesURL == "" && c.ScheduleURL == "" &&
		c.StandingsURL == "" && c.SnapshotURL == "" {
		return fmt.Errorf("at least one of BOWLING_LISTING_URL or a per-kind URL is required")
	}

	return nil
}

// RefreshInterval returns the fetch-state refresh interval as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshDays) * 24 * time.Hour
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
