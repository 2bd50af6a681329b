package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the PagePulse application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	History   HistoryConfig
	Shopify   ShopifyConfig
	Session   SessionConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	BaseURL         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HistoryConfig configures the optional ClickHouse comparison-run audit sink.
type HistoryConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

// ShopifyConfig carries API credentials and the pacing/timeout knobs for
// every upstream call. There is deliberately no package-level state: the
// gateway receives this struct at construction.
type ShopifyConfig struct {
	APIKey        string
	APISecret     string
	Scopes        string
	APIVersion    string
	CallTimeout   time.Duration
	CallDelay     time.Duration
	MaxOrderPages int
	QueryRowLimit int
}

type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
}

type CacheConfig struct {
	TTL time.Duration
}

// PipelineConfig holds the per-stage timeout budgets of a comparison run.
type PipelineConfig struct {
	CacheCheckTimeout time.Duration
	ResolveTimeout    time.Duration
	FetchTimeout      time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("PAGEPULSE_HTTP_ADDR", ":8080"),
			Env:             getEnv("PAGEPULSE_ENV", "development"),
			BaseURL:         getEnv("PAGEPULSE_BASE_URL", "http://localhost:8080"),
			ShutdownTimeout: getDurationEnv("PAGEPULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("PAGEPULSE_DB_ENABLED", true),
			Host:     getEnv("PAGEPULSE_DB_HOST", "localhost"),
			Port:     getIntEnv("PAGEPULSE_DB_PORT", 5432),
			User:     getEnv("PAGEPULSE_DB_USER", "pagepulse"),
			Password: getEnv("PAGEPULSE_DB_PASSWORD", "pagepulse_secret"),
			DBName:   getEnv("PAGEPULSE_DB_NAME", "pagepulse"),
			SSLMode:  getEnv("PAGEPULSE_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("PAGEPULSE_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("PAGEPULSE_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("PAGEPULSE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("PAGEPULSE_REDIS_PASSWORD", ""),
			DB:       getIntEnv("PAGEPULSE_REDIS_DB", 0),
		},
		History: HistoryConfig{
			Enabled:  getBoolEnv("PAGEPULSE_HISTORY_ENABLED", false),
			Addr:     getEnv("PAGEPULSE_HISTORY_ADDR", "localhost:9000"),
			Database: getEnv("PAGEPULSE_HISTORY_DB", "pagepulse"),
			User:     getEnv("PAGEPULSE_HISTORY_USER", "default"),
			Password: getEnv("PAGEPULSE_HISTORY_PASSWORD", ""),
		},
		Shopify: ShopifyConfig{
			APIKey:        getEnv("PAGEPULSE_SHOPIFY_API_KEY", ""),
			APISecret:     getEnv("PAGEPULSE_SHOPIFY_API_SECRET", ""),
			Scopes:        getEnv("PAGEPULSE_SHOPIFY_SCOPES", "read_products,read_orders,read_reports"),
			APIVersion:    getEnv("PAGEPULSE_SHOPIFY_API_VERSION", "2024-01"),
			CallTimeout:   getDurationEnv("PAGEPULSE_SHOPIFY_CALL_TIMEOUT", 10*time.Second),
			CallDelay:     getDurationEnv("PAGEPULSE_SHOPIFY_CALL_DELAY", 550*time.Millisecond),
			MaxOrderPages: getIntEnv("PAGEPULSE_SHOPIFY_MAX_ORDER_PAGES", 20),
			QueryRowLimit: getIntEnv("PAGEPULSE_SHOPIFY_QUERY_ROW_LIMIT", 1000),
		},
		Session: SessionConfig{
			Secret:     getEnv("PAGEPULSE_SESSION_SECRET", ""),
			CookieName: getEnv("PAGEPULSE_SESSION_COOKIE", "pagepulse_session"),
			TTL:        getDurationEnv("PAGEPULSE_SESSION_TTL", 30*24*time.Hour),
		},
		Cache: CacheConfig{
			TTL: getDurationEnv("PAGEPULSE_CACHE_TTL", 10*time.Minute),
		},
		Pipeline: PipelineConfig{
			CacheCheckTimeout: getDurationEnv("PAGEPULSE_STAGE_CACHE_TIMEOUT", 2*time.Second),
			ResolveTimeout:    getDurationEnv("PAGEPULSE_STAGE_RESOLVE_TIMEOUT", 20*time.Second),
			FetchTimeout:      getDurationEnv("PAGEPULSE_STAGE_FETCH_TIMEOUT", 45*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("PAGEPULSE_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("PAGEPULSE_RATE_LIMIT_RPS", 20),
			Burst:   getIntEnv("PAGEPULSE_RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("PAGEPULSE_LOG_LEVEL", "info"),
			Format: getEnv("PAGEPULSE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("PAGEPULSE_METRICS_ENABLED", true),
			Path:    getEnv("PAGEPULSE_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Shopify.APIKey == "" || c.Shopify.APISecret == "" {
		return fmt.Errorf("PAGEPULSE_SHOPIFY_API_KEY and PAGEPULSE_SHOPIFY_API_SECRET are required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("PAGEPULSE_SESSION_SECRET is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http") {
		return fmt.Errorf("PAGEPULSE_BASE_URL must be an absolute URL")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
