// Package config loads environment-driven configuration for every
// component of the tracking backbone, and seeds the milestone catalog and
// source priority table from embedded YAML reference data (see
// pkg/config/seed) rather than a maintained database migration.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/airfreight/trackingd/pkg/database"
)

// SchedulerConfig controls the poll scheduler (§4.4).
type SchedulerConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	BatchSize         int           `yaml:"batch_size"`
	PerSourceParallel int           `yaml:"per_source_parallel"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
}

// DefaultSchedulerConfig returns the built-in scheduler defaults (§4.4:
// default 1-minute tick, default 100 per batch).
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:      1 * time.Minute,
		BatchSize:         100,
		PerSourceParallel: 8,
		FetchTimeout:      30 * time.Second,
	}
}

// HubConfig controls the subscription and fan-out hub (§4.5).
type HubConfig struct {
	ClientQueueCapacity int           `yaml:"client_queue_capacity"`
	MaxQueueOverflows   int           `yaml:"max_queue_overflows"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	SnapshotEventLimit  int           `yaml:"snapshot_event_limit"`
}

// DefaultHubConfig returns the built-in hub defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		ClientQueueCapacity: 256,
		MaxQueueOverflows:   3,
		WriteTimeout:        5 * time.Second,
		SnapshotEventLimit:  20,
	}
}

// NotifyConfig controls the notification dispatcher (§4.6).
type NotifyConfig struct {
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	MaxAttempts     int           `yaml:"max_attempts"`
	DeliverTimeout  time.Duration `yaml:"deliver_timeout"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	PerMethodParallel int         `yaml:"per_method_parallel"`

	SMTPAddr     string
	SMTPHost     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string

	SMSGatewayEndpoint  string
	SMSGatewayAccountID string
	SMSGatewayAuthToken string
	SMSFromNumber       string
}

// DefaultNotifyConfig returns the built-in retry/backoff defaults (§4.6:
// initial 2s, max 30s, up to 3 attempts).
func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		MaxAttempts:       3,
		DeliverTimeout:    30 * time.Second,
		SweepInterval:     2 * time.Minute,
		PerMethodParallel: 4,
	}
}

// CacheConfig controls the public-tracking read-through cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultCacheConfig returns the built-in cache defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr: "localhost:6379",
		DB:   0,
		TTL:  30 * time.Second,
	}
}

// FeedConfig configures the industry-feed adapter.
type FeedConfig struct {
	BaseURL string
	APIKey  string
	Enabled bool
}

// APIConfig configures the HTTP/WebSocket front end.
type APIConfig struct {
	ListenAddr       string
	AuthTokenSecret  string
	MetricsPath      string
	ShutdownDeadline time.Duration
}

// Config aggregates every component's configuration, loaded once at
// process start and injected explicitly into constructors — no globals.
type Config struct {
	Database  database.Config
	Scheduler SchedulerConfig
	Hub       HubConfig
	Notify    NotifyConfig
	Cache     CacheConfig
	Feed      FeedConfig
	API       APIConfig
}

// Load reads .env (if present) and then every component's configuration
// from the environment, applying built-in defaults where env vars are
// unset. Mirrors the bootstrap order used throughout the corpus:
// godotenv.Load (best-effort) followed by strict per-component parsing.
func Load() (*Config, error) {
	// Best-effort: a missing .env file is normal in production deployments
	// where configuration arrives purely via the environment.
	_ = godotenv.Load()

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, NewLoadError("database", err)
	}

	sched := DefaultSchedulerConfig()
	if v := os.Getenv("SCHEDULER_TICK_INTERVAL"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return nil, NewValidationError("scheduler", "tick_interval", perr)
		}
		sched.TickInterval = d
	}
	if v := os.Getenv("SCHEDULER_BATCH_SIZE"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return nil, NewValidationError("scheduler", "batch_size", perr)
		}
		sched.BatchSize = n
	}

	hub := DefaultHubConfig()
	if v := os.Getenv("HUB_CLIENT_QUEUE_CAPACITY"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return nil, NewValidationError("hub", "client_queue_capacity", perr)
		}
		hub.ClientQueueCapacity = n
	}

	notify := DefaultNotifyConfig()
	notify.SMTPAddr = getEnvOrDefault("NOTIFY_SMTP_ADDR", "localhost:25")
	notify.SMTPHost = os.Getenv("NOTIFY_SMTP_HOST")
	notify.SMTPUsername = os.Getenv("NOTIFY_SMTP_USERNAME")
	notify.SMTPPassword = os.Getenv("NOTIFY_SMTP_PASSWORD")
	notify.FromEmail = getEnvOrDefault("NOTIFY_FROM_EMAIL", "tracking@example.com")
	notify.SMSGatewayEndpoint = os.Getenv("NOTIFY_SMS_GATEWAY_ENDPOINT")
	notify.SMSGatewayAccountID = os.Getenv("NOTIFY_SMS_GATEWAY_ACCOUNT_ID")
	notify.SMSGatewayAuthToken = os.Getenv("NOTIFY_SMS_GATEWAY_AUTH_TOKEN")
	notify.SMSFromNumber = os.Getenv("NOTIFY_SMS_FROM_NUMBER")

	cache := DefaultCacheConfig()
	cache.Addr = getEnvOrDefault("CACHE_ADDR", cache.Addr)
	cache.Password = os.Getenv("CACHE_PASSWORD")

	feed := FeedConfig{
		BaseURL: os.Getenv("FEED_BASE_URL"),
		APIKey:  os.Getenv("FEED_API_KEY"),
		Enabled: getEnvOrDefault("FEED_ENABLED", "false") == "true",
	}

	shutdownDeadline, err := time.ParseDuration(getEnvOrDefault("API_SHUTDOWN_DEADLINE", "30s"))
	if err != nil {
		return nil, NewValidationError("api", "shutdown_deadline", err)
	}

	api := APIConfig{
		ListenAddr:       getEnvOrDefault("API_LISTEN_ADDR", ":8080"),
		AuthTokenSecret:  os.Getenv("API_AUTH_TOKEN_SECRET"),
		MetricsPath:      getEnvOrDefault("API_METRICS_PATH", "/metrics"),
		ShutdownDeadline: shutdownDeadline,
	}

	cfg := &Config{
		Database:  dbCfg,
		Scheduler: sched,
		Hub:       hub,
		Notify:    notify,
		Cache:     cache,
		Feed:      feed,
		API:       api,
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
