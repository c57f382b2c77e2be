package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Push       PushConfig       `yaml:"push"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	ActorHeader     string  `yaml:"actor_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// OAuthConfig describes the calendar provider's OAuth client.
type OAuthConfig struct {
	Provider              string        `yaml:"provider"`
	ClientID              string        `yaml:"client_id"`
	ClientSecret          string        `yaml:"client_secret"`
	AuthURL               string        `yaml:"auth_url"`
	TokenURL              string        `yaml:"token_url"`
	Scopes                []string      `yaml:"scopes"`
	SafetyMarginSeconds   int           `yaml:"safety_margin_seconds"`
	SafetyMargin          time.Duration `yaml:"-"`
	RefreshTimeoutSeconds int           `yaml:"refresh_timeout_seconds"`
	RefreshTimeout        time.Duration `yaml:"-"`
}

// CalendarConfig holds the calendar gateway and Accept retry settings.
type CalendarConfig struct {
	Endpoint             string        `yaml:"endpoint"` // empty uses the provider default
	CalendarID           string        `yaml:"calendar_id"`
	DefaultTimezone      string        `yaml:"default_timezone"`
	TimeoutSeconds       int           `yaml:"timeout_seconds"`
	Timeout              time.Duration `yaml:"-"`
	MaxAttempts          int           `yaml:"max_attempts"`
	InitialBackoffMillis int           `yaml:"initial_backoff_millis"`
	InitialBackoff       time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// KafkaConfig enables the event-bus sink of the notifier when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// SweeperConfig controls time-based completion of past sessions.
type SweeperConfig struct {
	Enabled                bool          `yaml:"enabled"`
	IntervalSeconds        int           `yaml:"interval_seconds"`
	Interval               time.Duration `yaml:"-"`
	AutoCompleteAfterHours int           `yaml:"auto_complete_after_hours"`
	AutoCompleteAfter      time.Duration `yaml:"-"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset values and derives the duration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ActorHeader == "" {
		cfg.Server.ActorHeader = "X-User-ID"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.OAuth.Provider == "" {
		cfg.OAuth.Provider = "google"
	}
	if cfg.OAuth.SafetyMarginSeconds <= 0 {
		cfg.OAuth.SafetyMarginSeconds = 300
	}
	cfg.OAuth.SafetyMargin = time.Duration(cfg.OAuth.SafetyMarginSeconds) * time.Second
	if cfg.OAuth.RefreshTimeoutSeconds <= 0 {
		cfg.OAuth.RefreshTimeoutSeconds = 10
	}
	cfg.OAuth.RefreshTimeout = time.Duration(cfg.OAuth.RefreshTimeoutSeconds) * time.Second

	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	if cfg.Calendar.DefaultTimezone == "" {
		cfg.Calendar.DefaultTimezone = "UTC"
	}
	if cfg.Calendar.TimeoutSeconds <= 0 {
		cfg.Calendar.TimeoutSeconds = 15
	}
	cfg.Calendar.Timeout = time.Duration(cfg.Calendar.TimeoutSeconds) * time.Second
	if cfg.Calendar.MaxAttempts <= 0 {
		cfg.Calendar.MaxAttempts = 3
	}
	if cfg.Calendar.InitialBackoffMillis <= 0 {
		cfg.Calendar.InitialBackoffMillis = 200
	}
	cfg.Calendar.InitialBackoff = time.Duration(cfg.Calendar.InitialBackoffMillis) * time.Millisecond

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "mentorship.events"
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 300
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	if cfg.Sweeper.AutoCompleteAfterHours < 0 {
		cfg.Sweeper.AutoCompleteAfterHours = 0
	}
	cfg.Sweeper.AutoCompleteAfter = time.Duration(cfg.Sweeper.AutoCompleteAfterHours) * time.Hour

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
