package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by store.backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Kitchen    KitchenConfig    `yaml:"kitchen"`
	SMS        SMSConfig        `yaml:"sms"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the kitchen alert worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for kitchen web push alerts.
// Alerts are disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// StoreConfig selects and configures the order store backend.
type StoreConfig struct {
	Backend        string         `yaml:"backend"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Timeout        time.Duration  `yaml:"-"`
	LogLevel       string         `yaml:"log_level"`
	SQLite         SQLiteConfig   `yaml:"sqlite"`
	Postgres       DatabaseConfig `yaml:"postgres"`
	Redis          RedisConfig    `yaml:"redis"`
}

// SQLiteConfig holds the embedded database settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig holds the postgres connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds the redis connection configuration.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
	PoolSize  int    `yaml:"pool_size"`
}

// ScheduleConfig describes the reservation calendar.
type ScheduleConfig struct {
	Timezone string              `yaml:"timezone"`
	Capacity int                 `yaml:"capacity"`
	Slots    map[string][]string `yaml:"slots"`
}

// KitchenConfig holds the shared staff credentials.
type KitchenConfig struct {
	Password       string `yaml:"password"`
	SessionSecret  string `yaml:"session_secret"`
	CookieMaxAgeHr int    `yaml:"cookie_max_age_hours"`
	SecureCookie   bool   `yaml:"secure_cookie"`
}

// SMSConfig holds the Twilio credentials. SMS is disabled when AccountSID is empty.
type SMSConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	From           string `yaml:"from"`
	APIBase        string `yaml:"api_base"`
	HTTPProxy      string `yaml:"http_proxy"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether SMS credentials are configured.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != ""
}

// DefaultSlots is the slot catalog used when the config file does not list any.
func DefaultSlots() map[string][]string {
	return map[string][]string{
		"Saturday": {
			"10:00-10:30", "10:30-11:00", "11:00-11:30", "11:30-12:00",
			"12:00-12:30", "12:30-13:00", "13:00-13:30", "13:30-14:00",
		},
		"Sunday": {
			"10:00-10:30", "10:30-11:00", "11:30-12:00", "12:00-12:30",
			"12:30-13:00", "13:00-13:30", "13:30-14:00",
		},
	}
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

	applyEnv(&cfg)
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values and validates the result.
func (cfg *Config) ApplyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}

	switch cfg.Store.Backend {
	case "":
		cfg.Store.Backend = BackendSQLite
	case BackendSQLite, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}
	if cfg.Store.TimeoutSeconds <= 0 {
		cfg.Store.TimeoutSeconds = 5
	}
	cfg.Store.Timeout = time.Duration(cfg.Store.TimeoutSeconds) * time.Second
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = "./orders.db"
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = "preorder"
	}

	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/New_York"
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	if cfg.Schedule.Capacity <= 0 {
		cfg.Schedule.Capacity = 6
	}
	if len(cfg.Schedule.Slots) == 0 {
		cfg.Schedule.Slots = DefaultSlots()
	}

	if cfg.Kitchen.Password == "" {
		return fmt.Errorf("kitchen.password must be set")
	}
	if cfg.Kitchen.SessionSecret == "" {
		log.Printf("kitchen.session_secret is not set; using a built-in default")
		cfg.Kitchen.SessionSecret = "beansbagels-secret-key"
	}
	if cfg.Kitchen.CookieMaxAgeHr <= 0 {
		cfg.Kitchen.CookieMaxAgeHr = 24
	}

	if cfg.SMS.APIBase == "" {
		cfg.SMS.APIBase = "https://api.twilio.com"
	}
	if cfg.SMS.TimeoutSeconds <= 0 {
		cfg.SMS.TimeoutSeconds = 10
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
	return nil
}

// applyEnv lets deployments keep secrets out of the YAML file.
func applyEnv(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"KITCHEN_PASSWORD", &cfg.Kitchen.Password},
		{"SESSION_SECRET", &cfg.Kitchen.SessionSecret},
		{"TWILIO_ACCOUNT_SID", &cfg.SMS.AccountSID},
		{"TWILIO_AUTH_TOKEN", &cfg.SMS.AuthToken},
		{"TWILIO_PHONE_NUMBER", &cfg.SMS.From},
		{"DATABASE_URL", &cfg.Store.Postgres.DSN},
		{"REDIS_URL", &cfg.Store.Redis.URL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}
