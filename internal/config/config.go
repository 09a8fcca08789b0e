package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	Auth      AuthConfig      `yaml:"auth"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, listening on all interfaces inside
// containers.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the cache connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig selects and configures the transactional email provider.
//
// Driver is mandatory and decides behavior when credentials are missing:
// "mailgun" and "ses" fail at startup without credentials; "mock" is the
// explicit degraded mode that fabricates message ids and never talks to a
// real provider. Degradation is a configuration choice, not a fallback.
type ProviderConfig struct {
	Driver  string        `yaml:"driver"` // "mailgun", "ses", or "mock"
	Mailgun MailgunConfig `yaml:"mailgun"`
	SES     SESConfig     `yaml:"ses"`
}

// MailgunConfig holds Mailgun API configuration.
type MailgunConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c MailgunConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES API configuration.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds dashboard-token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ReconcileConfig tunes the identity reconciliation batch.
type ReconcileConfig struct {
	PageSize        int `yaml:"page_size"`
	BackoffSeconds  int `yaml:"backoff_seconds"`
	IntervalMinutes int `yaml:"interval_minutes"` // cmd/worker loop interval
}

// Backoff returns the rate-limit backoff as a duration.
func (c ReconcileConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// Interval returns the worker loop interval as a duration.
func (c ReconcileConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Provider.Driver == "" {
		cfg.Provider.Driver = "mailgun"
	}
	if cfg.Provider.Mailgun.BaseURL == "" {
		cfg.Provider.Mailgun.BaseURL = "https://api.mailgun.net"
	}
	if cfg.Provider.Mailgun.TimeoutSeconds == 0 {
		cfg.Provider.Mailgun.TimeoutSeconds = 30
	}
	if cfg.Provider.SES.Region == "" {
		cfg.Provider.SES.Region = "us-east-1"
	}
	if cfg.Provider.SES.TimeoutSeconds == 0 {
		cfg.Provider.SES.TimeoutSeconds = 30
	}
	if cfg.Reconcile.PageSize == 0 {
		cfg.Reconcile.PageSize = 99
	}
	if cfg.Reconcile.BackoffSeconds == 0 {
		cfg.Reconcile.BackoffSeconds = 5
	}
	if cfg.Reconcile.IntervalMinutes == 0 {
		cfg.Reconcile.IntervalMinutes = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PROVIDER_DRIVER"); v != "" {
		cfg.Provider.Driver = v
	}
	if v := os.Getenv("MAILGUN_API_KEY"); v != "" {
		cfg.Provider.Mailgun.APIKey = v
	}
	if v := os.Getenv("MAILGUN_BASE_URL"); v != "" {
		cfg.Provider.Mailgun.BaseURL = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Provider.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Provider.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Provider.SES.SecretKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	return cfg, nil
}

// Validate checks settings that must be present for the selected driver.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or DATABASE_URL)")
	}
	switch c.Provider.Driver {
	case "mailgun":
		if c.Provider.Mailgun.APIKey == "" {
			return fmt.Errorf("provider driver is mailgun but mailgun.api_key is empty; set MAILGUN_API_KEY or use driver: mock")
		}
	case "ses":
		if c.Provider.SES.AccessKey == "" || c.Provider.SES.SecretKey == "" {
			return fmt.Errorf("provider driver is ses but SES credentials are empty; set AWS_SES_ACCESS_KEY/AWS_SES_SECRET_KEY or use driver: mock")
		}
	case "mock":
		// Explicitly degraded; nothing to validate.
	default:
		return fmt.Errorf("unknown provider driver %q (want mailgun, ses, or mock)", c.Provider.Driver)
	}
	return nil
}
