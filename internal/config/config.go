package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Currency  CurrencyConfig  `mapstructure:"currency"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Host        string          `mapstructure:"host"`
	Port        int             `mapstructure:"port"`
	APIKey      string          `mapstructure:"api_key"`
	JobTTLHours int             `mapstructure:"job_ttl_hours"`
	MaxJobs     int             `mapstructure:"max_jobs"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles Monte Carlo submissions.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "memory", "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// AnalyticsConfig holds the account settings the engine computes with.
type AnalyticsConfig struct {
	AccountCurrency string  `mapstructure:"account_currency"`
	StartingBalance float64 `mapstructure:"starting_balance"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	Simulations     int     `mapstructure:"simulations"`
	Timezone        string  `mapstructure:"timezone"`
}

// CurrencyConfig overrides entries of the built-in rate table.
type CurrencyConfig struct {
	Rates map[string]float64 `mapstructure:"rates"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotificationsConfig lists the receivers of job and snapshot events.
type NotificationsConfig struct {
	Webhooks []WebhookConfig `mapstructure:"webhooks"`
}

// WebhookConfig is one HTTP receiver. Names must be unique.
type WebhookConfig struct {
	Name           string            `mapstructure:"name"`
	URL            string            `mapstructure:"url"`
	Headers        map[string]string `mapstructure:"headers"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

// Load reads configuration from file. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors Defaults so keys missing from the file keep their default.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("server.rate_limit.rps", d.Server.RateLimit.RPS)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite.path", d.Storage.SQLite.Path)
	v.SetDefault("storage.postgres.dsn", d.Storage.Postgres.DSN)
	v.SetDefault("storage.archive.type", d.Storage.Archive.Type)
	v.SetDefault("storage.archive.path", d.Storage.Archive.Path)
	v.SetDefault("analytics.account_currency", d.Analytics.AccountCurrency)
	v.SetDefault("analytics.starting_balance", d.Analytics.StartingBalance)
	v.SetDefault("analytics.risk_free_rate", d.Analytics.RiskFreeRate)
	v.SetDefault("analytics.simulations", d.Analytics.Simulations)
	v.SetDefault("analytics.timezone", d.Analytics.Timezone)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
			RateLimit: RateLimitConfig{
				RPS:   1,
				Burst: 5,
			},
		},
		Storage: StorageConfig{
			Driver: "memory",
			SQLite: SQLiteConfig{
				Path: "./data/tradelog.db",
			},
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "./data/archive",
			},
		},
		Analytics: AnalyticsConfig{
			AccountCurrency: "INR",
			StartingBalance: 10000,
			RiskFreeRate:    0,
			Simulations:     10000,
			Timezone:        "Local",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit.RPS < 0 || c.Server.RateLimit.Burst < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_limit values cannot be negative"))
	}

	// Storage validation
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("sqlite path required when driver is sqlite"))
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("postgres dsn required when driver is postgres"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage driver: %q", c.Storage.Driver))
	}

	switch c.Storage.Archive.Type {
	case "localfs", "":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %q", c.Storage.Archive.Type))
	}

	// Analytics validation
	if c.Analytics.StartingBalance <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("starting_balance must be positive, got %f", c.Analytics.StartingBalance))
	}
	if c.Analytics.Simulations <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulations must be positive, got %d", c.Analytics.Simulations))
	}
	if _, err := c.Location(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if !c.Rates().Has(c.Analytics.AccountCurrency) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("no conversion rate for account currency %q", c.Analytics.AccountCurrency))
	}

	// Notification validation
	names := make(map[string]bool)
	for i, wh := range c.Notifications.Webhooks {
		if wh.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("notifications.webhooks[%d]: url required", i))
		}
		name := wh.Name
		if name == "" {
			name = "webhook"
		}
		if names[name] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifications.webhooks[%d]: duplicate name %q", i, name))
		}
		names[name] = true
	}

	return nil
}

// Location resolves the analytics timezone. Empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Analytics.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Analytics.Timezone, err)
	}
	return loc, nil
}

// Rates returns the built-in rate table with configured overrides applied.
func (c *Config) Rates() currency.RateTable {
	return currency.DefaultRates().Merge(c.Currency.Rates)
}
