package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

storage:
  driver: sqlite
  sqlite:
    path: "/tmp/tradelog/journal.db"
  archive:
    type: localfs
    path: "/tmp/tradelog/archive"

analytics:
  account_currency: USD
  starting_balance: 25000
  timezone: UTC

currency:
  rates:
    INR: 84.1
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.Analytics.StartingBalance != 25000 {
		t.Errorf("expected starting balance 25000, got %f", cfg.Analytics.StartingBalance)
	}
	if cfg.Analytics.Simulations != 10000 {
		t.Errorf("expected default simulations 10000, got %d", cfg.Analytics.Simulations)
	}
	if got := cfg.Rates()["INR"]; got != 84.1 {
		t.Errorf("expected INR override 84.1, got %f", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TRADELOG_TEST_DSN", "postgres://journal@localhost:5432/trades")

	content := []byte(`
storage:
  driver: postgres
  postgres:
    dsn: "${TRADELOG_TEST_DSN}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Postgres.DSN != "postgres://journal@localhost:5432/trades" {
		t.Errorf("dsn not expanded: %q", cfg.Storage.Postgres.DSN)
	}
}

func TestLoad_Webhooks(t *testing.T) {
	content := []byte(`
notifications:
  webhooks:
    - name: ops
      url: "https://hooks.example.com/tradelog"
      timeout_seconds: 5
      headers:
        Authorization: "Bearer token"
`)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Notifications.Webhooks) != 1 {
		t.Fatalf("expected 1 webhook, got %d", len(cfg.Notifications.Webhooks))
	}
	wh := cfg.Notifications.Webhooks[0]
	if wh.Name != "ops" || wh.URL != "https://hooks.example.com/tradelog" || wh.TimeoutSeconds != 5 {
		t.Errorf("unexpected webhook %+v", wh)
	}
	if len(wh.Headers) != 1 {
		t.Errorf("expected 1 header, got %v", wh.Headers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Analytics.AccountCurrency != "INR" {
		t.Errorf("expected default currency INR, got %s", cfg.Analytics.AccountCurrency)
	}
	if cfg.Analytics.StartingBalance != 10000 {
		t.Errorf("expected default starting balance 10000, got %f", cfg.Analytics.StartingBalance)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := Defaults()
	cfg.Analytics.Timezone = ""
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty timezone should be local, got %v %v", loc, err)
	}

	cfg.Analytics.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v %v", loc, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit.RPS = -1 }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"sqlite without path", func(c *Config) {
			c.Storage.Driver = "sqlite"
			c.Storage.SQLite.Path = ""
		}, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Storage.Postgres.DSN = "postgres://localhost/trades"
		}, false},
		{"s3 without bucket", func(c *Config) { c.Storage.Archive.Type = "s3" }, true},
		{"unknown archive", func(c *Config) { c.Storage.Archive.Type = "ftp" }, true},
		{"zero starting balance", func(c *Config) { c.Analytics.StartingBalance = 0 }, true},
		{"zero simulations", func(c *Config) { c.Analytics.Simulations = 0 }, true},
		{"bad timezone", func(c *Config) { c.Analytics.Timezone = "Mars/Olympus" }, true},
		{"unknown currency", func(c *Config) { c.Analytics.AccountCurrency = "XYZ" }, true},
		{"currency from overrides", func(c *Config) {
			c.Analytics.AccountCurrency = "CHF"
			c.Currency.Rates = map[string]float64{"CHF": 0.88}
		}, false},
		{"webhook without url", func(c *Config) {
			c.Notifications.Webhooks = []WebhookConfig{{Name: "ops"}}
		}, true},
		{"duplicate webhook names", func(c *Config) {
			c.Notifications.Webhooks = []WebhookConfig{
				{URL: "http://a.example/hook"},
				{URL: "http://b.example/hook"},
			}
		}, true},
		{"named webhooks", func(c *Config) {
			c.Notifications.Webhooks = []WebhookConfig{
				{Name: "a", URL: "http://a.example/hook"},
				{Name: "b", URL: "http://b.example/hook"},
			}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
