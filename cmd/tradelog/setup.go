package main

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/config"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/logger"
	"github.com/newthinker/tradelog/internal/notifier"
	"github.com/newthinker/tradelog/internal/notifier/webhook"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"go.uber.org/zap"
)

// loadConfig reads --config or falls back to defaults, then validates.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newEngine builds the analytics engine from the analytics and currency sections.
func newEngine(cfg *config.Config, log *zap.Logger) (*analytics.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return analytics.New(analytics.Config{
		AccountCurrency: cfg.Analytics.AccountCurrency,
		StartingBalance: cfg.Analytics.StartingBalance,
		RiskFreeRate:    cfg.Analytics.RiskFreeRate,
		Simulations:     cfg.Analytics.Simulations,
		Location:        loc,
	}, cfg.Rates(), analytics.WithLogger(logger.Component(log, "analytics"))), nil
}

// loadTrades reads trades from a JSON file when path is set, otherwise
// from the configured store.
func loadTrades(ctx context.Context, cfg *config.Config, path string, log *zap.Logger) ([]core.Trade, error) {
	if path != "" {
		return journal.ReadFile(path, journal.NewValidator())
	}

	store, err := trade.Open(cfg.Storage, logger.Component(log, "store"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	return store.List(ctx, trade.ListFilter{})
}

// newNotifiers registers one webhook per notifications.webhooks entry.
func newNotifiers(cfg *config.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, wh := range cfg.Notifications.Webhooks {
		n, err := webhook.New(wh.Name, wh.URL, wh.Headers, time.Duration(wh.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
