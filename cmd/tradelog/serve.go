package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/tradelog/internal/api"
	"github.com/newthinker/tradelog/internal/logger"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/storage/archive"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tradelog API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	store, err := trade.Open(cfg.Storage, logger.Component(log, "store"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	backend, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	notify, err := newNotifiers(cfg)
	if err != nil {
		return fmt.Errorf("configuring notifications: %w", err)
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		if n, err := store.Count(cmd.Context(), trade.ListFilter{}); err == nil {
			reg.SetTradesStored(n)
		}
	}

	log.Info("starting tradelog server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("currency", cfg.Analytics.AccountCurrency),
		zap.Int("notifiers", notify.Len()),
	)

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MaxJobs:     cfg.Server.MaxJobs,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		RateRPS:     cfg.Server.RateLimit.RPS,
		RateBurst:   cfg.Server.RateLimit.Burst,
		MetricsPath: cfg.Metrics.Path,
	}, api.Dependencies{
		Store:    store,
		Engine:   engine,
		Archiver: archive.NewArchiver(backend, logger.Component(log, "archive")),
		Metrics:  reg,
		Notifier: notify,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down tradelog server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
