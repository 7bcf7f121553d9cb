package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/stash/pkg/api"
	"github.com/platinummonkey/stash/pkg/config"
	"github.com/platinummonkey/stash/pkg/observability"
	"github.com/platinummonkey/stash/pkg/storage/filestore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer observability.ShutdownOTel(ctx, otelProviders, logger)

	store := filestore.New(cfg.Store.StateFile,
		filestore.WithLogger(logger),
		filestore.WithMetrics(metrics),
		filestore.WithSaveDelay(cfg.Store.SaveDelay),
	)
	store.Load()

	if cfg.Store.WatchEnabled {
		if err := store.Watch(); err != nil {
			log.Fatalf("Failed to watch state file: %v", err)
		}
		logger.WithField("path", cfg.Store.StateFile).Info("Watching state file for external changes")
	}
	if cfg.Store.BackupSchedule != "" {
		if err := store.ScheduleBackups(cfg.Store.BackupSchedule); err != nil {
			log.Fatalf("Failed to schedule backups: %v", err)
		}
		logger.WithField("schedule", cfg.Store.BackupSchedule).Info("State backups scheduled")
	}

	serverOpts := []api.ServerOption{}
	if metrics != nil {
		serverOpts = append(serverOpts, api.WithMetrics(metrics, registry))
	}
	server := api.NewServer(store, serverOpts...)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("Starting stash state server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server cleanly")
	}

	if err := store.Close(); err != nil {
		logger.WithError(err).Error("Failed to flush state store")
	}
	logger.Info("Stash stopped")
}
