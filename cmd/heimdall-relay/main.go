// Package main initializes and runs the Heimdall relay.
//
// It acts as the composition root: it embeds the SDK client, optionally backed
// by a Redis snapshot store and a Postgres event archive, and serves its
// decisions over HTTP next to the observability server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rafaeljc/heimdall-sdk/internal/cache"
	"github.com/rafaeljc/heimdall-sdk/internal/config"
	"github.com/rafaeljc/heimdall-sdk/internal/database"
	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/internal/observability"
	"github.com/rafaeljc/heimdall-sdk/internal/relayapi"
	"github.com/rafaeljc/heimdall-sdk/internal/store"
	"github.com/rafaeljc/heimdall-sdk/sdk"
)

const poolMonitorInterval = 15 * time.Second

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup (optional)
	// -------------------------------------------------------------------------

	opts := []sdk.Option{
		sdk.WithLogger(log),
		sdk.WithIdentity(cfg.App.Name, cfg.App.Version),
		sdk.WithSDKURL(cfg.SDK.URL),
		sdk.WithEventsURL(cfg.SDK.EventsURL),
		sdk.WithHTTPTimeout(cfg.SDK.HTTPTimeout),
		sdk.WithPollingInterval(cfg.SDK.PollingInterval),
		sdk.WithVersionCacheSize(cfg.SDK.VersionCacheSize),
		sdk.WithEvents(sdk.EventOptions{
			QueueCapacity:   cfg.Events.QueueCapacity,
			BatchSize:       cfg.Events.BatchSize,
			FlushInterval:   cfg.Events.FlushInterval,
			ShutdownTimeout: cfg.Events.ShutdownTimeout,
			DispatchWorkers: cfg.Events.DispatchWorkers,
			DispatchQueue:   cfg.Events.DispatchQueue,
			DispatchTimeout: cfg.Events.DispatchTimeout,
		}),
	}
	if cfg.SDK.WorkspaceFile != "" {
		opts = append(opts, sdk.WithWorkspaceFile(cfg.SDK.WorkspaceFile))
	}

	var checkers []observability.Checker

	if cfg.Redis.IsConfigured() {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		go cache.RunPoolMonitor(ctx, redisClient, poolMonitorInterval)
		checkers = append(checkers, cache.HealthCheck(redisClient))
		opts = append(opts, sdk.WithSnapshotStore(
			cache.NewSnapshotStore(redisClient, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL),
		))
	}

	if cfg.Database.IsConfigured() {
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		go database.RunPoolMonitor(ctx, pool, poolMonitorInterval)
		checkers = append(checkers, database.HealthCheck(pool))
		opts = append(opts, sdk.WithSink(store.NewEventArchive(pool, cfg.Database.ArchiveTable)))
	}

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------

	client, err := sdk.New(cfg.SDK.Key, opts...)
	if err != nil {
		return fmt.Errorf("failed to create sdk client: %w", err)
	}
	// The client flushes pending events on Close, so it stops after the HTTP server.
	defer func() {
		if err := client.Close(); err != nil {
			log.Error("sdk client close failed", slog.String("error", err.Error()))
		}
	}()

	var obsServer *observability.Server
	if cfg.Observability.Enabled {
		obsServer = observability.NewServer(log, &cfg.Observability, append([]observability.Checker{client}, checkers...)...)
		if err := obsServer.Start(); err != nil {
			return err
		}
	}

	api := relayapi.NewAPI(log, client, relayapi.Config{
		APIKeyHash:   cfg.Relay.APIKeyHash,
		MaxBodyBytes: cfg.Relay.MaxBodyBytes,
	})

	// -------------------------------------------------------------------------
	// 4. HTTP Server Setup
	// -------------------------------------------------------------------------

	srv := &http.Server{
		Addr:              cfg.Relay.Address(),
		Handler:           api.Router,
		ReadTimeout:       cfg.Relay.ReadTimeout,
		ReadHeaderTimeout: cfg.Relay.ReadHeaderTimeout,
		WriteTimeout:      cfg.Relay.WriteTimeout,
		IdleTimeout:       cfg.Relay.IdleTimeout,
		MaxHeaderBytes:    cfg.Relay.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("relay listening",
			slog.String("addr", srv.Addr),
			slog.Bool("tls", cfg.Relay.TLSEnabled),
		)

		var err error
		if cfg.Relay.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.Relay.TLSCert, cfg.Relay.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("relay server failed: %w", err)
		}
	}()

	// Not fatal: the relay serves default decisions until the workspace arrives.
	go func() {
		if err := client.WaitReady(ctx); err == nil {
			log.Info("workspace ready, serving decisions")
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Graceful Shutdown
	// -------------------------------------------------------------------------

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping relay")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("relay shutdown failed", slog.String("error", err.Error()))
	}
	if obsServer != nil {
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("observability shutdown failed", slog.String("error", err.Error()))
		}
	}

	if runErr == nil {
		log.Info("relay exited successfully")
	}
	return runErr
}
