package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"klarity/internal/amqp"
	"klarity/internal/backend"
	"klarity/internal/cache"
	"klarity/internal/cli"
	"klarity/internal/config"
	apphttp "klarity/internal/http"
	"klarity/internal/insight"
	"klarity/internal/log"
	"klarity/internal/middleware/ratelimit"
	"klarity/internal/session"
	"klarity/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	boot := config.Load()
	logger := cli.SetupLogger(boot.LogLevel, boot.LogFormat)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting klarity", log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend, "port", cfg.Port)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).Create(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	scfg, err := cli.SessionConfig(cfg)
	if err != nil {
		logger.Error("Invalid ledger settings", log.FieldError, err.Error())
		os.Exit(1)
	}
	sessions := session.NewManager(be.Fetcher, be.Writer, scfg, logger)
	if sessions.ReadOnly() {
		logger.Warn("Backend is read-only, mutations are disabled", log.FieldBackend, cfg.DataBackend)
	}

	caches := cache.NewManager()
	caches.Register("sessions", sessions.Cache())
	caches.StartCleanup(cleanupInterval)

	// Change events are optional; without a broker each instance only
	// sees its own writes until the session TTL expires.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err.Error())
			os.Exit(1)
		}
		sessions.WithPublisher(amqpClient)
		logger.Info("AMQP change events enabled", "exchange", cfg.AMQPExchange, "instance_id", amqpClient.InstanceID())
	}

	var history *insight.History
	if be.Suggestions != nil {
		history = insight.NewHistory(be.Suggestions, logger)
	} else {
		logger.Info("Suggestion history unavailable for this backend", log.FieldBackend, cfg.DataBackend)
	}

	loc, _ := cfg.Location()
	rl := ratelimit.DefaultConfig()
	rl.RequestsPerMinute = cfg.RateLimitPerMinute
	srv := apphttp.NewServer(":"+cfg.Port, sessions, apphttp.Options{
		TopN:            cfg.TopCategories,
		Location:        loc,
		RateLimit:       rl,
		BlockSuspicious: cfg.BlockSuspicious,
		History:         history,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err.Error())
		}
	})

	if amqpClient != nil {
		refresher := worker.NewRefreshWorker(sessions, amqpClient.InstanceID(), logger)
		go func() {
			if err := amqpClient.Consume(ctx, refresher.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("AMQP consumer stopped", log.FieldError, err.Error())
			}
		}()
	}

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
