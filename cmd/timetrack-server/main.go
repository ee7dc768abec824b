package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"timetrack/internal/amqp"
	"timetrack/internal/backend"
	"timetrack/internal/cache"
	"timetrack/internal/cli"
	"timetrack/internal/config"
	apphttp "timetrack/internal/http"
	tlog "timetrack/internal/log"
	"timetrack/internal/metrics"
	"timetrack/internal/middleware/ratelimit"
	"timetrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, tlog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger = cli.SetupLogger(level, tlog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", tlog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(tlog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", tlog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	aggregates := cache.NewLRUCache[services.Aggregates](cfg.CacheSize, cfg.CacheTTL)
	opts := []services.Option{
		services.WithCache(aggregates),
		services.WithMetrics(m),
	}

	// AMQP is optional: the event store stays authoritative without it.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, event change notices disabled", tlog.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewEventService(result.Backend, opts...)

	serverOpts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m, reg),
		apphttp.WithCORSOrigins(splitOrigins(cfg.CORSOrigin)...),
	}
	if cfg.RateLimit > 0 {
		rateLogger := logger.WithComponent(tlog.ComponentRateLimit)
		limiter := ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit,
			OnLimit: func(clientIP string) {
				rateLogger.Warn("Rate limit exceeded", tlog.FieldClientIP, clientIP)
			},
		})
		serverOpts = append(serverOpts, apphttp.WithRateLimiter(limiter))
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, serverOpts...)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", tlog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", tlog.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", tlog.FieldError, err)
			}
		}
	})

	if cfg.CacheTTL > 0 {
		go cache.NewJanitor(aggregates).Run(ctx, cfg.CacheTTL)
	}

	logger.Info("Starting timetrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", tlog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
