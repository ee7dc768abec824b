package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"timetrack/internal/amqp"
	"timetrack/internal/cli"
	"timetrack/internal/config"
	tlog "timetrack/internal/log"
	"timetrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(slog.LevelInfo, tlog.ComponentWorker)
	logger.Info("Starting timetrack-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger = cli.SetupLogger(level, tlog.ComponentWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", tlog.FieldError, err)
		_ = repo.Close()
		os.Exit(1)
	}

	auditWorker := worker.NewAuditWorker(repo)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		logger.Info("Shutting down worker...")
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", tlog.FieldError, err)
		}
		if err := repo.Close(); err != nil {
			logger.Warn("SQLite close error", tlog.FieldError, err)
		}
	})

	logger.Info("Consuming event changes", "queue", cfg.AMQPQueue, "db_path", cfg.SQLiteDBPath)
	if err := amqpClient.ConsumeEventChanges(ctx, auditWorker.HandleEventChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", tlog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
