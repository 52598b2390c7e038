package main

import (
	"context"
	"os"
	"time"

	"takings/internal/amqp"
	"takings/internal/backend"
	"takings/internal/cli"
	"takings/internal/log"
	"takings/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting takings-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentSheets).Logger)
	mirror, err := factory.CreateSheets(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize takings mirror", log.FieldError, err)
		os.Exit(1)
	}
	if mirror.Cleanup != nil {
		defer mirror.Cleanup()
	}
	if !mirror.Remote {
		logger.Warn("Google Sheets disabled - takings are mirrored to memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(repo, mirror.Writer, logger.Logger, cfg.HeartbeatInterval)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	if err := w.Run(ctx, amqpClient); err != nil {
		logger.Error("Mirror worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully",
		log.FieldOperation, log.OpShutdown,
		"messages_mirrored", w.Processed())
}
