package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"takings/internal/amqp"
	"takings/internal/backend"
	"takings/internal/cache"
	"takings/internal/cli"
	"takings/internal/core"
	apphttp "takings/internal/http"
	"takings/internal/log"
	"takings/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting takings server", log.FieldOperation, log.OpStartup, "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBlob).Logger)

	blobs, err := factory.CreateBlobStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize blob store", log.FieldError, err)
		os.Exit(1)
	}
	if blobs.Cleanup != nil {
		defer blobs.Cleanup()
	}

	opts := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentImport).Logger)}

	// Sheet imports need read access to hosted spreadsheets.
	sheetsBackend, err := factory.CreateSheets(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets", log.FieldError, err)
		os.Exit(1)
	}
	if sheetsBackend.Reader != nil {
		opts = append(opts, services.WithSheetReader(sheetsBackend.Reader))
	}

	if cfg.AMQPEnabled() {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
		logger.Info("Import events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	storesCache := cache.NewLRUCache[[]core.Store](1, 5*time.Minute)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(storesCache)
	cacheManager.StartCleanup(time.Minute)
	opts = append(opts, services.WithStoresCache(storesCache))

	svc := services.NewImportService(repo, blobs.Store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{
		MaxUploadBytes:     cfg.MaxUploadBytes,
		CORSOrigin:         cfg.CORSOrigin,
		RateLimitPerMinute: cfg.RateLimit,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
