package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mmtips-service/config"
	"mmtips-service/logger"
	"mmtips-service/services"
	"mmtips-service/storage"
	"mmtips-service/web"
)

func main() {
	logger.Println("Starting MM Tips dashboard...")

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	store, err := newBlobStore(cfg)
	if err != nil {
		logger.Fatalf("Failed to create object store client: %v", err)
	}

	larkNotifier := services.NewLarkNotifier(cfg.LarkWebhook)
	if err := larkNotifier.NotifyServiceStart(cfg.Bucket, cfg.ResultsFile); err != nil {
		logger.Errorf("Failed to send startup notification: %v", err)
	}

	wsHub := web.NewHub()
	go wsHub.Run()

	fetcher := services.NewFetcher(store, services.NewMemoryVersionCache())
	fetcher.OnChange(func(res services.FetchResult) {
		wsHub.NotifyResultsUpdated(res)
		go func() {
			if err := larkNotifier.NotifyNewVersion(res); err != nil {
				logger.Errorf("[LarkNotifier] %v", err)
			}
		}()
	})

	dashboard := services.NewDashboard(cfg, fetcher)

	// Warm the local copies; a missing daily file is normal early in the day.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dashboard.Refresh(ctx); err != nil {
		logger.Errorf("Initial refresh failed: %v", err)
	}
	cancel()

	var consumer *services.ObjectEventConsumer
	if cfg.AMQPEnabled() {
		consumer = services.NewObjectEventConsumer(cfg, dashboard)
		if err := consumer.Start(); err != nil {
			logger.Errorf("[AMQP] Object event listener disabled: %v", err)
			consumer = nil
		}
	}

	server := web.NewServer(cfg, dashboard, wsHub, larkNotifier)
	go func() {
		if err := server.Start(); err != nil {
			larkNotifier.NotifyError("Web Server", err.Error())
			logger.Fatalf("Web server error: %v", err)
		}
	}()
	logger.Printf("Web server started on port %s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down...")
	if consumer != nil {
		consumer.Stop()
	}
	server.Stop()
	if err := larkNotifier.SendText("🛑 MM Tips dashboard stopped"); err != nil {
		logger.Errorf("Failed to send shutdown notification: %v", err)
	}
	logger.Println("Service stopped")
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	if cfg.LocalStoreDir != "" {
		logger.Printf("Serving objects from local directory %s", cfg.LocalStoreDir)
		return storage.NewDirStore(cfg.LocalStoreDir), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return storage.NewS3Store(ctx, storage.S3Config{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Region:          cfg.Region,
		Endpoint:        cfg.S3Endpoint,
	})
}
