// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"satonic/internal/config"
	"satonic/internal/listing"
	"satonic/internal/listing/esutil"
	platformElasticsearch "satonic/internal/platform/elasticsearch"
	"satonic/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "sync-listings" {
		runSyncCommand(os.Args[2:])
		return
	}
	startServer()
}

// runSyncCommand re-indexes every listing into Elasticsearch.
func runSyncCommand(args []string) {
	fs := flag.NewFlagSet("sync-listings", flag.ExitOnError)
	batchSize := fs.Int("batch-size", 100, "Batch size for syncing listings")
	esRefresh := fs.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for sync: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, cleanup, err := provideDB(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer cleanup()

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("sync-listings requires ELASTICSEARCH_URL")
	}

	ctx := context.Background()
	if err := platformElasticsearch.CreateListingsIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
	}

	stats, err := esutil.SyncListings(ctx, listing.NewGORMRepository(db), esClient, appLogger, *batchSize, *esRefresh)
	if err != nil {
		appLogger.Error("Listing synchronization failed", zap.Error(err), zap.Int("synced", stats.Synced))
		cleanup()
		os.Exit(1)
	}
	appLogger.Info("Listing synchronization completed", zap.Int("synced", stats.Synced), zap.Int("batches", stats.Batches))
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	if server.ESClient != nil {
		if err := platformElasticsearch.CreateListingsIndexIfNotExists(context.Background(), server.ESClient, server.AppLogger); err != nil {
			server.AppLogger.Error("Failed to create Elasticsearch listings index, search falls back to the database", zap.Error(err))
		}
	}

	go func() {
		if err := server.Start(); err != nil {
			server.AppLogger.Fatal("Server failed to start or crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	server.AppLogger.Info("Received signal, shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		server.AppLogger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		server.AppLogger.Info("Server shutdown complete")
	}
}
