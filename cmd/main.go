package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/clients/shopify"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/events"
	"catalog-sync-service/internal/handlers"
	"catalog-sync-service/internal/importer"
	"catalog-sync-service/internal/logging"
	"catalog-sync-service/internal/mapping"
	"catalog-sync-service/internal/repository"
	"catalog-sync-service/internal/services"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize optional database-backed sync audit trail
	var syncRepo *repository.SyncRepository
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		syncRepo = repository.NewSyncRepository(db)
		logger.Info("Running database migrations...")
		if err := syncRepo.Migrate(); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info("✓ Sync attempt auditing enabled")
	}

	// Aggregate cache with sliding expiry
	aggregateCache := cache.NewAggregateCache(cfg.CacheSweepInterval)
	defer aggregateCache.Close()

	// Mapping engine and platform client
	engine := mapping.NewEngine(cfg.PreferredLocale, cfg.FallbackLocale, cfg.DefaultVendor)
	shopifyClient := shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyAccessToken)

	processor := services.NewSyncProcessor(
		aggregateCache,
		engine,
		shopifyClient,
		syncRepo,
		cfg.StockLocationName,
		logging.NewLogrusLogger(logger, "sync-processor"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event-driven reconciliation
	if cfg.EventsEnable {
		reconciler := services.NewReconciliationHandler(
			aggregateCache,
			processor,
			cfg.CacheTTL,
			logging.NewLogrusLogger(logger, "reconciliation"),
		)
		subscriber, err := events.NewSubscriber(cfg.NATSURL, reconciler, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize event subscriber (event-driven sync disabled)")
		} else {
			defer subscriber.Close()
			if err := subscriber.Start(ctx); err != nil {
				logger.WithError(err).Warn("Failed to start event subscriber")
			} else {
				logger.Info("✓ NATS catalog event subscriber started")
			}
		}
	}

	// Batch import pipeline
	catalogImporter := importer.NewCatalogImporter(logging.NewLogrusLogger(logger, "importer"))
	runner := services.NewBatchRunner(
		catalogImporter,
		aggregateCache,
		processor,
		nil,
		cfg.CacheTTL,
		logging.NewLogrusLogger(logger, "batch"),
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	syncHandler := handlers.NewSyncHandler(runner, aggregateCache, syncRepo, cfg.DataDir)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	{
		api.POST("/imports", syncHandler.RunImport)
		api.GET("/sync/attempts", syncHandler.ListAttempts)
		api.GET("/sync/stats", syncHandler.SyncStats)
		api.GET("/cache/stats", syncHandler.CacheStats)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Catalog sync service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}
