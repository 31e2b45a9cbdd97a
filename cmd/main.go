package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"wholesale-catalog-service/internal/clients"
	"wholesale-catalog-service/internal/clients/shopify"
	"wholesale-catalog-service/internal/config"
	"wholesale-catalog-service/internal/database"
	"wholesale-catalog-service/internal/handlers"
	"wholesale-catalog-service/internal/jobs"
	"wholesale-catalog-service/internal/middleware"
	"wholesale-catalog-service/internal/repository"
	"wholesale-catalog-service/internal/secrets"
	"wholesale-catalog-service/internal/services"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg := config.Load()
	if cfg.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// The active-run unique index is part of the schema; without it the
	// one-active-run guard is not safe, so a failed migration is fatal.
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	logger.Info("Database models migrated")

	// The Shopify token can come from the environment or from GCP Secret
	// Manager, whichever is configured.
	accessToken := cfg.ShopifyAccessToken
	if accessToken == "" && cfg.ShopifyTokenSecretName != "" {
		ctx := context.Background()
		secretManager, err := secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize GCP Secret Manager")
		}
		defer secretManager.Close()

		accessToken, err = secretManager.AccessSecret(ctx, cfg.ShopifyTokenSecretName)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read Shopify access token secret")
		}
		logger.Info("Shopify access token loaded from Secret Manager")
	}

	// Repositories
	syncRepo := repository.NewSyncRepository(db, logger)
	rawRepo := repository.NewRawRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	// Shopify connector
	shopifyClient := shopify.NewClient(shopify.Config{
		ShopDomain:   cfg.ShopifyShopDomain,
		AccessToken:  accessToken,
		APIVersion:   cfg.ShopifyAPIVersion,
		PollInterval: cfg.PollInterval,
		PollMaxWait:  cfg.PollMaxWait,
	}, logger)

	retryConfig := clients.DefaultRetryConfig()
	retryConfig.MaxRetries = cfg.MaxRetries
	retrier := clients.NewRetrier(retryConfig)

	// Services
	mappingService := services.NewMappingService(mappingRepo, categoryRepo, rawRepo, logger)
	transformService := services.NewTransformService(rawRepo, catalogRepo, mappingRepo, mappingService, logger)
	syncService := services.NewSyncService(syncRepo, rawRepo, transformService, shopifyClient, retrier, services.SyncConfig{
		HeartbeatInterval:  cfg.HeartbeatInterval,
		HeartbeatThreshold: cfg.HeartbeatThreshold,
		SyncTimeout:        cfg.SyncTimeout,
		IngestBatchSize:    cfg.IngestBatchSize,
	}, logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	syncHandler := handlers.NewSyncHandler(syncService, transformService)
	mappingHandler := handlers.NewMappingHandler(mappingService)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, rawRepo, categoryRepo)

	// Background orphan sweep, independent of any sync invocation
	cleanupJob := jobs.NewCleanupJob(syncService, cfg.HeartbeatThreshold, logger)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	router := setupRouter(cfg, logger, healthHandler, syncHandler, mappingHandler, catalogHandler)

	logger.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
	}).Info("Wholesale Catalog Service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	syncHandler *handlers.SyncHandler,
	mappingHandler *handlers.MappingHandler,
	catalogHandler *handlers.CatalogHandler,
) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health checks
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/runs", syncHandler.StartRun)
			sync.GET("/runs", syncHandler.ListRuns)
			sync.GET("/runs/:id", syncHandler.GetRun)
			sync.GET("/runs/:id/logs", syncHandler.GetRunLogs)
			sync.POST("/cleanup", syncHandler.CleanupOrphaned)
			sync.POST("/prune", syncHandler.PruneStale)
			sync.POST("/transform", syncHandler.RunTransform)
		}

		mappings := v1.Group("/mappings")
		{
			mappings.GET("", mappingHandler.ListMappings)
			mappings.POST("/:raw/resolve", mappingHandler.Resolve)
			mappings.POST("/:raw/defer", mappingHandler.Defer)
			mappings.POST("/:raw/unmap", mappingHandler.Unmap)
			mappings.GET("/:raw/skus", mappingHandler.StagedSkus)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/skus", catalogHandler.ListSkus)
			catalog.GET("/skus/:sku", catalogHandler.GetSku)
			catalog.GET("/duplicates", catalogHandler.ListDuplicates)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", catalogHandler.ListCategories)
			categories.POST("", catalogHandler.CreateCategory)
		}
	}

	return router
}
