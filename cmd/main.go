package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/images"
	"catalog-service/internal/metrics"
	"catalog-service/internal/middleware"
	"catalog-service/internal/normalizer"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Tesseract-Nexus/go-shared/httpclient"
	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Catalog Ingestion API
// @version 1.0.0
// @description Ingests product/SKU spreadsheets into the catalog and serves the catalog back as JSON

// @host localhost:8000
// @BasePath /api/v1

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	logger := config.NewLogger(cfg)

	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Event publishing only when NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, cfg.EventsTenantID, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher (continuing without event publishing)")
		} else {
			logger.Info("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		logger.Info("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	blobStore, err := newBlobStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize image store")
	}

	ingestionMetrics := metrics.NewIngestionMetrics(nil)
	resolver := images.NewResolver(images.ResolverConfig{
		Store:        blobStore,
		HTTPClient:   httpclient.NewClientWithProfile(httpclient.ProfileExternal),
		ProbeTimeout: cfg.ImageProbeTimeout,
		Observer:     ingestionMetrics,
		Logger:       logrus.NewEntry(logger),
	})
	rowNormalizer := normalizer.NewNormalizer(resolver, logrus.NewEntry(logger))

	serviceConfig := services.IngestionServiceConfig{
		Recorder: ingestionMetrics,
		Logger:   logrus.NewEntry(logger),
	}
	if eventsPublisher != nil {
		serviceConfig.Publisher = eventsPublisher
	}
	ingestionService := services.NewIngestionService(catalogRepo, rowNormalizer, serviceConfig)
	catalogService := services.NewCatalogService(catalogRepo)

	catalogHandler := handlers.NewCatalogHandler(ingestionService, catalogService, cfg.MaxUploadBytes, logrus.NewEntry(logger))
	healthHandler := handlers.NewHealthHandler(catalogService)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.IsProduction() {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("catalog-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("catalog-service"))
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize tracing (continuing without tracing)")
	} else {
		logger.Info("✓ OpenTelemetry tracing initialized")
	}

	httpMetrics := gosharedmw.InitGlobalMetrics("tesseract", "catalog_service")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logrus.NewEntry(logger)))
	router.Use(httpMetrics.Middleware())
	router.Use(tracing.GinMiddleware("catalog-service"))
	router.Use(gosharedmw.CompressionMiddleware())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", gosharedmw.Handler())

	api := router.Group("/api/v1")
	{
		api.POST("/ingest", catalogHandler.Ingest)
		api.GET("/ingest/template", catalogHandler.GetImportTemplate)
		api.GET("/products", catalogHandler.GetProducts)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("Catalog service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-quit
	logger.Info("Shutting down catalog-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Error shutting down tracer provider")
		} else {
			logger.Info("✓ Tracer provider shut down")
		}
	}

	logger.Info("Catalog service stopped")
}

// connectRedis returns a client only when REDIS_URL is set and reachable.
func connectRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, product list caching disabled")
		return nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL (caching will be disabled)")
		return nil
	}
	// Set Redis password from GCP Secret Manager
	if password := secrets.GetRedisPassword(); password != "" {
		redisOpts.Password = password
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis (caching will be disabled)")
		_ = client.Close()
		return nil
	}
	logger.Info("✓ Redis connected successfully")
	return client
}

// newBlobStore uploads to Cloudinary when configured, otherwise synthesizes
// S3 object URLs.
func newBlobStore(cfg *config.Config, logger *logrus.Logger) (images.BlobStore, error) {
	if cfg.CloudinaryURL != "" {
		store, err := images.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, err
		}
		logger.WithField("folder", cfg.CloudinaryFolder).Info("✓ Cloudinary image store initialized")
		return store, nil
	}
	logger.WithField("bucket", cfg.S3Bucket).Info("Using S3 image store")
	return images.NewS3Store(cfg.S3Bucket), nil
}
