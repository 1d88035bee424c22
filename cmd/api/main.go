package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-normalizer/app/config"
	"github.com/address-normalizer/app/controllers"
	"github.com/address-normalizer/app/services"
	"github.com/address-normalizer/internal/expand"
	"github.com/address-normalizer/internal/external"
	"github.com/address-normalizer/internal/parser"
	"github.com/address-normalizer/internal/search"
	"github.com/address-normalizer/routes"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	loadConfig()

	// 2. Initialize logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting Address Normalizer Service")

	// 3. Load parser tuning; built-in defaults hold when no file is present
	if err := config.Load(viper.GetString("parser.config")); err != nil {
		logger.Warn("Using built-in parser tuning", zap.Error(err))
	}

	// 4. Build the normalization pipeline
	table, err := expand.NewTable()
	if err != nil {
		logger.Fatal("Failed to load abbreviation table", zap.Error(err))
	}
	states, err := expand.NewStates()
	if err != nil {
		logger.Fatal("Failed to load state table", zap.Error(err))
	}

	pipe := parser.NewPipeline(external.NewTokenClassifier(), table, states, logger)
	pipe.ApplyTuning(parser.Tuning{
		ThresholdHigh:    config.C.Thresholds.High,
		ThresholdReview:  config.C.Thresholds.ReviewLow,
		StateMatchCutoff: config.C.Matching.StateCutoff,
	})

	// 5. Connect MongoDB when enabled; it backs the persistent cache tiers,
	// the review store, and data export
	var mongoDB *mongo.Database
	if viper.GetBool("mongo.enabled") {
		mongoDB = initMongoDB(logger)
		defer func() {
			if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting MongoDB", zap.Error(err))
			}
		}()
	}

	// 6. Initialize the result cache for the configured backend
	cacheService := initCache(mongoDB, logger)
	if cacheService != nil {
		defer cacheService.Close()
	}

	// 7. Review store: Mongo when available, in-memory otherwise
	var reviewStore services.ReviewStore
	if mongoDB != nil {
		reviewStore = services.NewMongoReviewStore(mongoDB, logger)
	} else {
		reviewStore = services.NewMemoryReviewStore()
		logger.Warn("MongoDB disabled; review queue is in-memory and not persistent")
	}

	// 8. Review search index (optional)
	searcher := initSearcher(logger)

	// 9. Initialize services
	workers := viper.GetInt("workers.batch")
	normalizeService := services.NewNormalizeService(pipe, cacheService, reviewStore, searcher, workers, logger)
	normalizeService.StartJobCleanup(10*time.Minute, time.Hour)
	defer normalizeService.Close()

	reviewService := services.NewReviewService(reviewStore, searcher, logger)
	adminService := services.NewAdminService(normalizeService, reviewStore, searcher, mongoDB, logger)

	// 10. Backfill the search index from the authoritative store
	if searcher != nil {
		if _, err := adminService.ReindexReviews(context.Background()); err != nil {
			logger.Warn("Failed to backfill review search index", zap.Error(err))
		}
	}

	// 11. Initialize controllers
	environment := viper.GetString("app.env")
	normalizeController := controllers.NewNormalizeController(normalizeService, cacheService, logger)
	adminController := controllers.NewAdminController(adminService, reviewService, cacheService, environment, logger)

	// 12. Set up the router
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, normalizeController, adminController)

	// 13. Serve until interrupted, then drain
	port := viper.GetString("app.port")
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("Address Normalizer Service listening", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// loadConfig reads config/app.yaml with environment variable overrides
func loadConfig() {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("parser.config", "config/parser.yaml")
	viper.SetDefault("workers.batch", 8)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl_hours", 24)
	viper.SetDefault("cache.l1_size", 10000)
	viper.SetDefault("cache.table_version", "v1")
	viper.SetDefault("mongo.enabled", false)
	viper.SetDefault("mongo.url", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "address_normalizer")
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("meilisearch.enabled", false)
	viper.SetDefault("meilisearch.url", "http://localhost:7700")
	viper.SetDefault("meilisearch.api_key", "")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}
}

// initLogger builds a structured logger for the configured environment
func initLogger() *zap.Logger {
	var cfg zap.Config
	if viper.GetString("app.env") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}

	return logger
}

// initMongoDB connects and pings MongoDB, then returns the service database
func initMongoDB(logger *zap.Logger) *mongo.Database {
	mongoURL := viper.GetString("mongo.url")

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURL))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	db := client.Database(viper.GetString("mongo.database"))
	logger.Info("Connected to MongoDB", zap.String("database", db.Name()))

	return db
}

// initCache builds the result cache for the configured backend. The mongo
// and hybrid backends require MongoDB; misconfiguration is fatal rather
// than silently degraded.
func initCache(mongoDB *mongo.Database, logger *zap.Logger) services.ICacheService {
	backend := viper.GetString("cache.backend")
	ttl := time.Duration(viper.GetInt("cache.ttl_hours")) * time.Hour
	l1Size := viper.GetInt("cache.l1_size")
	tableVersion := viper.GetString("cache.table_version")

	switch backend {
	case "none":
		logger.Warn("Result cache disabled")
		return nil

	case "memory":
		memCache := services.NewCacheService(ttl)
		memCache.StartCleanupWorker(10 * time.Minute)
		return memCache

	case "redis":
		redisCache, err := services.NewRedisCacheService(viper.GetString("redis.url"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis cache", zap.Error(err))
		}
		redisCache.SetTTL(ttl)
		return redisCache

	case "mongo":
		if mongoDB == nil {
			logger.Fatal("cache.backend=mongo requires mongo.enabled=true")
		}
		mongoCache, err := services.NewMongoCacheService(mongoDB, l1Size, tableVersion, logger)
		if err != nil {
			logger.Fatal("Failed to initialize MongoDB cache", zap.Error(err))
		}
		if err := mongoCache.WarmUp(context.Background(), l1Size/2); err != nil {
			logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		return mongoCache

	case "hybrid":
		if mongoDB == nil {
			logger.Fatal("cache.backend=hybrid requires mongo.enabled=true")
		}
		redisCache, err := services.NewRedisCacheService(viper.GetString("redis.url"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis cache", zap.Error(err))
		}
		redisCache.SetTTL(ttl)
		mongoCache, err := services.NewMongoCacheService(mongoDB, l1Size, tableVersion, logger)
		if err != nil {
			logger.Fatal("Failed to initialize MongoDB cache", zap.Error(err))
		}
		hybrid := services.NewHybridCacheService(redisCache, mongoCache, logger)
		if err := hybrid.WarmUpFromMongo(context.Background(), l1Size/2); err != nil {
			logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		return hybrid

	default:
		logger.Fatal("Unknown cache backend", zap.String("backend", backend))
		return nil
	}
}

// initSearcher connects the review search index when enabled. Search is a
// projection; the service runs without it.
func initSearcher(logger *zap.Logger) *search.ReviewSearcher {
	if !viper.GetBool("meilisearch.enabled") {
		return nil
	}

	searchConfig := search.SearchConfig{
		Host:      viper.GetString("meilisearch.url"),
		APIKey:    viper.GetString("meilisearch.api_key"),
		IndexName: "normalization_reviews",
		Timeout:   30 * time.Second,
		MaxHits:   20,
	}

	searcher, err := search.NewReviewSearcher(searchConfig, logger)
	if err != nil {
		logger.Warn("Meilisearch unavailable; review search disabled", zap.Error(err))
		return nil
	}

	if err := searcher.BuildIndexes(); err != nil {
		logger.Warn("Failed to configure review search index", zap.Error(err))
	}

	return searcher
}
