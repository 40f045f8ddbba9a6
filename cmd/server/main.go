// Package main provides the HTTP entry point for the disease prediction
// and clinical decision support server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/api"
	"github.com/pdpcds-server/internal/config"
	"github.com/pdpcds-server/internal/database"
	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/health"
	"github.com/pdpcds-server/internal/repository"
	"github.com/pdpcds-server/internal/service"
	"github.com/pdpcds-server/internal/training"
	"github.com/pdpcds-server/pkg/scoring"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := buildLogger(&cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Connect and migrate
	dbConfig := database.ConfigFromDomain(&cfg.Database)
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner, err := database.NewMigrationRunnerForConfig(dbConfig, cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := runner.Up(ctx); err != nil {
		runner.Close()
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	runner.Close()

	// Repositories and catalog cache
	catalogRepo := repository.NewCatalogRepository(db.Pool, logger)
	predictionRepo := repository.NewPredictionRepository(db.Pool, logger)
	feedbackRepo := repository.NewFeedbackRepository(db.Pool, logger)
	outcomeRepo := repository.NewOutcomeRepository(db.Pool, logger)

	catalog, err := service.NewCachedCatalog(catalogRepo, 0, logger)
	if err != nil {
		logger.Fatalf("Failed to create catalog cache: %v", err)
	}

	// Rule engine with catalog-backed differentials
	engine := service.NewRuleEngine(cfg.Prediction.ModelVersion, logger)
	if err := engine.LoadDifferentials(ctx, catalog); err != nil {
		logger.WithError(err).Warn("Falling back to built-in differential list")
	}

	// Predictor: remote model service with the rule engine as fallback,
	// or the engine alone when the service is disabled
	var predictor domain.Predictor = engine
	var scoreCache *scoring.Cache
	if cfg.ModelService.Enabled {
		scoreCache, err = scoring.NewCache(cfg.Cache, logger)
		if err != nil {
			logger.Fatalf("Failed to create score cache: %v", err)
		}
		predictor = scoring.NewClient(cfg.ModelService, scoreCache, engine, logger)
	}

	trainingStore, err := training.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString())
	if err != nil {
		logger.Fatalf("Failed to create training store: %v", err)
	}
	defer trainingStore.Close()

	// Services and the feedback event stream
	hub := api.NewStreamHub(logger)
	predictions := service.NewPredictionService(predictor, predictionRepo, catalog, cfg.Prediction, logger)
	feedback := service.NewFeedbackService(predictionRepo, feedbackRepo, outcomeRepo, trainingStore, hub, logger)

	// Health probes
	checker := health.NewChecker(0, logger)
	checker.Register(health.NewDatabaseCheck(db))
	checker.Register(health.NewCatalogCheck(catalog))
	if cfg.Cache.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.Cache.RedisURL); err == nil {
			checker.Register(health.NewRedisCheck(redis.NewClient(opts)))
		} else {
			logger.WithError(err).Warn("Skipping Redis health probe: invalid redis_url")
		}
	}

	server := api.NewServer(api.Dependencies{
		Config:      configManager,
		Predictions: predictions,
		Feedback:    feedback,
		Checker:     checker,
		Hub:         hub,
		ScoreCache:  scoreCache,
		Catalog:     catalog,
		Logger:      logger,
	})

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting disease prediction server")

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}

	logger.Info("Server stopped")
}

// buildLogger configures the process logger from the logging section.
func buildLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
