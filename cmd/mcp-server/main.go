// Package main provides the stdio MCP entry point backed by the full
// prediction and feedback pipeline.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/config"
	"github.com/pdpcds-server/internal/database"
	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/health"
	"github.com/pdpcds-server/internal/mcp"
	"github.com/pdpcds-server/internal/repository"
	"github.com/pdpcds-server/internal/service"
	"github.com/pdpcds-server/internal/setup"
	"github.com/pdpcds-server/internal/training"
	"github.com/pdpcds-server/pkg/scoring"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI("full")
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

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
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	// The schema is owned by the HTTP server; this binary only connects.
	db, err := database.NewConnection(ctx, database.ConfigFromDomain(&cfg.Database), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

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

	var predictor domain.Predictor = engine
	if cfg.ModelService.Enabled {
		scoreCache, err := scoring.NewCache(cfg.Cache, logger)
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

	// Services; tool calls are request/response, so no stream publisher
	predictions := service.NewPredictionService(predictor, predictionRepo, catalog, cfg.Prediction, logger)
	feedback := service.NewFeedbackService(predictionRepo, feedbackRepo, outcomeRepo, trainingStore, nil, logger)

	// Health probes, logged as a snapshot at startup
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

	mcpServer, err := mcp.NewServer(mcp.Dependencies{
		Config:      configManager,
		Predictions: predictions,
		Feedback:    feedback,
		Training:    trainingStore,
		Checker:     checker,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create MCP server: %v", err)
	}

	// Start MCP server
	if err := mcpServer.Start(ctx); err != nil {
		logger.Fatalf("MCP server failed to start: %v", err)
	}

	logger.Info("MCP server stopped")
}

// buildLogger configures the process logger from the logging section.
// Output stays on stderr so protocol frames own stdout.
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
