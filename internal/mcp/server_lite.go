// This file contains the lightweight server that requires no external
// databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/config"
	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/service"
	"github.com/pdpcds-server/internal/training"
)

const liteServerVersion = "1.0.0"

// LiteServer is a lightweight MCP server that runs the rule engine
// against built-in differentials and keeps training data in SQLite.
// No Postgres, no Redis, configuration from environment variables.
type LiteServer struct {
	config    *config.LiteConfig
	mcpServer *mcp.Server
	tools     *toolset
	store     training.Store
	logger    *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithTrainingStore sets a custom training store.
func WithTrainingStore(store training.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *config.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		server.logger.SetLevel(level)
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.store == nil {
		store, err := training.NewSQLiteStore(cfg.TrainingDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create training store: %w", err)
		}
		server.store = store
	}

	// The prediction pipeline runs without a catalog or a prediction
	// store: the engine falls back to its built-in differential list and
	// responses are not persisted.
	engine := service.NewRuleEngine(cfg.ModelVersion, server.logger)
	predictions := service.NewPredictionService(engine, nil, nil, domain.PredictionConfig{
		ModelVersion:        cfg.ModelVersion,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxPredictions:      cfg.MaxPredictions,
	}, server.logger)
	curation := service.NewFeedbackService(nil, nil, nil, server.store, nil, server.logger)

	server.tools = &toolset{
		predictions: predictions,
		feedback:    curation,
		exporter:    server.store,
		exportDir:   cfg.ExportDir(),
		logger:      server.logger,
	}

	serverInfo := &mcp.Implementation{
		Name:    "pdpcds-server-lite",
		Version: liteServerVersion,
	}

	mcpServer := mcp.NewServer(serverInfo, nil)
	registerPredictionTools(mcpServer, server.tools)
	server.mcpServer = mcpServer

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP requests on stdio until the context is canceled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting prediction MCP server (lite) on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close training store")
			return err
		}
	}
	return nil
}

// TrainingStore returns the training store for external access.
func (s *LiteServer) TrainingStore() training.Store {
	return s.store
}
