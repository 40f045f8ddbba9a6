package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/health"
	"github.com/pdpcds-server/internal/training"
)

// Dependencies carries the service surface the full MCP server exposes.
// Checker is optional; when set, Start logs a component health snapshot
// before serving.
type Dependencies struct {
	Config      domain.ConfigManager
	Predictions predictionService
	Feedback    feedbackService
	Training    training.Store
	Checker     *health.Checker
	Logger      *logrus.Logger
}

// Server is the full MCP server backed by Postgres and the complete
// prediction and feedback pipeline. It serves on stdio.
type Server struct {
	config    domain.ConfigManager
	mcpServer *mcp.Server
	tools     *toolset
	checker   *health.Checker
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance around existing services.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if deps.Predictions == nil || deps.Feedback == nil {
		return nil, fmt.Errorf("prediction and feedback services are required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	mcpCfg := deps.Config.GetConfig().MCP
	serverInfo := &mcp.Implementation{
		Name:    mcpCfg.ServerName,
		Version: mcpCfg.ServerVersion,
	}
	if serverInfo.Name == "" {
		serverInfo.Name = "pdpcds-server"
	}
	if serverInfo.Version == "" {
		serverInfo.Version = "1.0.0"
	}

	tools := &toolset{
		predictions: deps.Predictions,
		feedback:    deps.Feedback,
		exporter:    deps.Training,
		exportDir:   mcpCfg.ExportDir,
		logger:      deps.Logger,
	}
	if tools.exportDir == "" {
		tools.exportDir = "./exports"
	}

	mcpServer := mcp.NewServer(serverInfo, nil)
	registerPredictionTools(mcpServer, tools)
	registerFeedbackTools(mcpServer, tools)

	server := &Server{
		config:    deps.Config,
		mcpServer: mcpServer,
		tools:     tools,
		checker:   deps.Checker,
		logger:    deps.Logger,
	}

	server.logger.WithFields(logrus.Fields{
		"server_name":    serverInfo.Name,
		"server_version": serverInfo.Version,
	}).Info("MCP server initialized")

	return server, nil
}

// Start serves MCP requests on stdio until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")

	if s.checker != nil {
		report := s.checker.Run(ctx)
		s.logger.WithFields(logrus.Fields{
			"overall":    health.Overall(report),
			"components": len(report),
		}).Info("Component health at startup")
	}

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
