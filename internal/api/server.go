package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/health"
	"github.com/pdpcds-server/internal/middleware"
	"github.com/pdpcds-server/internal/service"
	"github.com/pdpcds-server/pkg/scoring"
)

const (
	serviceName    = "Preliminary Disease Prediction and Clinical Decision Support"
	serviceVersion = "1.0.0"
)

// predictionService is what the prediction handlers need from the
// service layer. Narrow so handler tests can stub it.
type predictionService interface {
	Predict(ctx context.Context, request *domain.PredictionRequest) (*domain.PredictionResponse, error)
	History(ctx context.Context, patientID string, limit int) (*domain.PredictionHistory, error)
}

// feedbackService is the feedback-side counterpart.
type feedbackService interface {
	SubmitFeedback(ctx context.Context, submission *domain.DoctorFeedback) (*domain.FeedbackResponse, error)
	RecordOutcome(ctx context.Context, outcome *domain.ClinicalOutcome) (int64, error)
	ListFeedback(ctx context.Context, predictionID int64) ([]*domain.FeedbackRecord, error)
	Summary(ctx context.Context, predictionID int64) (*domain.FeedbackSummary, error)
	Stats(ctx context.Context, days int) (*domain.FeedbackStats, error)
	AddTrainingData(ctx context.Context, request *domain.TrainingDataRequest) (*service.TrainingDataResult, error)
}

// Dependencies carries everything the HTTP server serves. ScoreCache
// and Catalog are optional; when nil the cache health endpoint reports
// what it can.
type Dependencies struct {
	Config      domain.ConfigManager
	Predictions predictionService
	Feedback    feedbackService
	Checker     *health.Checker
	Hub         *StreamHub
	ScoreCache  *scoring.Cache
	Catalog     *service.CachedCatalog
	Logger      *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	predictions   predictionService
	feedback      feedbackService
	checker       *health.Checker
	hub           *StreamHub
	scoreCache    *scoring.Cache
	catalog       *service.CachedCatalog
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(deps Dependencies) *Server {
	cfg := deps.Config.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(30 * time.Second))
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(corsMiddleware())

	server := &Server{
		configManager: deps.Config,
		predictions:   deps.Predictions,
		feedback:      deps.Feedback,
		checker:       deps.Checker,
		hub:           deps.Hub,
		scoreCache:    deps.ScoreCache,
		catalog:       deps.Catalog,
		logger:        deps.Logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// drains in-flight requests before returning.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.hub != nil {
		s.hub.Close()
	}

	s.logger.Info("HTTP server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health endpoints stay outside the versioned prefix
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/health/database", s.handleDatabaseHealth)
	s.router.GET("/health/cache", s.handleCacheHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		predict := v1.Group("/predict")
		{
			predict.POST("", s.handlePredict)
			predict.POST("/", s.handlePredict)
			predict.GET("/history/:patient_id", s.handlePredictionHistory)
		}

		feedback := v1.Group("/feedback")
		{
			feedback.POST("/prediction-feedback", s.handleSubmitFeedback)
			feedback.POST("/clinical-outcome", s.handleSubmitOutcome)
			feedback.GET("/prediction/:prediction_id/feedback", s.handleListFeedback)
			feedback.GET("/prediction/:prediction_id/summary", s.handleFeedbackSummary)
			feedback.POST("/add-training-data", s.handleAddTrainingData)
			feedback.GET("/feedback-stats", s.handleFeedbackStats)
			if s.hub != nil {
				feedback.GET("/stream", s.hub.ServeStream)
			}
		}

		// Mirrors the root health endpoints for clients that only
		// speak the versioned prefix.
		healthGroup := v1.Group("/health")
		{
			healthGroup.GET("", s.handleHealth)
			healthGroup.GET("/", s.handleHealth)
			healthGroup.GET("/database", s.handleDatabaseHealth)
			healthGroup.GET("/cache", s.handleCacheHealth)
		}
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
