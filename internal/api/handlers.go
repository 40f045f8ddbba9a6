package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/health"
)

// writeError translates service errors into the detail envelope the
// original service's clients expect. Validation problems carry the
// field path; unknown entities map to 404; everything else is a 500.
func writeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": []gin.H{{
				"loc":  []string{"body", validationErr.Field},
				"msg":  validationErr.Message,
				"type": "value_error",
			}},
		})
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		var notFoundErr *domain.NotFoundError
		if errors.As(err, &notFoundErr) {
			c.JSON(http.StatusNotFound, gin.H{"detail": notFoundErr.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		return
	}

	if errors.Is(err, domain.ErrInvalidInput) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

// pathID parses a numeric path parameter, answering a FastAPI-style 422
// when it is not an integer.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": []gin.H{{
				"loc":  []string{"path", name},
				"msg":  "value is not a valid integer",
				"type": "type_error.integer",
			}},
		})
		return 0, false
	}
	return id, true
}

// handlePredict runs the scoring pipeline for one patient snapshot.
func (s *Server) handlePredict(c *gin.Context) {
	var request domain.PredictionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	response, err := s.predictions.Predict(c.Request.Context(), &request)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(c, err)
			return
		}

		s.logger.WithError(err).Error("Prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": gin.H{
				"error":   "PredictionError",
				"message": fmt.Sprintf("Failed to generate prediction: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// handlePredictionHistory returns the stored prediction log for one patient.
func (s *Server) handlePredictionHistory(c *gin.Context) {
	patientID := c.Param("patient_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"detail": []gin.H{{
					"loc":  []string{"query", "limit"},
					"msg":  "value is not a valid non-negative integer",
					"type": "type_error.integer",
				}},
			})
			return
		}
		limit = parsed
	}

	history, err := s.predictions.History(c.Request.Context(), patientID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(c, err)
			return
		}

		s.logger.WithError(err).Error("History lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": gin.H{
				"error":   "HistoryError",
				"message": fmt.Sprintf("Failed to retrieve prediction history: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, history)
}

// handleSubmitFeedback records doctor feedback on a stored prediction.
func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var submission domain.DoctorFeedback
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	response, err := s.feedback.SubmitFeedback(c.Request.Context(), &submission)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleSubmitOutcome records the final clinical outcome of a case.
func (s *Server) handleSubmitOutcome(c *gin.Context) {
	var outcome domain.ClinicalOutcome
	if err := c.ShouldBindJSON(&outcome); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	outcomeID, err := s.feedback.RecordOutcome(c.Request.Context(), &outcome)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Clinical outcome submitted successfully",
		"outcome_id":    outcomeID,
		"prediction_id": outcome.PredictionID,
	})
}

// handleListFeedback returns every feedback record for a prediction,
// oldest first. An unknown prediction yields an empty list.
func (s *Server) handleListFeedback(c *gin.Context) {
	predictionID, ok := pathID(c, "prediction_id")
	if !ok {
		return
	}

	records, err := s.feedback.ListFeedback(c.Request.Context(), predictionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// handleFeedbackSummary aggregates feedback for one prediction.
func (s *Server) handleFeedbackSummary(c *gin.Context) {
	predictionID, ok := pathID(c, "prediction_id")
	if !ok {
		return
	}

	summary, err := s.feedback.Summary(c.Request.Context(), predictionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"detail": fmt.Sprintf("No feedback found for prediction %d", predictionID),
			})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleAddTrainingData stores a manually validated training sample.
func (s *Server) handleAddTrainingData(c *gin.Context) {
	var request domain.TrainingDataRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	result, err := s.feedback.AddTrainingData(c.Request.Context(), &request)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Training data added successfully to %s set", result.Dataset),
		"record_id":    result.RecordID,
		"condition":    result.Condition,
		"dataset_type": string(result.Dataset),
	})
}

// handleFeedbackStats reports aggregate feedback statistics for the
// last N days.
func (s *Server) handleFeedbackStats(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"detail": []gin.H{{
					"loc":  []string{"query", "days"},
					"msg":  "value is not a valid integer",
					"type": "type_error.integer",
				}},
			})
			return
		}
		days = parsed
	}

	stats, err := s.feedback.Stats(c.Request.Context(), days)
	if err != nil {
		writeError(c, err)
		return
	}

	if stats.TotalFeedback == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":        fmt.Sprintf("No feedback received in the last %d days", stats.PeriodDays),
			"total_feedback": 0,
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC(),
	})
}

// handleDatabaseHealth probes database connectivity.
func (s *Server) handleDatabaseHealth(c *gin.Context) {
	result, ok := s.checker.RunOne(c.Request.Context(), "database")
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    string(health.StateUnknown),
			"database":  "not_configured",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	if result.Status == health.StateUnhealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    string(result.Status),
			"database":  "disconnected",
			"error":     result.Error,
			"timestamp": time.Now().UTC(),
		})
		return
	}

	databaseType := "postgres"
	if backend, ok := result.Metadata["backend"].(string); ok {
		databaseType = backend
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        string(result.Status),
		"database":      "connected",
		"database_type": databaseType,
		"test_query":    "successful",
		"pool":          result.Metadata,
		"timestamp":     time.Now().UTC(),
	})
}

// handleCacheHealth reports cache-tier statistics plus the Redis probe
// when one is configured.
func (s *Server) handleCacheHealth(c *gin.Context) {
	status := health.StateHealthy
	response := gin.H{"timestamp": time.Now().UTC()}

	if s.scoreCache != nil {
		response["score_cache"] = s.scoreCache.Stats()
	}
	if s.catalog != nil {
		response["catalog_cache"] = s.catalog.Stats()
	}

	if result, ok := s.checker.RunOne(c.Request.Context(), "redis"); ok {
		response["redis"] = result
		if result.Status == health.StateUnhealthy {
			status = health.StateUnhealthy
		} else if result.Status == health.StateWarning {
			status = health.StateWarning
		}
	} else {
		response["redis"] = "not_configured"
	}

	response["status"] = string(status)

	code := http.StatusOK
	if status == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}
