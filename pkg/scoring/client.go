// Package scoring provides the HTTP client for the remote disease
// scoring service, wrapped in a circuit breaker, a client-side rate
// limiter, and a two-tier response cache. When the service is
// unreachable the client degrades to a local fallback predictor.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pdpcds-server/internal/domain"
)

const (
	scorePath = "/v1/score"

	// Version reported before the first successful score response.
	defaultModelVersion = "model-service"

	retryBackoff = 250 * time.Millisecond
)

// scoreRequest is the POST /v1/score payload.
type scoreRequest struct {
	Patient *domain.PatientSnapshot `json:"patient"`
}

// scoreResponse is the model service reply.
type scoreResponse struct {
	ModelVersion string                   `json:"model_version"`
	Predictions  domain.RankedPredictions `json:"predictions"`
}

// Client calls the remote model scoring service. It implements
// domain.Predictor; a breaker-open or transport failure falls back to
// the local predictor when one is configured.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	retryCount int

	cache    *Cache
	fallback domain.Predictor
	logger   *logrus.Logger

	mu           sync.RWMutex
	modelVersion string
}

// NewClient creates a model service client. Both cache and fallback are
// optional; without a fallback, scoring failures surface as errors.
func NewClient(config domain.ModelServiceConfig, cache *Cache, fallback domain.Predictor, logger *logrus.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ModelService",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:      config.BaseURL,
		apiKey:       config.APIKey,
		httpClient:   &http.Client{Timeout: config.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:      breaker,
		retryCount:   config.RetryCount,
		cache:        cache,
		fallback:     fallback,
		logger:       logger,
		modelVersion: defaultModelVersion,
	}
}

// Predict scores a patient snapshot via the model service, consulting
// the response cache first. Results are ordered by descending
// confidence as the Predictor contract requires, whatever order the
// service replied in.
func (c *Client) Predict(ctx context.Context, snapshot *domain.PatientSnapshot) (domain.RankedPredictions, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, snapshot); ok {
			c.setModelVersion(cached.ModelVersion)
			return cached.Predictions, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.score(ctx, snapshot)
	})

	if err != nil {
		// A canceled request is the caller's decision, not a service
		// failure to degrade around.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if c.fallback != nil {
			c.logger.WithFields(logrus.Fields{
				"error":          err.Error(),
				"fallback_model": c.fallback.ModelVersion(),
			}).Warn("Model service scoring failed, serving prediction from local rule engine")
			return c.fallback.Predict(ctx, snapshot)
		}

		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, fmt.Errorf("%w: model service unavailable (circuit breaker open)", domain.ErrScoringFailed)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrScoringFailed, err)
	}

	resp := result.(*scoreResponse)

	sort.SliceStable(resp.Predictions, func(i, j int) bool {
		return resp.Predictions[i].Confidence > resp.Predictions[j].Confidence
	})

	c.setModelVersion(resp.ModelVersion)

	if c.cache != nil {
		c.cache.Set(ctx, snapshot, Result{
			ModelVersion: c.ModelVersion(),
			Predictions:  resp.Predictions,
		})
	}

	return resp.Predictions, nil
}

// ModelVersion returns the version reported by the most recent score
// response, or a placeholder before the first one.
func (c *Client) ModelVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelVersion
}

func (c *Client) setModelVersion(version string) {
	if version == "" {
		return
	}
	c.mu.Lock()
	c.modelVersion = version
	c.mu.Unlock()
}

// score posts the snapshot to the service, retrying transport errors
// and 5xx replies. Client errors are deterministic and never retried.
func (c *Client) score(ctx context.Context, snapshot *domain.PatientSnapshot) (*scoreResponse, error) {
	payload, err := json.Marshal(scoreRequest{Patient: snapshot})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, status, err := c.post(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if status >= 400 && status < 500 {
			return nil, err
		}
	}

	return nil, lastErr
}

// post performs one score request. The returned status is zero on
// transport errors.
func (c *Client) post(ctx context.Context, payload []byte) (*scoreResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+scorePath, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create score request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PDPCDS-Server/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read score response: %w", err)
	}

	var scoreResp scoreResponse
	if err := json.Unmarshal(body, &scoreResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse score response: %w", err)
	}

	return &scoreResp, resp.StatusCode, nil
}
