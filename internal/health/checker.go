package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State classifies the outcome of a component probe.
type State string

const (
	StateHealthy   State = "healthy"
	StateWarning   State = "warning"
	StateUnhealthy State = "unhealthy"
	StateUnknown   State = "unknown"
)

// ComponentHealth is the result of probing a single component.
type ComponentHealth struct {
	Name        string                 `json:"name"`
	Status      State                  `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Check probes one component. Implementations must honor ctx and return
// rather than block past its deadline.
type Check interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

const defaultProbeTimeout = 5 * time.Second

// Checker fans registered probes out in parallel and aggregates the
// results. It runs on demand; the HTTP health endpoints and the MCP
// servers call it when they need a status.
type Checker struct {
	logger  *logrus.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks []Check
}

// NewChecker creates a checker that bounds each probe to timeout.
func NewChecker(timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Checker{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a probe. Registering a probe with a name that is already
// taken replaces the earlier one.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.checks {
		if existing.Name() == check.Name() {
			c.checks[i] = check
			return
		}
	}
	c.checks = append(c.checks, check)
}

// Run executes every registered probe in parallel and returns the
// results keyed by component name. Each probe gets its own timeout so a
// stuck component cannot stall the rest.
func (c *Checker) Run(ctx context.Context) map[string]ComponentHealth {
	c.mu.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	results := make(chan ComponentHealth, len(checks))

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			results <- check.Check(probeCtx)
		}(check)
	}
	wg.Wait()
	close(results)

	components := make(map[string]ComponentHealth, len(checks))
	for result := range results {
		components[result.Name] = result
	}

	if overall := Overall(components); overall != StateHealthy {
		c.logger.WithFields(logrus.Fields{
			"overall":  overall,
			"degraded": degradedNames(components),
		}).Warn("Health check found degraded components")
	}

	return components
}

// RunOne executes the named probe. The second return value is false when
// no probe with that name is registered.
func (c *Checker) RunOne(ctx context.Context, name string) (ComponentHealth, bool) {
	c.mu.RLock()
	var found Check
	for _, check := range c.checks {
		if check.Name() == name {
			found = check
			break
		}
	}
	c.mu.RUnlock()

	if found == nil {
		return ComponentHealth{}, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return found.Check(probeCtx), true
}

// Overall folds component results into a single state: unhealthy if any
// component is unhealthy, warning if any warns, unknown when there are
// no results at all.
func Overall(results map[string]ComponentHealth) State {
	if len(results) == 0 {
		return StateUnknown
	}

	state := StateHealthy
	for _, result := range results {
		switch result.Status {
		case StateUnhealthy:
			return StateUnhealthy
		case StateWarning:
			state = StateWarning
		}
	}
	return state
}

func degradedNames(results map[string]ComponentHealth) []string {
	names := make([]string, 0, len(results))
	for name, result := range results {
		if result.Status != StateHealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
