package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pdpcds-server/internal/database"
	"github.com/pdpcds-server/internal/domain"
)

// DatabaseCheck probes the Postgres pool behind the prediction and
// feedback stores with a SELECT 1 round trip.
type DatabaseCheck struct {
	db *database.DB
}

func NewDatabaseCheck(db *database.DB) *DatabaseCheck {
	return &DatabaseCheck{db: db}
}

func (d *DatabaseCheck) Name() string {
	return "database"
}

func (d *DatabaseCheck) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	if d.db == nil {
		return ComponentHealth{
			Name:        d.Name(),
			Status:      StateUnhealthy,
			Message:     "Database connection not configured",
			LastChecked: time.Now(),
			Duration:    time.Since(start),
			Error:       "database pool is nil",
		}
	}

	var one int
	err := d.db.Pool.QueryRow(ctx, "SELECT 1").Scan(&one)
	duration := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Name:        d.Name(),
			Status:      StateUnhealthy,
			Message:     "Database connection failed",
			LastChecked: time.Now(),
			Duration:    duration,
			Error:       err.Error(),
		}
	}

	stats := d.db.Stats()
	metadata := map[string]interface{}{
		"backend":             "postgres",
		"total_conns":         stats.TotalConns(),
		"idle_conns":          stats.IdleConns(),
		"acquired_conns":      stats.AcquiredConns(),
		"max_conns":           stats.MaxConns(),
		"empty_acquire_count": stats.EmptyAcquireCount(),
	}

	status := StateHealthy
	message := "Database connection healthy"
	if stats.EmptyAcquireCount() > 100 {
		status = StateWarning
		message = "Database connection pool under pressure"
	}

	return ComponentHealth{
		Name:        d.Name(),
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
		Duration:    duration,
		Metadata:    metadata,
	}
}

// RedisCheck pings the shared Redis cache tier. It is only registered
// when a Redis URL is configured.
type RedisCheck struct {
	client *redis.Client
}

func NewRedisCheck(client *redis.Client) *RedisCheck {
	return &RedisCheck{client: client}
}

func (r *RedisCheck) Name() string {
	return "redis"
}

func (r *RedisCheck) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	if r.client == nil {
		return ComponentHealth{
			Name:        r.Name(),
			Status:      StateUnhealthy,
			Message:     "Redis client not configured",
			LastChecked: time.Now(),
			Duration:    time.Since(start),
			Error:       "redis client is nil",
		}
	}

	err := r.client.Ping(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Name:        r.Name(),
			Status:      StateUnhealthy,
			Message:     "Redis connection failed",
			LastChecked: time.Now(),
			Duration:    duration,
			Error:       err.Error(),
		}
	}

	stats := r.client.PoolStats()
	metadata := map[string]interface{}{
		"addr":        r.client.Options().Addr,
		"pool_hits":   stats.Hits,
		"pool_misses": stats.Misses,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}

	return ComponentHealth{
		Name:        r.Name(),
		Status:      StateHealthy,
		Message:     "Redis connection healthy",
		LastChecked: time.Now(),
		Duration:    duration,
		Metadata:    metadata,
	}
}

// CatalogCheck verifies the ICD-10 reference catalog is reachable and
// seeded. An empty catalog is a warning rather than a failure: lookups
// still work, predictions just lose their differential codes.
type CatalogCheck struct {
	catalog domain.CatalogStore
}

func NewCatalogCheck(catalog domain.CatalogStore) *CatalogCheck {
	return &CatalogCheck{catalog: catalog}
}

func (c *CatalogCheck) Name() string {
	return "catalog"
}

func (c *CatalogCheck) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	if c.catalog == nil {
		return ComponentHealth{
			Name:        c.Name(),
			Status:      StateUnhealthy,
			Message:     "Catalog store not configured",
			LastChecked: time.Now(),
			Duration:    time.Since(start),
			Error:       "catalog store is nil",
		}
	}

	codes, err := c.catalog.ListActiveICD10(ctx)
	duration := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Name:        c.Name(),
			Status:      StateUnhealthy,
			Message:     "Catalog lookup failed",
			LastChecked: time.Now(),
			Duration:    duration,
			Error:       err.Error(),
		}
	}

	status := StateHealthy
	message := "Catalog loaded"
	if len(codes) == 0 {
		status = StateWarning
		message = "ICD-10 catalog is empty"
	}

	return ComponentHealth{
		Name:        c.Name(),
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
		Duration:    duration,
		Metadata: map[string]interface{}{
			"active_icd10_codes": len(codes),
		},
	}
}
