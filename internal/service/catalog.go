package service

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/pkg/icd10"
)

// defaultCatalogEntries bounds the catalog lookup cache.
const defaultCatalogEntries = 512

// CatalogCacheStats is a snapshot of catalog cache activity, exposed on
// the health surface.
type CatalogCacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// CachedCatalog serves reference catalog lookups through a size-bounded
// LRU cache in front of the backing store. Catalog rows change only via
// migrations, so entries are never invalidated; eviction is purely
// capacity driven. ICD-10 code lookups are syntax checked and
// case-normalized before they reach the cache, so "j18.9" and "J18.9"
// share one entry.
type CachedCatalog struct {
	store     domain.CatalogStore
	cache     *lru.Cache
	validator *icd10.Validator
	logger    *logrus.Logger

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

// NewCachedCatalog wraps the store with an LRU cache of the given size.
// A non-positive size selects the default.
func NewCachedCatalog(store domain.CatalogStore, size int, logger *logrus.Logger) (*CachedCatalog, error) {
	if size <= 0 {
		size = defaultCatalogEntries
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating catalog cache: %w", err)
	}

	logger.WithField("cache_size", size).Debug("Catalog lookup cache initialized")

	return &CachedCatalog{
		store:     store,
		cache:     cache,
		validator: icd10.NewValidator(),
		logger:    logger,
	}, nil
}

// ICD10ByID retrieves an ICD-10 catalog row by identifier.
func (c *CachedCatalog) ICD10ByID(ctx context.Context, id int64) (*domain.ICD10Code, error) {
	key := fmt.Sprintf("icd10:id:%d", id)
	if cached, ok := c.lookup(key); ok {
		if code, ok := cached.(*domain.ICD10Code); ok {
			return code, nil
		}
	}

	code, err := c.store.ICD10ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, code)
	return code, nil
}

// ICD10ByCode retrieves an ICD-10 catalog row by code. Malformed codes
// are rejected before any lookup.
func (c *CachedCatalog) ICD10ByCode(ctx context.Context, icdCode string) (*domain.ICD10Code, error) {
	normalized, err := c.validator.NormalizeCode(icdCode)
	if err != nil {
		return nil, err
	}

	key := "icd10:code:" + normalized
	if cached, ok := c.lookup(key); ok {
		if code, ok := cached.(*domain.ICD10Code); ok {
			return code, nil
		}
	}

	code, err := c.store.ICD10ByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, code)
	return code, nil
}

// ListActiveICD10 passes through to the store. The full list is read
// once at startup to prime the rule engine and is not worth caching.
func (c *CachedCatalog) ListActiveICD10(ctx context.Context) ([]*domain.ICD10Code, error) {
	return c.store.ListActiveICD10(ctx)
}

// TestByName retrieves a medical test catalog row by exact name.
func (c *CachedCatalog) TestByName(ctx context.Context, name string) (*domain.MedicalTest, error) {
	key := "test:name:" + name
	if cached, ok := c.lookup(key); ok {
		if test, ok := cached.(*domain.MedicalTest); ok {
			return test, nil
		}
	}

	test, err := c.store.TestByName(ctx, name)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, test)
	return test, nil
}

// MedicationByName retrieves a medication catalog row by exact name.
func (c *CachedCatalog) MedicationByName(ctx context.Context, name string) (*domain.Medication, error) {
	key := "medication:name:" + name
	if cached, ok := c.lookup(key); ok {
		if med, ok := cached.(*domain.Medication); ok {
			return med, nil
		}
	}

	med, err := c.store.MedicationByName(ctx, name)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, med)
	return med, nil
}

// Stats returns a snapshot of cache activity.
func (c *CachedCatalog) Stats() CatalogCacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	return CatalogCacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.cache.Len(),
	}
}

// lookup reads the cache and records the hit or miss.
func (c *CachedCatalog) lookup(key string) (interface{}, bool) {
	cached, ok := c.cache.Get(key)

	c.statsMu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.statsMu.Unlock()

	return cached, ok
}
