package repository

import (
	"context"
	"sync"
	"time"

	"carrental/internal/models"
)

type MemoryCatalogCache struct {
	mu        sync.RWMutex
	cars      []models.Car
	expiresAt time.Time
	ttl       time.Duration
}

func NewMemoryCatalogCache(ttl time.Duration) *MemoryCatalogCache {
	return &MemoryCatalogCache{ttl: ttl}
}

func (c *MemoryCatalogCache) GetCatalog(ctx context.Context) ([]models.Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cars == nil || time.Now().After(c.expiresAt) {
		return nil, nil
	}
	return append([]models.Car(nil), c.cars...), nil
}

func (c *MemoryCatalogCache) SetCatalog(ctx context.Context, cars []models.Car) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cars = append([]models.Car(nil), cars...)
	c.expiresAt = time.Now().Add(c.ttl)
	return nil
}

func (c *MemoryCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cars = nil
	return nil
}
