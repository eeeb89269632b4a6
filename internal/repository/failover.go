package repository

import (
	"context"
	"sync/atomic"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCatalogCache prefers the primary (redis) cache and falls back
// to the in-memory cache when the primary errors, retrying the primary
// after a cooldown.
type FailoverCatalogCache struct {
	primary   domain.CatalogCache
	fallback  domain.CatalogCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverCatalogCache(primary, fallback domain.CatalogCache, logger *zerolog.Logger) *FailoverCatalogCache {
	return &FailoverCatalogCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverCatalogCache) GetCatalog(ctx context.Context) ([]models.Car, error) {
	if c.primaryUsable() {
		cars, err := c.primary.GetCatalog(ctx)
		if err == nil {
			return cars, nil
		}
		c.markDown(err)
	}
	return c.fallback.GetCatalog(ctx)
}

func (c *FailoverCatalogCache) SetCatalog(ctx context.Context, cars []models.Car) error {
	if c.primaryUsable() {
		if err := c.primary.SetCatalog(ctx, cars); err != nil {
			c.markDown(err)
		}
	}
	return c.fallback.SetCatalog(ctx, cars)
}

func (c *FailoverCatalogCache) Invalidate(ctx context.Context) error {
	if c.primaryUsable() {
		if err := c.primary.Invalidate(ctx); err != nil {
			c.markDown(err)
		}
	}
	return c.fallback.Invalidate(ctx)
}

func (c *FailoverCatalogCache) primaryUsable() bool {
	if !c.isDown.Load() {
		return true
	}
	// Retry the primary after a minute.
	if time.Since(time.Unix(c.lastCheck.Load(), 0)) > time.Minute {
		c.isDown.Store(false)
		return true
	}
	return false
}

func (c *FailoverCatalogCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("primary catalog cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().Unix())
}
