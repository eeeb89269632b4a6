package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carrental/internal/config"
	"carrental/internal/models"

	"github.com/redis/go-redis/v9"
)

const catalogKey = "catalog:cars"

type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (r *RedisCatalogCache) GetCatalog(ctx context.Context) ([]models.Car, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.Get(ctx, catalogKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog from redis: %w", err)
	}

	var cars []models.Car
	if err := json.Unmarshal([]byte(val), &cars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return cars, nil
}

func (r *RedisCatalogCache) SetCatalog(ctx context.Context, cars []models.Car) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(cars)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := r.client.Set(ctx, catalogKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set catalog in redis: %w", err)
	}
	return nil
}

func (r *RedisCatalogCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("failed to delete catalog from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
