package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventaire-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const produitsCacheKey = "cache:produits"

type Client struct {
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, cacheTTL: 30 * time.Second}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock takes a best-effort lock for one product while an engine
// operation reads, decides and writes its stock. Returns false when the
// lock is already held.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", key), "1", ttl).Result()
}

// ReleaseLock releases a lock taken by AcquireLock.
func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", key)).Err()
}

// GetProduitsCache returns the cached product list, ok=false on miss.
func (c *Client) GetProduitsCache(ctx context.Context) ([]models.Produit, bool) {
	raw, err := c.rdb.Get(ctx, produitsCacheKey).Bytes()
	if err != nil {
		return nil, false
	}

	var produits []models.Produit
	if err := json.Unmarshal(raw, &produits); err != nil {
		return nil, false
	}
	return produits, true
}

// SetProduitsCache stores the product list with a short TTL.
func (c *Client) SetProduitsCache(ctx context.Context, produits []models.Produit) error {
	raw, err := json.Marshal(produits)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, produitsCacheKey, raw, c.cacheTTL).Err()
}

// InvalidateProduits drops the cached product list. Called after any
// product mutation, including engine stock writes.
func (c *Client) InvalidateProduits(ctx context.Context) error {
	return c.rdb.Del(ctx, produitsCacheKey).Err()
}
