package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingKeyPrefix = "visitor-insight:listing:"

var errUnavailable = errors.New("redis unavailable")

// ListingCache implements domain.ListingCache with one JSON string per prefix.
type ListingCache struct {
	client      *redis.Client
	logger      *slog.Logger
	isAvailable atomic.Bool
}

// NewListingCache creates a Redis-backed listing cache.
func NewListingCache(client *redis.Client, logger *slog.Logger) *ListingCache {
	c := &ListingCache{
		client: client,
		logger: logger.With("component", "redis_listing_cache"),
	}
	c.isAvailable.Store(true) // Assume available initially
	return c
}

// StartHealthCheck pings Redis every interval and stops using the cache while
// it is unreachable. It blocks until ctx is done.
func (c *ListingCache) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("Starting Redis health check")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			c.checkHealth(ctx)
		}
	}
}

func (c *ListingCache) checkHealth(ctx context.Context) {
	if err := c.client.Ping(ctx).Err(); err != nil {
		if c.isAvailable.CompareAndSwap(true, false) {
			c.logger.Error("Redis connection lost", "error", err)
		}
		return
	}
	if c.isAvailable.CompareAndSwap(false, true) {
		c.logger.Info("Redis connection recovered")
	}
}

// GetListing returns the cached keys for prefix; found is false on a miss.
func (c *ListingCache) GetListing(ctx context.Context, prefix string) ([]string, bool, error) {
	if !c.isAvailable.Load() {
		return nil, false, errUnavailable
	}

	raw, err := c.client.Get(ctx, listingKey(prefix)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read listing for %q: %w", prefix, err)
	}

	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		// A corrupt entry is a miss; the next put overwrites it.
		c.logger.Warn("Discarding corrupt listing cache entry", "prefix", prefix, "error", err)
		return nil, false, nil
	}
	return keys, true, nil
}

// PutListing stores keys for prefix with the given ttl.
func (c *ListingCache) PutListing(ctx context.Context, prefix string, keys []string, ttl time.Duration) error {
	if !c.isAvailable.Load() {
		return errUnavailable
	}

	raw, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := c.client.Set(ctx, listingKey(prefix), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write listing for %q: %w", prefix, err)
	}
	return nil
}

func listingKey(prefix string) string {
	return listingKeyPrefix + prefix
}
