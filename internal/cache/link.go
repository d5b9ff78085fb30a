package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorlink/creatorlink/internal/model"
)

// Cache key prefixes and TTLs.
const (
	trackingKeyPrefix = "tl:"
	negCacheKeySuffix = ":neg"

	// DefaultTrackingLinkTTL is the TTL for cached tracking links.
	// Tracking links never change once created, so this only bounds memory.
	DefaultTrackingLinkTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for unknown-code entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetTrackingLink retrieves a tracking link by code.
// Returns ErrCacheMiss if not found or the entry is incomplete.
func (c *Cache) GetTrackingLink(ctx context.Context, code string) (*model.TrackingLink, error) {
	var cached model.CachedTrackingLink
	cmd := c.client.HGetAll(ctx, trackingKeyPrefix+code)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return nil, ErrCacheMiss
	}
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("decode cached tracking link: %w", err)
	}
	if !cached.IsComplete() {
		return nil, ErrCacheMiss
	}

	return cached.ToTrackingLink(code), nil
}

// SetTrackingLink stores a tracking link in cache and clears any negative entry.
func (c *Cache) SetTrackingLink(ctx context.Context, link *model.TrackingLink) error {
	key := trackingKeyPrefix + link.TrackingCode
	cached := link.ToCached()

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, cached)
	pipe.Expire(ctx, key, DefaultTrackingLinkTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache tracking link: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a code is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, code string) (bool, error) {
	exists, err := c.client.Exists(ctx, trackingKeyPrefix+code+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a code as unknown.
func (c *Cache) SetNegativeCache(ctx context.Context, code string) error {
	err := c.client.SetEx(ctx, trackingKeyPrefix+code+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
