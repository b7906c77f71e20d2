package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// TokenCache stores token metadata rows as JSON values under
// "meta:token:solana:{mint}" with a TTL, sitting between the in-process map
// and the database.
type TokenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTokenCache creates a TokenCache backed by the given Client.
func NewTokenCache(c *Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenCache{rdb: c.Underlying(), ttl: ttl}
}

func tokenKey(mint string) string {
	return "meta:token:solana:" + mint
}

// Get retrieves a cached metadata row. It returns domain.ErrNotFound when
// the key does not exist.
func (tc *TokenCache) Get(ctx context.Context, mint string) (domain.TokenMeta, error) {
	val, err := tc.rdb.Get(ctx, tokenKey(mint)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.TokenMeta{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("redis: get token %s: %w", mint, err)
	}

	var meta domain.TokenMeta
	if err := json.Unmarshal([]byte(val), &meta); err != nil {
		return domain.TokenMeta{}, fmt.Errorf("redis: decode token %s: %w", mint, err)
	}
	return meta, nil
}

// Set stores a metadata row with the cache TTL.
func (tc *TokenCache) Set(ctx context.Context, meta domain.TokenMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("redis: encode token %s: %w", meta.Address, err)
	}
	if err := tc.rdb.Set(ctx, tokenKey(meta.Address), data, tc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set token %s: %w", meta.Address, err)
	}
	return nil
}
