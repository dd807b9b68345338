package tier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/questai/mongodb-tools-api/internal/logger"
)

const redisKeyPrefix = "subscription:tier:"

// NewRedisClient connects to the Redis server at url (redis:// or rediss://) and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisFetcher shares fetched tiers between replicas. Only confirmed tiers are stored;
// any Redis failure falls through to the wrapped fetcher.
type RedisFetcher struct {
	client *redis.Client
	next   Fetcher
	ttl    time.Duration
	logger *logger.Logger
}

var _ Fetcher = (*RedisFetcher)(nil)

func NewRedisFetcher(log *logger.Logger, client *redis.Client, next Fetcher, ttl time.Duration) *RedisFetcher {
	if log == nil {
		log = logger.Production()
	}
	return &RedisFetcher{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: log,
	}
}

func (f *RedisFetcher) FetchTier(ctx context.Context, endpoint string, headers map[string]string) (Tier, error) {
	key := redisKey(endpoint, headers)

	cached, err := f.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if tier, parseErr := Parse(cached); parseErr == nil {
			return tier, nil
		}
		f.logger.Warn("Ignoring malformed shared tier", "value", cached)
	case !errors.Is(err, redis.Nil):
		f.logger.Warn("Shared tier cache unavailable", "error", err)
	}

	tier, err := f.next.FetchTier(ctx, endpoint, headers)
	if err != nil {
		return tier, err
	}

	if err := f.client.Set(ctx, key, tier.String(), f.ttl).Err(); err != nil {
		f.logger.Warn("Failed to share tier", "error", err)
	}

	return tier, nil
}

// redisKey hashes the cache key so bearer tokens are never stored in Redis.
func redisKey(endpoint string, headers map[string]string) string {
	sum := sha256.Sum256([]byte(cacheKey(endpoint, headers)))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}
