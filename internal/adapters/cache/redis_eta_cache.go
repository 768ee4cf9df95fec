package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN during eviction.
const scanBatch = 100

// RedisETACache stores ETA results in Redis so every replica shares them.
// Expiry is enforced by Redis key TTLs.
type RedisETACache struct {
	rdb redis.UniversalClient
}

func NewRedisETACache(rdb redis.UniversalClient) *RedisETACache {
	return &RedisETACache{rdb: rdb}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

var _ ports.ETACache = (*RedisETACache)(nil)

func (r *RedisETACache) Get(ctx context.Context, key ports.ETACacheKey) (_ domain.ETAResult, _ bool, err error) {
	defer obs.Time(ctx, "eta.cache.Get")(&err)

	raw, err := r.rdb.Get(ctx, keyString(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		obs.ETACacheLookups.WithLabelValues("miss").Inc()
		return domain.ETAResult{}, false, nil
	}
	if err != nil {
		obs.ETACacheLookups.WithLabelValues("error").Inc()
		return domain.ETAResult{}, false, fmt.Errorf("redis eta cache: get: %w", err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		obs.ETACacheLookups.WithLabelValues("error").Inc()
		return domain.ETAResult{}, false, fmt.Errorf("redis eta cache: decode entry: %w", err)
	}
	if e.Destination != key.Destination {
		obs.ETACacheLookups.WithLabelValues("miss").Inc()
		return domain.ETAResult{}, false, nil
	}

	obs.ETACacheLookups.WithLabelValues("hit").Inc()
	return e.Result, true, nil
}

func (r *RedisETACache) Put(ctx context.Context, key ports.ETACacheKey, result domain.ETAResult, ttl time.Duration) error {
	raw, err := json.Marshal(entry{Destination: key.Destination, Result: result})
	if err != nil {
		return fmt.Errorf("redis eta cache: encode entry: %w", err)
	}

	if err := r.rdb.Set(ctx, keyString(key), raw, clampTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("redis eta cache: set: %w", err)
	}
	return nil
}

// EvictBus deletes the bus's keys found by a SCAN over its prefix.
func (r *RedisETACache) EvictBus(ctx context.Context, tenantID, busID string) (err error) {
	defer obs.Time(ctx, "eta.cache.EvictBus")(&err)

	match := busPrefix(tenantID, busID) + "*"

	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis eta cache: scan %q: %w", match, err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis eta cache: del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
