package cache

import (
	"context"
	"errors"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

const DefaultMemoryCacheSize = 10000

// MemoryETACache is an in-process LRU ETA cache with per-entry expiry.
// It is not shared between replicas and does not survive restarts.
type MemoryETACache struct {
	c gcache.Cache
}

type MemoryOption func(*gcache.CacheBuilder)

// WithMemoryClock replaces the wall clock used for expiry, for tests.
func WithMemoryClock(clock gcache.Clock) MemoryOption {
	return func(b *gcache.CacheBuilder) { b.Clock(clock) }
}

func NewMemoryETACache(size int, opts ...MemoryOption) *MemoryETACache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	b := gcache.New(size).LRU()
	for _, o := range opts {
		o(b)
	}
	return &MemoryETACache{c: b.Build()}
}

var _ ports.ETACache = (*MemoryETACache)(nil)

func (m *MemoryETACache) Get(ctx context.Context, key ports.ETACacheKey) (domain.ETAResult, bool, error) {
	v, err := m.c.Get(keyString(key))
	if errors.Is(err, gcache.KeyNotFoundError) {
		obs.ETACacheLookups.WithLabelValues("miss").Inc()
		return domain.ETAResult{}, false, nil
	}
	if err != nil {
		obs.ETACacheLookups.WithLabelValues("error").Inc()
		return domain.ETAResult{}, false, fmt.Errorf("memory eta cache: get: %w", err)
	}

	e, ok := v.(entry)
	if !ok || e.Destination != key.Destination {
		obs.ETACacheLookups.WithLabelValues("miss").Inc()
		return domain.ETAResult{}, false, nil
	}

	obs.ETACacheLookups.WithLabelValues("hit").Inc()
	return e.Result, true, nil
}

func (m *MemoryETACache) Put(ctx context.Context, key ports.ETACacheKey, result domain.ETAResult, ttl time.Duration) error {
	err := m.c.SetWithExpire(keyString(key), entry{Destination: key.Destination, Result: result}, clampTTL(ttl))
	if err != nil {
		return fmt.Errorf("memory eta cache: put: %w", err)
	}
	return nil
}

func (m *MemoryETACache) EvictBus(ctx context.Context, tenantID, busID string) error {
	prefix := busPrefix(tenantID, busID)
	for _, k := range m.c.Keys(false) {
		s, ok := k.(string)
		if ok && strings.HasPrefix(s, prefix) {
			m.c.Remove(k)
		}
	}
	return nil
}
