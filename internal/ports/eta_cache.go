package ports

import (
	"context"
	"school-eta-service/internal/domain"
	"time"
)

// MaxETACacheTTL bounds how long any ETA may be served from cache.
const MaxETACacheTTL = 5 * time.Minute

// ETACacheKey identifies a cached ETA for one bus heading to one destination.
type ETACacheKey struct {
	TenantID    string
	BusID       string
	Destination domain.Coordinate
}

// Short-TTL store for ETA results.
type ETACache interface {
	// Get returns the stored result verbatim, or found=false once the entry expired
	// or was stored for a different destination.
	Get(ctx context.Context, key ETACacheKey) (result domain.ETAResult, found bool, err error)
	// Put stores result for at most MaxETACacheTTL. Concurrent puts are last-write-wins.
	Put(ctx context.Context, key ETACacheKey, result domain.ETAResult, ttl time.Duration) error
	// EvictBus removes every entry for one bus and nothing else.
	EvictBus(ctx context.Context, tenantID, busID string) error
}
