package cache

import (
	"fmt"
	"net/url"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"time"

	"github.com/mmcloughlin/geohash"
)

const keyPrefix = "eta"

// entry is what both stores hold. Destination is kept so Get can tell two
// destinations apart when they share a geohash cell.
type entry struct {
	Destination domain.Coordinate `json:"destination"`
	Result      domain.ETAResult  `json:"result"`
}

// busPrefix scopes every key of one bus. IDs are query-escaped so that ':'
// or glob characters inside an ID cannot leak into another bus's keyspace.
func busPrefix(tenantID, busID string) string {
	return fmt.Sprintf("%s:%s:%s:", keyPrefix, url.QueryEscape(tenantID), url.QueryEscape(busID))
}

func keyString(k ports.ETACacheKey) string {
	return busPrefix(k.TenantID, k.BusID) + geohash.Encode(k.Destination.Lat, k.Destination.Lon)
}

// clampTTL applies the default for non-positive values and the hard upper bound.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > ports.MaxETACacheTTL {
		return ports.MaxETACacheTTL
	}
	return ttl
}
