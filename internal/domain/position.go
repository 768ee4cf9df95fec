package domain

import (
	"errors"
	"time"
)

// ErrLocationUnavailable is returned when a bus has no position recent enough to use.
var ErrLocationUnavailable = errors.New("bus location not available")

// DefaultLocationMaxAge is the recency window used for ETA lookups.
const DefaultLocationMaxAge = 60 * time.Minute

// Represents a bus's last known location as reported by the tracking pipeline.
// Speed is in meters per second and Heading in degrees, both optional.
type Position struct {
	BusID      string
	Coordinate Coordinate
	RecordedAt time.Time
	Speed      *float64
	Heading    *float64
}

// IsFresh reports whether the position was recorded no more than maxAge before now.
func (p Position) IsFresh(now time.Time, maxAge time.Duration) bool {
	if p.RecordedAt.IsZero() {
		return false
	}
	return now.Sub(p.RecordedAt) <= maxAge
}
