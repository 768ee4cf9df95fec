package ports

import (
	"context"
	"school-eta-service/internal/domain"
	"time"
)

// Boundary for looking up where a bus is.
type LocationProvider interface {
	// CurrentPosition returns the newest position for busID recorded within maxAge.
	// found is false when there is none; err is reserved for lookup failures.
	CurrentPosition(ctx context.Context, tenantID, busID string, maxAge time.Duration) (pos domain.Position, found bool, err error)
}

// Boundary for replaying recorded positions.
type TrackingHistory interface {
	// Positions returns positions for busID recorded in [from, to], oldest first.
	Positions(ctx context.Context, tenantID, busID string, from, to time.Time) ([]domain.Position, error)
}
