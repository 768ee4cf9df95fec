package ports

import (
	"context"
	"school-eta-service/internal/domain"
)

// Raw answer from an external routing service.
type RouteResult struct {
	DurationSeconds float64
	DistanceMeters  float64
	Geometry        string

	// TrafficFactor is live duration over free-flow duration; zero when the backend does not report it.
	TrafficFactor float64
}

// Contract for an external routing service (OSRM, Google, Mapbox, ...).
type RoutingBackend interface {
	// Name is the provider name callers select it by.
	Name() string
	// Route returns travel duration, distance and geometry between two points.
	Route(ctx context.Context, origin, destination domain.Coordinate) (RouteResult, error)
}

// RouteComputer turns an origin/destination pair into an ETA, degrading to a
// local estimate instead of failing when the named backend cannot answer.
// It fails only on invalid coordinates or when ctx itself is done.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, origin, destination domain.Coordinate, provider string) (domain.ETAResult, error)
}
