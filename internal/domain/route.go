package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidRoute covers routes that cannot be traversed: no stops, or malformed stop coordinates.
	ErrInvalidRoute    = errors.New("invalid route")
	ErrRouteHasNoStops = fmt.Errorf("%w: route has no stops defined", ErrInvalidRoute)
	ErrRouteNotFound   = errors.New("route not found")
)

// Represents a single pickup or drop-off point on a school route.
// Sequence is 1-based and may be rewritten by the optimizer.
type RouteStop struct {
	ID         string
	Name       string
	Coordinate Coordinate
	Sequence   int
}

// Route is an ordered list of stops, optionally terminating at a fixed destination (the school).
type Route struct {
	ID          string
	TenantID    string
	Name        string
	Stops       []RouteStop
	Destination *Coordinate
}

// OrderedStops returns a copy of the stops sorted by Sequence.
// Stops sharing a sequence keep their stored order.
func (r *Route) OrderedStops() []RouteStop {
	out := slices.Clone(r.Stops)
	slices.SortStableFunc(out, func(a, b RouteStop) int { return a.Sequence - b.Sequence })
	return out
}

// ValidateStops checks the route has at least one stop and every stop has a valid coordinate.
func ValidateStops(stops []RouteStop) error {
	if len(stops) == 0 {
		return ErrRouteHasNoStops
	}
	for _, s := range stops {
		if err := s.Coordinate.Validate(); err != nil {
			return fmt.Errorf("%w: stop %q: %v", ErrInvalidRoute, s.ID, err)
		}
	}
	return nil
}

// RouteMetrics are the aggregate distance and duration of a stop ordering.
type RouteMetrics struct {
	DistanceKm      float64
	DurationMinutes float64
}

// Result of one optimizer run. It is planning data only; committing the new
// ordering is up to the caller.
type OptimizationResult struct {
	OrderedStops             []RouteStop
	TotalDistanceKm          float64
	EstimatedDurationMinutes float64
	DistanceSavedKm          float64
	TimeSavedMinutes         float64
	DistanceSavedPercent     float64
	TimeSavedPercent         float64

	// NothingToOptimize is set when the input had no stops.
	NothingToOptimize bool
}
