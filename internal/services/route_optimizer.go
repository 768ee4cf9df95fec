package services

import (
	"context"
	"errors"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"slices"
)

const (
	// DwellMinutesPerStop is the boarding time added for every stop but the last.
	DwellMinutesPerStop = 2.0

	// DestinationStopID names the pseudo-stop appended for a fixed destination.
	DestinationStopID = "destination"
)

// RouteOptimizer orders pickup stops with a greedy nearest-neighbor heuristic.
type RouteOptimizer struct {
	trips    ports.TripRepository
	speedKmh float64
}

func NewRouteOptimizer(trips ports.TripRepository, speedKmh float64) *RouteOptimizer {
	if speedKmh <= 0 {
		speedKmh = domain.DefaultFallbackSpeedKmh
	}
	return &RouteOptimizer{trips: trips, speedKmh: speedKmh}
}

// Optimize orders stops using a greedy nearest-neighbor heuristic.
//
// The tour is seeded with stops[0] and repeatedly extended with the closest
// remaining stop by Haversine distance. A fixed destination is appended last
// and never takes part in the search. The result approximates a short tour;
// it is not a global optimum (no 2-opt or exact TSP).
//
// Savings are reported against prior when it is non-nil and zero otherwise.
func (o *RouteOptimizer) Optimize(
	stops []domain.RouteStop,
	destination *domain.Coordinate,
	prior *domain.RouteMetrics,
) (domain.OptimizationResult, error) {
	if len(stops) == 0 {
		return domain.OptimizationResult{OrderedStops: []domain.RouteStop{}, NothingToOptimize: true}, nil
	}

	if err := domain.ValidateStops(stops); err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("optimize route: %w", err)
	}
	if destination != nil {
		if err := destination.Validate(); err != nil {
			return domain.OptimizationResult{}, fmt.Errorf("optimize route: destination: %w", err)
		}
	}

	current := stops[0]
	ordered := make([]domain.RouteStop, 0, len(stops)+1)
	ordered = append(ordered, current)

	remaining := slices.Clone(stops[1:])
	for len(remaining) > 0 {
		best := 0
		bestKm := geo.DistanceKm(current.Coordinate, remaining[0].Coordinate)

		for i := 1; i < len(remaining); i++ {
			d := geo.DistanceKm(current.Coordinate, remaining[i].Coordinate)
			// Strict comparison keeps the earliest of equidistant stops.
			if d < bestKm {
				best, bestKm = i, d
			}
		}

		current = remaining[best]
		ordered = append(ordered, current)
		remaining = slices.Delete(remaining, best, best+1)
	}

	if destination != nil {
		ordered = append(ordered, domain.RouteStop{
			ID:         DestinationStopID,
			Name:       DestinationStopID,
			Coordinate: *destination,
		})
	}

	for i := range ordered {
		ordered[i].Sequence = i + 1
	}

	m := o.metrics(ordered)
	res := domain.OptimizationResult{
		OrderedStops:             ordered,
		TotalDistanceKm:          m.DistanceKm,
		EstimatedDurationMinutes: m.DurationMinutes,
	}

	if prior != nil {
		res.DistanceSavedKm = prior.DistanceKm - m.DistanceKm
		res.TimeSavedMinutes = prior.DurationMinutes - m.DurationMinutes
		if prior.DistanceKm > 0 {
			res.DistanceSavedPercent = res.DistanceSavedKm / prior.DistanceKm * 100
		}
		if prior.DurationMinutes > 0 {
			res.TimeSavedPercent = res.TimeSavedMinutes / prior.DurationMinutes * 100
		}
	}

	obs.RouteOptimizations.Inc()
	return res, nil
}

// Metrics computes distance and duration of traversing stops in the given
// order, then destination if set. Callers use it to build the prior for Optimize.
func (o *RouteOptimizer) Metrics(stops []domain.RouteStop, destination *domain.Coordinate) domain.RouteMetrics {
	ordered := stops
	if destination != nil {
		ordered = append(slices.Clone(stops), domain.RouteStop{ID: DestinationStopID, Coordinate: *destination})
	}
	return o.metrics(ordered)
}

func (o *RouteOptimizer) metrics(ordered []domain.RouteStop) domain.RouteMetrics {
	if len(ordered) == 0 {
		return domain.RouteMetrics{}
	}

	points := make([]domain.Coordinate, len(ordered))
	for i, s := range ordered {
		points[i] = s.Coordinate
	}

	km := geo.PathDistanceKm(points)
	return domain.RouteMetrics{
		DistanceKm:      km,
		DurationMinutes: geo.TravelMinutes(km, o.speedKmh) + DwellMinutesPerStop*float64(len(ordered)-1),
	}
}

// OptimizeStoredRoute optimizes a persisted route against its current
// ordering. With commit set, the new sequence is written back.
func (o *RouteOptimizer) OptimizeStoredRoute(
	ctx context.Context,
	tenantID, routeID string,
	commit bool,
) (_ domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.OptimizeStoredRoute")(&err)

	if o.trips == nil {
		return domain.OptimizationResult{}, errors.New("optimize stored route: no trip repository configured")
	}

	route, err := o.trips.GetRoute(ctx, tenantID, routeID)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("optimize stored route: %w", err)
	}

	current := route.OrderedStops()
	prior := o.Metrics(current, route.Destination)

	res, err := o.Optimize(current, route.Destination, &prior)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("optimize stored route %q: %w", routeID, err)
	}

	if commit && !res.NothingToOptimize {
		stops := res.OrderedStops
		if route.Destination != nil {
			// the destination pseudo-stop is not a row of the route
			stops = stops[:len(stops)-1]
		}
		if err := o.trips.UpdateStopSequence(ctx, tenantID, routeID, stops); err != nil {
			return domain.OptimizationResult{}, fmt.Errorf("optimize stored route %q: commit: %w", routeID, err)
		}
	}

	return res, nil
}
