package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"time"

	"golang.org/x/sync/singleflight"
)

// ETAEngine answers "when will bus X reach point Y" and "when will it reach
// each stop of its trip". It composes the location provider, the route
// computer and the ETA cache, and is safe for concurrent use.
type ETAEngine struct {
	locations ports.LocationProvider
	routes    ports.RouteComputer
	cache     ports.ETACache
	trips     ports.TripRepository
	proximity *ProximityChecker

	maxAge   time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	sf singleflight.Group
}

type EngineOption func(*ETAEngine)

// WithLocationMaxAge sets how old a position may be and still be used.
func WithLocationMaxAge(d time.Duration) EngineOption {
	return func(e *ETAEngine) {
		if d > 0 {
			e.maxAge = d
		}
	}
}

func WithCacheTTL(d time.Duration) EngineOption {
	return func(e *ETAEngine) {
		if d > 0 {
			e.cacheTTL = d
		}
	}
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *ETAEngine) { e.now = now }
}

func NewETAEngine(
	locations ports.LocationProvider,
	routes ports.RouteComputer,
	cache ports.ETACache,
	trips ports.TripRepository,
	opts ...EngineOption,
) *ETAEngine {
	e := &ETAEngine{
		locations: locations,
		routes:    routes,
		cache:     cache,
		trips:     trips,
		maxAge:    domain.DefaultLocationMaxAge,
		cacheTTL:  ports.MaxETACacheTTL,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.proximity = NewProximityChecker(locations, WithProximityMaxAge(e.maxAge))
	return e
}

// CalculateBusETA returns the ETA from the bus's current position to
// destination. A cached answer for the same bus and destination is returned
// as stored. Routing backend failures never surface here; the result then
// carries the fallback provider. Errors are ErrInvalidCoordinate,
// ErrLocationUnavailable, a lookup failure, or ctx's own error.
func (e *ETAEngine) CalculateBusETA(
	ctx context.Context,
	tenantID, busID string,
	destination domain.Coordinate,
	provider string,
) (_ domain.ETAResult, err error) {
	defer obs.Time(ctx, "eta.CalculateBusETA")(&err)

	if err := destination.Validate(); err != nil {
		return domain.ETAResult{}, fmt.Errorf("calculate bus eta: destination: %w", err)
	}

	key := ports.ETACacheKey{TenantID: tenantID, BusID: busID, Destination: destination}

	cached, found, err := e.cache.Get(ctx, key)
	if err != nil {
		log.Printf("req_id=%s eta: cache get bus_id=%q failed, computing: %v", obs.RequestID(ctx), busID, err)
	}
	if found {
		return cached, nil
	}

	// Identical concurrent requests share one computation.
	sfKey := fmt.Sprintf("%s|%s|%s|%s", tenantID, busID, destination, provider)
	// The shared computation outlives any one caller, so it must not inherit
	// a single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.sf.Do(sfKey, func() (any, error) {
		return e.computeBusETA(shared, key, provider)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ETAResult{}, fmt.Errorf("calculate bus eta: %w", ctxErr)
	}
	if err != nil {
		return domain.ETAResult{}, err
	}
	return v.(domain.ETAResult), nil
}

func (e *ETAEngine) computeBusETA(ctx context.Context, key ports.ETACacheKey, provider string) (domain.ETAResult, error) {
	pos, err := e.currentPosition(ctx, key.TenantID, key.BusID)
	if err != nil {
		if errors.Is(err, domain.ErrLocationUnavailable) {
			obs.ETARequests.WithLabelValues(providerLabel(provider), "unavailable").Inc()
		}
		return domain.ETAResult{}, fmt.Errorf("calculate bus eta: %w", err)
	}

	res, err := e.routes.ComputeRoute(ctx, pos.Coordinate, key.Destination, provider)
	if err != nil {
		obs.ETARequests.WithLabelValues(providerLabel(provider), "error").Inc()
		return domain.ETAResult{}, fmt.Errorf("calculate bus eta: bus_id=%q: %w", key.BusID, err)
	}
	res.EstimatedArrival = e.now().Add(res.Duration())

	outcome := "ok"
	if res.IsFallback() {
		outcome = "fallback"
	}
	obs.ETARequests.WithLabelValues(res.Provider, outcome).Inc()

	// Fallback answers are cached too.
	if err := e.cache.Put(ctx, key, res, e.cacheTTL); err != nil {
		log.Printf("req_id=%s eta: cache put bus_id=%q failed: %v", obs.RequestID(ctx), key.BusID, err)
	}

	return res, nil
}

// CalculateRouteETAs estimates arrival at every stop of trip in sequence. The
// first leg starts at the bus's live position; every later leg starts at the
// previous stop, and arrivals accumulate leg by leg. Legs are computed one at
// a time because each depends on the one before.
func (e *ETAEngine) CalculateRouteETAs(
	ctx context.Context,
	tenantID string,
	trip *domain.Trip,
	provider string,
) (_ *domain.TripETAs, err error) {
	defer obs.Time(ctx, "eta.CalculateRouteETAs")(&err)

	if trip == nil {
		return nil, errors.New("calculate route etas: trip must be non-nil")
	}

	stops, err := trip.Stops()
	if err != nil {
		return nil, fmt.Errorf("calculate route etas: %w", err)
	}

	pos, err := e.currentPosition(ctx, tenantID, trip.BusID)
	if err != nil {
		return nil, fmt.Errorf("calculate route etas: trip %q: %w", trip.ID, err)
	}

	start := e.now()
	out := &domain.TripETAs{
		TripID:       trip.ID,
		BusID:        trip.BusID,
		Origin:       pos,
		Stops:        make([]domain.StopETA, 0, len(stops)),
		CalculatedAt: start,
	}

	origin := pos.Coordinate
	arrival := start
	var cumMinutes, cumKm float64

	for _, stop := range stops {
		leg, err := e.routes.ComputeRoute(ctx, origin, stop.Coordinate, provider)
		if err != nil {
			return nil, fmt.Errorf("calculate route etas: leg to stop %q: %w", stop.ID, err)
		}

		arrival = arrival.Add(leg.Duration())
		leg.EstimatedArrival = arrival
		cumMinutes += leg.DurationMinutes
		cumKm += leg.DistanceKm

		out.Stops = append(out.Stops, domain.StopETA{
			Stop:                 stop,
			Leg:                  leg,
			CumulativeMinutes:    cumMinutes,
			CumulativeDistanceKm: cumKm,
			EstimatedArrival:     arrival,
		})

		origin = stop.Coordinate
	}

	return out, nil
}

// CalculateTripETAs loads the trip and delegates to CalculateRouteETAs.
func (e *ETAEngine) CalculateTripETAs(
	ctx context.Context,
	tenantID, tripID string,
	provider string,
) (*domain.TripETAs, error) {
	if e.trips == nil {
		return nil, errors.New("calculate trip etas: no trip repository configured")
	}

	trip, err := e.trips.GetTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, fmt.Errorf("calculate trip etas: %w", err)
	}
	return e.CalculateRouteETAs(ctx, tenantID, trip, provider)
}

// IsBusNearStop reports whether the bus is within thresholdKm of stop.
// A non-positive threshold means DefaultProximityThresholdKm. A bus with no
// usable position is not near anything.
func (e *ETAEngine) IsBusNearStop(
	ctx context.Context,
	tenantID, busID string,
	stop domain.Coordinate,
	thresholdKm float64,
) (bool, error) {
	return e.proximity.IsNear(ctx, tenantID, busID, stop, thresholdKm)
}

// EvictBus drops every cached ETA for the bus, for example after it was
// reassigned to another route.
func (e *ETAEngine) EvictBus(ctx context.Context, tenantID, busID string) (err error) {
	defer obs.Time(ctx, "eta.EvictBus")(&err)

	if err := e.cache.EvictBus(ctx, tenantID, busID); err != nil {
		return fmt.Errorf("evict bus %q: %w", busID, err)
	}
	return nil
}

// providerLabel names the requested provider for metrics; empty means the
// registry default.
func providerLabel(provider string) string {
	if provider == "" {
		return "default"
	}
	return provider
}

func (e *ETAEngine) currentPosition(ctx context.Context, tenantID, busID string) (domain.Position, error) {
	pos, found, err := e.locations.CurrentPosition(ctx, tenantID, busID, e.maxAge)
	if err != nil {
		return domain.Position{}, fmt.Errorf("locate bus %q: %w", busID, err)
	}
	if !found {
		return domain.Position{}, fmt.Errorf("bus %q: %w", busID, domain.ErrLocationUnavailable)
	}
	return pos, nil
}
