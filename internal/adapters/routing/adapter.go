package routing

import (
	"context"
	"fmt"
	"log"
	"math"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/platform/report"
	"school-eta-service/internal/ports"
	"time"

	"github.com/getsentry/sentry-go"
)

const DefaultTimeout = 4 * time.Second

// Adapter computes ETAs through a named routing backend and degrades to a
// Haversine estimate when the backend is missing, slow, or wrong. It makes a
// single attempt per call. It implements ports.RouteComputer.
type Adapter struct {
	registry         *Registry
	timeout          time.Duration
	fallbackSpeedKmh float64
	reporter         *report.Reporter
	now              func() time.Time
}

type Option func(*Adapter)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithFallbackSpeed sets the average speed assumed by the Haversine estimate.
func WithFallbackSpeed(kmh float64) Option {
	return func(a *Adapter) {
		if kmh > 0 {
			a.fallbackSpeedKmh = kmh
		}
	}
}

func WithReporter(r *report.Reporter) Option {
	return func(a *Adapter) { a.reporter = r }
}

func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func NewAdapter(registry *Registry, opts ...Option) *Adapter {
	a := &Adapter{
		registry:         registry,
		timeout:          DefaultTimeout,
		fallbackSpeedKmh: domain.DefaultFallbackSpeedKmh,
		now:              time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

var _ ports.RouteComputer = (*Adapter)(nil)

// ComputeRoute returns an ETA from origin to destination using provider.
// Invalid coordinates and a done ctx produce an error; every backend failure
// is logged and answered with the fallback estimate instead.
func (a *Adapter) ComputeRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
	provider string,
) (domain.ETAResult, error) {
	if err := origin.Validate(); err != nil {
		return domain.ETAResult{}, fmt.Errorf("compute route: origin: %w", err)
	}
	if err := destination.Validate(); err != nil {
		return domain.ETAResult{}, fmt.Errorf("compute route: destination: %w", err)
	}

	backend, ok := a.registry.Resolve(provider)
	if !ok {
		log.Printf("routing: no backend configured for default=%q, using %s", a.registry.DefaultName(), domain.FallbackProvider)
		return a.fallback(origin, destination), nil
	}

	res, err := a.call(ctx, backend, origin, destination)
	if err != nil {
		// The caller gave up; that says nothing about the backend.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ETAResult{}, fmt.Errorf("compute route: %w", ctxErr)
		}

		reason := failureReason(err)
		obs.RoutingBackendFailures.WithLabelValues(backend.Name(), reason).Inc()
		log.Printf("req_id=%s routing: provider=%s reason=%s err=%v (using %s)",
			obs.RequestID(ctx), backend.Name(), reason, err, domain.FallbackProvider)
		a.reporter.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  map[string]string{"provider": backend.Name(), "reason": reason},
			Level: sentry.LevelWarning,
		})
		return a.fallback(origin, destination), nil
	}

	trafficFactor := domain.DefaultTrafficFactor
	if res.TrafficFactor > 0 {
		trafficFactor = res.TrafficFactor
	}

	return domain.ETAResult{
		Success:         true,
		DurationMinutes: res.DurationSeconds / 60,
		DistanceKm:      res.DistanceMeters / 1000,
		TrafficFactor:   trafficFactor,
		Polyline:        res.Geometry,
		Provider:        backend.Name(),
		CalculatedAt:    a.now(),
	}, nil
}

func (a *Adapter) call(
	ctx context.Context,
	backend ports.RoutingBackend,
	origin, destination domain.Coordinate,
) (ports.RouteResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	res, err := backend.Route(callCtx, origin, destination)
	obs.RoutingBackendLatency.WithLabelValues(backend.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return ports.RouteResult{}, err
	}

	if !validMetric(res.DurationSeconds) || !validMetric(res.DistanceMeters) {
		return ports.RouteResult{}, fmt.Errorf(
			"%w: duration=%v distance=%v", ErrMalformedResponse, res.DurationSeconds, res.DistanceMeters,
		)
	}
	return res, nil
}

func validMetric(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (a *Adapter) fallback(origin, destination domain.Coordinate) domain.ETAResult {
	return HaversineEstimate(origin, destination, a.fallbackSpeedKmh, a.now())
}

// HaversineEstimate is the local, network-free ETA: straight-line distance
// driven at speedKmh, no traffic and no geometry.
func HaversineEstimate(origin, destination domain.Coordinate, speedKmh float64, now time.Time) domain.ETAResult {
	distanceKm := geo.DistanceKm(origin, destination)
	return domain.ETAResult{
		Success:         true,
		DurationMinutes: geo.TravelMinutes(distanceKm, speedKmh),
		DistanceKm:      distanceKm,
		TrafficFactor:   domain.DefaultTrafficFactor,
		Provider:        domain.FallbackProvider,
		CalculatedAt:    now,
	}
}
