package services

import (
	"context"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"school-eta-service/internal/ports"
	"time"
)

// DefaultProximityThresholdKm is the geofence radius used when none is given.
const DefaultProximityThresholdKm = 0.5

// ProximityResult is the detailed answer behind IsNear.
type ProximityResult struct {
	Near        bool
	Located     bool
	DistanceKm  float64
	ThresholdKm float64
	Position    domain.Position
}

// ProximityChecker is a geofence test against a bus's current position.
type ProximityChecker struct {
	locations ports.LocationProvider
	maxAge    time.Duration
}

type ProximityOption func(*ProximityChecker)

func WithProximityMaxAge(d time.Duration) ProximityOption {
	return func(p *ProximityChecker) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

func NewProximityChecker(locations ports.LocationProvider, opts ...ProximityOption) *ProximityChecker {
	p := &ProximityChecker{
		locations: locations,
		maxAge:    domain.DefaultLocationMaxAge,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Check measures the distance from the bus to point. The boundary is
// inclusive: a bus exactly thresholdKm away is near.
func (p *ProximityChecker) Check(
	ctx context.Context,
	tenantID, busID string,
	point domain.Coordinate,
	thresholdKm float64,
) (ProximityResult, error) {
	if err := point.Validate(); err != nil {
		return ProximityResult{}, fmt.Errorf("proximity: point: %w", err)
	}
	if thresholdKm <= 0 {
		thresholdKm = DefaultProximityThresholdKm
	}

	out := ProximityResult{ThresholdKm: thresholdKm}

	pos, found, err := p.locations.CurrentPosition(ctx, tenantID, busID, p.maxAge)
	if err != nil {
		return out, fmt.Errorf("proximity: locate bus %q: %w", busID, err)
	}
	if !found {
		return out, nil
	}

	out.Located = true
	out.Position = pos
	out.DistanceKm = geo.DistanceKm(pos.Coordinate, point)
	out.Near = out.DistanceKm <= thresholdKm
	return out, nil
}

func (p *ProximityChecker) IsNear(
	ctx context.Context,
	tenantID, busID string,
	point domain.Coordinate,
	thresholdKm float64,
) (bool, error) {
	res, err := p.Check(ctx, tenantID, busID, point, thresholdKm)
	if err != nil {
		return false, err
	}
	return res.Near, nil
}
