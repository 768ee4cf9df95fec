package ports

import (
	"context"
	"school-eta-service/internal/domain"
)

// Port: a boundary for retrieving trips and routes from a data source.
type TripRepository interface {
	// GetTrip returns the trip with its route and stops, or domain.ErrTripNotFound.
	GetTrip(ctx context.Context, tenantID, tripID string) (*domain.Trip, error)
	// GetRoute returns the route with its stops, or domain.ErrRouteNotFound.
	GetRoute(ctx context.Context, tenantID, routeID string) (*domain.Route, error)
	// UpdateStopSequence persists the Sequence of each stop.
	UpdateStopSequence(ctx context.Context, tenantID, routeID string, stops []domain.RouteStop) error
}
