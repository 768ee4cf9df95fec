package domain

import (
	"errors"
	"fmt"
)

var ErrTripNotFound = errors.New("trip not found")

// Trip is one run of a bus over a route.
type Trip struct {
	ID       string
	TenantID string
	BusID    string
	Route    Route
}

// Stops returns the trip's route stops in traversal order, validated.
func (t *Trip) Stops() ([]RouteStop, error) {
	if t.BusID == "" {
		return nil, fmt.Errorf("%w: trip %q has no bus assigned", ErrInvalidRoute, t.ID)
	}

	stops := t.Route.OrderedStops()
	if err := ValidateStops(stops); err != nil {
		return nil, fmt.Errorf("trip %q: %w", t.ID, err)
	}
	return stops, nil
}
