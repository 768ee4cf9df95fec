package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTripStopsOrdersBySequence(t *testing.T) {
	trip := &Trip{
		ID:    "trip-1",
		BusID: "bus-1",
		Route: Route{
			ID: "route-1",
			Stops: []RouteStop{
				{ID: "C", Coordinate: Coordinate{Lat: 37.03, Lon: -122.0}, Sequence: 3},
				{ID: "A", Coordinate: Coordinate{Lat: 37.01, Lon: -122.0}, Sequence: 1},
				{ID: "B", Coordinate: Coordinate{Lat: 37.02, Lon: -122.0}, Sequence: 2},
			},
		},
	}

	stops, err := trip.Stops()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"A", "B", "C"}
	for i, s := range stops {
		if s.ID != want[i] {
			t.Errorf("stop %d = %q, want %q", i, s.ID, want[i])
		}
	}

	// stored order must be untouched
	if trip.Route.Stops[0].ID != "C" {
		t.Errorf("route stops were reordered in place")
	}
}

func TestTripStopsRejectsEmptyRoute(t *testing.T) {
	trip := &Trip{ID: "trip-1", BusID: "bus-1"}

	_, err := trip.Stops()
	if !errors.Is(err, ErrRouteHasNoStops) {
		t.Fatalf("err = %v, want ErrRouteHasNoStops", err)
	}
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("err = %v, want it to wrap ErrInvalidRoute", err)
	}
}

func TestTripStopsRejectsMalformedStop(t *testing.T) {
	trip := &Trip{
		ID:    "trip-1",
		BusID: "bus-1",
		Route: Route{Stops: []RouteStop{{ID: "bad", Coordinate: Coordinate{Lat: 91, Lon: 0}, Sequence: 1}}},
	}

	_, err := trip.Stops()
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("err = %v, want ErrInvalidRoute", err)
	}
}

func TestTripStopsRequiresBus(t *testing.T) {
	trip := &Trip{
		ID:    "trip-1",
		Route: Route{Stops: []RouteStop{{ID: "A", Coordinate: Coordinate{Lat: 1, Lon: 1}, Sequence: 1}}},
	}

	if _, err := trip.Stops(); !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("err = %v, want ErrInvalidRoute", err)
	}
}

func TestCoordinateValidate(t *testing.T) {
	cases := []struct {
		name string
		c    Coordinate
		ok   bool
	}{
		{"origin", Coordinate{0, 0}, true},
		{"poles", Coordinate{90, 180}, true},
		{"south-west edge", Coordinate{-90, -180}, true},
		{"lat too high", Coordinate{90.0001, 0}, false},
		{"lon too low", Coordinate{0, -180.5}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidCoordinate) {
				t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
			}
		})
	}
}

func TestPositionIsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	stale := Position{RecordedAt: now.Add(-61 * time.Minute)}
	if stale.IsFresh(now, DefaultLocationMaxAge) {
		t.Errorf("position recorded 61m ago reported fresh")
	}

	fresh := Position{RecordedAt: now.Add(-59 * time.Minute)}
	if !fresh.IsFresh(now, DefaultLocationMaxAge) {
		t.Errorf("position recorded 59m ago reported stale")
	}

	if (Position{}).IsFresh(now, DefaultLocationMaxAge) {
		t.Errorf("zero position reported fresh")
	}
}
