package services

import (
	"context"
	"fmt"
	"school-eta-service/internal/adapters/cache"
	"school-eta-service/internal/adapters/location"
	"school-eta-service/internal/adapters/routing"
	"school-eta-service/internal/domain"
	"sync"
	"time"
)

const tenant = "district-1"

var (
	busPos = domain.Coordinate{Lat: 37.0, Lon: -122.0}
	stopA  = domain.Coordinate{Lat: 37.01, Lon: -122.0}
	stopB  = domain.Coordinate{Lat: 37.02, Lon: -122.0}
	stopC  = domain.Coordinate{Lat: 37.03, Lon: -122.0}
	school = domain.Coordinate{Lat: 37.05, Lon: -122.02}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock   *testClock
	tracker *location.MemoryTracker
	backend *routing.MockBackend
	engine  *ETAEngine
	trips   *fakeTrips
}

func newFixture(pairs []routing.MockPair) *fixture {
	clock := newTestClock()
	tracker := location.NewMemoryTracker(clock.Now)
	backend := routing.NewMockBackend("osrm", pairs)
	adapter := routing.NewAdapter(routing.NewRegistry("osrm", backend), routing.WithClock(clock.Now))
	trips := newFakeTrips()

	return &fixture{
		clock:   clock,
		tracker: tracker,
		backend: backend,
		trips:   trips,
		engine: NewETAEngine(tracker, adapter, cache.NewMemoryETACache(100), trips,
			WithEngineClock(clock.Now)),
	}
}

// locate records a position for busID taken age ago.
func (f *fixture) locate(busID string, c domain.Coordinate, age time.Duration) {
	f.tracker.Record(tenant, domain.Position{BusID: busID, Coordinate: c, RecordedAt: f.clock.Now().Add(-age)})
}

type fakeTrips struct {
	mu      sync.Mutex
	trips   map[string]*domain.Trip
	routes  map[string]*domain.Route
	updated []domain.RouteStop
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{trips: map[string]*domain.Trip{}, routes: map[string]*domain.Route{}}
}

func (f *fakeTrips) GetTrip(ctx context.Context, tenantID, tripID string) (*domain.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tenantID+"/"+tripID]
	if !ok {
		return nil, fmt.Errorf("trip %q: %w", tripID, domain.ErrTripNotFound)
	}
	return t, nil
}

func (f *fakeTrips) GetRoute(ctx context.Context, tenantID, routeID string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[tenantID+"/"+routeID]
	if !ok {
		return nil, fmt.Errorf("route %q: %w", routeID, domain.ErrRouteNotFound)
	}
	return r, nil
}

func (f *fakeTrips) UpdateStopSequence(ctx context.Context, tenantID, routeID string, stops []domain.RouteStop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append([]domain.RouteStop(nil), stops...)
	return nil
}
