package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"school-eta-service/internal/adapters/cache"
	"school-eta-service/internal/adapters/location"
	"school-eta-service/internal/adapters/routing"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/services"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "district-1"

var (
	now    = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	busPos = domain.Coordinate{Lat: 37.0, Lon: -122.0}
	stopA  = domain.Coordinate{Lat: 37.01, Lon: -122.0}
	stopB  = domain.Coordinate{Lat: 37.02, Lon: -122.0}
	school = domain.Coordinate{Lat: 37.05, Lon: -122.02}
)

type apiFixture struct {
	tracker *location.MemoryTracker
	trips   *fakeTrips
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clock := func() time.Time { return now }
	tracker := location.NewMemoryTracker(clock)
	backend := routing.NewMockBackend("osrm", []routing.MockPair{
		{From: busPos, To: school, Meters: 7400, Seconds: 900},
		{From: busPos, To: stopA, Meters: 1200, Seconds: 180},
		{From: stopA, To: stopB, Meters: 1100, Seconds: 120},
	})
	adapter := routing.NewAdapter(routing.NewRegistry("osrm", backend), routing.WithClock(clock))
	trips := newFakeTrips()

	engine := services.NewETAEngine(tracker, adapter, cache.NewMemoryETACache(100), trips,
		services.WithEngineClock(clock))

	tracker.Record(tenant, domain.Position{BusID: "bus-1", Coordinate: busPos, RecordedAt: now.Add(-time.Minute)})

	return &apiFixture{
		tracker: tracker,
		trips:   trips,
		handler: NewRouter(Deps{
			Engine:         engine,
			Proximity:      services.NewProximityChecker(tracker),
			Optimizer:      services.NewRouteOptimizer(trips, domain.DefaultFallbackSpeedKmh),
			Playback:       services.NewPlaybackService(tracker),
			StreamInterval: 20 * time.Millisecond,
		}),
	}
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(TenantIDHeader, tenant)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func etaURL(busID string, c domain.Coordinate) string {
	return fmt.Sprintf("/v1/buses/%s/eta?lat=%v&lng=%v", busID, c.Lat, c.Lon)
}

func TestHealth_NoTenantRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestMissingTenant_Returns400(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, etaURL("bus-1", school), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestID_Echoed(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestBusETA(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, etaURL("bus-1", school), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["success"])
	assert.InDelta(t, 15.0, got["eta_minutes"], 1e-9)
	assert.InDelta(t, 7.4, got["distance_km"], 1e-9)
	assert.InDelta(t, 1.0, got["traffic_factor"], 1e-9)
	assert.Equal(t, "osrm", got["provider"])
	assert.Equal(t, now.Add(15*time.Minute).Format(time.RFC3339), got["estimated_arrival"])
}

func TestBusETA_UnknownBus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, etaURL("bus-404", school), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Bus location not available", decode[map[string]string](t, rec)["error"])
}

func TestBusETA_BadQuery(t *testing.T) {
	f := newAPIFixture(t)

	for _, target := range []string{
		"/v1/buses/bus-1/eta?lng=-122",
		"/v1/buses/bus-1/eta?lat=abc&lng=-122",
		"/v1/buses/bus-1/eta?lat=91&lng=-122",
		"/v1/buses/bus-1/eta?lat=37&lng=181",
	} {
		rec := f.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestBatchETA_PerBusErrors(t *testing.T) {
	f := newAPIFixture(t)

	body := map[string]any{
		"requests": []map[string]any{
			{"bus_id": "bus-1", "lat": school.Lat, "lng": school.Lon},
			{"bus_id": "bus-404", "lat": school.Lat, "lng": school.Lon},
		},
	}
	rec := f.do(t, http.MethodPost, "/v1/eta/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type item struct {
		BusID string          `json:"bus_id"`
		ETA   json.RawMessage `json:"eta"`
		Error string          `json:"error"`
	}
	got := decode[struct {
		Results []item `json:"results"`
	}](t, rec)

	require.Len(t, got.Results, 2)
	assert.Equal(t, "bus-1", got.Results[0].BusID)
	assert.NotEmpty(t, got.Results[0].ETA)
	assert.Empty(t, got.Results[0].Error)
	assert.Equal(t, "bus-404", got.Results[1].BusID)
	assert.Equal(t, "Bus location not available", got.Results[1].Error)
}

func TestBatchETA_Validation(t *testing.T) {
	f := newAPIFixture(t)

	cases := map[string]any{
		"empty":       map[string]any{"requests": []any{}},
		"missing lat": map[string]any{"requests": []map[string]any{{"bus_id": "bus-1", "lng": -122.0}}},
		"bad lng":     map[string]any{"requests": []map[string]any{{"bus_id": "bus-1", "lat": 37.0, "lng": 200.0}}},
		"no bus":      map[string]any{"requests": []map[string]any{{"lat": 37.0, "lng": -122.0}}},
	}
	for name, body := range cases {
		rec := f.do(t, http.MethodPost, "/v1/eta/batch", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestEvictCache(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/v1/buses/bus-1/eta-cache", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTripETAs(t *testing.T) {
	f := newAPIFixture(t)
	f.trips.trips[tenant+"/trip-1"] = &domain.Trip{
		ID:       "trip-1",
		TenantID: tenant,
		BusID:    "bus-1",
		Route: domain.Route{ID: "r-1", Stops: []domain.RouteStop{
			{ID: "b", Coordinate: stopB, Sequence: 2},
			{ID: "a", Coordinate: stopA, Sequence: 1},
		}},
	}

	rec := f.do(t, http.MethodGet, "/v1/trips/trip-1/etas", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		TripID string `json:"trip_id"`
		ETAs   []struct {
			StopID     string  `json:"stop_id"`
			ETAMinutes float64 `json:"eta_minutes"`
			LegMinutes float64 `json:"leg_minutes"`
		} `json:"etas"`
	}](t, rec)

	assert.Equal(t, "trip-1", got.TripID)
	require.Len(t, got.ETAs, 2)
	assert.Equal(t, "a", got.ETAs[0].StopID)
	assert.InDelta(t, 3.0, got.ETAs[0].ETAMinutes, 1e-9)
	assert.Equal(t, "b", got.ETAs[1].StopID)
	assert.InDelta(t, 2.0, got.ETAs[1].LegMinutes, 1e-9)
	assert.InDelta(t, 5.0, got.ETAs[1].ETAMinutes, 1e-9)
}

func TestTripETAs_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/trips/missing/etas", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTripETAs_NoStops(t *testing.T) {
	f := newAPIFixture(t)
	f.trips.trips[tenant+"/empty"] = &domain.Trip{ID: "empty", TenantID: tenant, BusID: "bus-1"}

	rec := f.do(t, http.MethodGet, "/v1/trips/empty/etas", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Route has no stops defined", decode[map[string]string](t, rec)["error"])
}

func TestProximity(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/buses/bus-1/proximity?lat=37&lng=-122&threshold_km=0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["is_near"])
	assert.Equal(t, true, got["located"])
	assert.InDelta(t, 0.0, got["distance_km"], 1e-9)
	assert.InDelta(t, 0.1, got["threshold_km"], 1e-9)

	rec = f.do(t, http.MethodGet, "/v1/buses/bus-404/proximity?lat=37&lng=-122", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[map[string]any](t, rec)
	assert.Equal(t, false, got["is_near"])
	assert.Equal(t, false, got["located"])
	assert.NotContains(t, got, "distance_km")
}

func TestOptimizeRoute(t *testing.T) {
	f := newAPIFixture(t)

	body := map[string]any{
		"stops": []map[string]any{
			{"id": "c", "lat": 37.03, "lng": -122.0},
			{"id": "a", "lat": 37.01, "lng": -122.0},
			{"id": "b", "lat": 37.02, "lng": -122.0},
		},
	}
	rec := f.do(t, http.MethodPost, "/v1/optimize-route", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		OrderedStops []struct {
			ID       string `json:"id"`
			Sequence int    `json:"sequence"`
		} `json:"ordered_stops"`
		TotalDistanceKm float64 `json:"total_distance_km"`
	}](t, rec)

	require.Len(t, got.OrderedStops, 3)
	for i, want := range []string{"c", "b", "a"} {
		assert.Equal(t, want, got.OrderedStops[i].ID)
		assert.Equal(t, i+1, got.OrderedStops[i].Sequence)
	}
	assert.Greater(t, got.TotalDistanceKm, 0.0)
}

func TestOptimizeRoute_Invalid(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/optimize-route", map[string]any{
		"stops": []map[string]any{{"id": "a", "lat": 95.0, "lng": 0.0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/optimize-route", map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeStoredRoute_Commit(t *testing.T) {
	f := newAPIFixture(t)
	f.trips.routes[tenant+"/r-1"] = &domain.Route{ID: "r-1", TenantID: tenant, Stops: []domain.RouteStop{
		{ID: "c", Coordinate: domain.Coordinate{Lat: 37.03, Lon: -122.0}, Sequence: 1},
		{ID: "a", Coordinate: stopA, Sequence: 2},
		{ID: "b", Coordinate: stopB, Sequence: 3},
	}}

	rec := f.do(t, http.MethodPost, "/v1/routes/r-1/optimize?commit=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["committed"])
	assert.Len(t, f.trips.updated, 3)

	rec = f.do(t, http.MethodPost, "/v1/routes/missing/optimize", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayback(t *testing.T) {
	f := newAPIFixture(t)
	start := now.Add(-time.Hour)
	f.tracker.Record(tenant, domain.Position{BusID: "bus-2", Coordinate: busPos, RecordedAt: start})
	f.tracker.Record(tenant, domain.Position{BusID: "bus-2", Coordinate: stopA, RecordedAt: start.Add(2 * time.Minute)})

	from := start.Add(-time.Minute).Format(time.RFC3339)
	to := start.Add(time.Hour).Format(time.RFC3339)

	rec := f.do(t, http.MethodGet, "/v1/buses/bus-2/playback?from="+from+"&to="+to, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[map[string]any](t, rec)
	assert.Equal(t, "bus-2", got["bus_id"])
	assert.InDelta(t, 120.0, got["elapsed_seconds"], 1e-9)
	assert.Len(t, got["points"], 2)

	rec = f.do(t, http.MethodGet, "/v1/buses/bus-2/playback?from="+to+"&to="+from, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/buses/bus-2/playback?from=yesterday&to="+to, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestETAStream(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		fmt.Sprintf("/v1/buses/bus-1/eta/stream?lat=%v&lng=%v", school.Lat, school.Lon)
	header := http.Header{TenantIDHeader: []string{tenant}}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var msg struct {
			ETA *struct {
				ETAMinutes float64 `json:"eta_minutes"`
				Provider   string  `json:"provider"`
			} `json:"eta"`
			Error string `json:"error"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotNil(t, msg.ETA, "message %d: %s", i, msg.Error)
		assert.InDelta(t, 15.0, msg.ETA.ETAMinutes, 1e-9)
		assert.Equal(t, "osrm", msg.ETA.Provider)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
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
		return nil, domain.ErrTripNotFound
	}
	return t, nil
}

func (f *fakeTrips) GetRoute(ctx context.Context, tenantID, routeID string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[tenantID+"/"+routeID]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return r, nil
}

func (f *fakeTrips) UpdateStopSequence(ctx context.Context, tenantID, routeID string, stops []domain.RouteStop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append([]domain.RouteStop(nil), stops...)
	return nil
}
