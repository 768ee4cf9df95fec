package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"school-eta-service/internal/domain"
	"strings"
	"time"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createTrackingLogsQuery := `
	CREATE TABLE IF NOT EXISTS tracking_logs (
		id BIGSERIAL PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		bus_id TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		speed_mps DOUBLE PRECISION,
		heading DOUBLE PRECISION,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	`

	createTrackingIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_tracking_logs_tenant_bus_recorded
	ON tracking_logs(tenant_id, bus_id, recorded_at DESC);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		tenant_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		destination_lat DOUBLE PRECISION,
		destination_lon DOUBLE PRECISION,
		PRIMARY KEY (tenant_id, route_id)
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		tenant_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		stop_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		sequence INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, route_id, stop_id),
		FOREIGN KEY (tenant_id, route_id) REFERENCES routes(tenant_id, route_id) ON DELETE CASCADE
	);
	`

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trips (
		tenant_id TEXT NOT NULL,
		trip_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		bus_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant_id, trip_id),
		FOREIGN KEY (tenant_id, route_id) REFERENCES routes(tenant_id, route_id)
	);
	`

	statements := []string{
		createTrackingLogsQuery,
		createTrackingIndexQuery,
		createRoutesQuery,
		createRouteStopsQuery,
		createTripsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type Seed struct {
	Routes    []RouteSeed    `json:"routes"`
	Trips     []TripSeed     `json:"trips"`
	Positions []PositionSeed `json:"positions"`
}

type RouteSeed struct {
	TenantID    string     `json:"tenant_id"`
	RouteID     string     `json:"route_id"`
	Name        string     `json:"name"`
	Destination *PointSeed `json:"destination,omitempty"`
	Stops       []StopSeed `json:"stops"`
}

type PointSeed struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type StopSeed struct {
	StopID   string  `json:"stop_id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Sequence int     `json:"sequence"`
}

type TripSeed struct {
	TenantID string `json:"tenant_id"`
	TripID   string `json:"trip_id"`
	RouteID  string `json:"route_id"`
	BusID    string `json:"bus_id"`
}

type PositionSeed struct {
	TenantID   string    `json:"tenant_id"`
	BusID      string    `json:"bus_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ParseSeed decodes and validates seed data.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("seed: parse json: %w", err)
	}

	for i, r := range s.Routes {
		if strings.TrimSpace(r.TenantID) == "" || strings.TrimSpace(r.RouteID) == "" {
			return nil, fmt.Errorf("seed: route at index %d: tenant_id and route_id are required", i)
		}
		if r.Destination != nil {
			if err := (domain.Coordinate{Lat: r.Destination.Lat, Lon: r.Destination.Lon}).Validate(); err != nil {
				return nil, fmt.Errorf("seed: route %q destination: %w", r.RouteID, err)
			}
		}
		for j, st := range r.Stops {
			if strings.TrimSpace(st.StopID) == "" {
				return nil, fmt.Errorf("seed: route %q stop at index %d: stop_id cannot be empty", r.RouteID, j)
			}
			if err := (domain.Coordinate{Lat: st.Lat, Lon: st.Lon}).Validate(); err != nil {
				return nil, fmt.Errorf("seed: route %q stop %q: %w", r.RouteID, st.StopID, err)
			}
		}
	}

	for i, tr := range s.Trips {
		if tr.TenantID == "" || tr.TripID == "" || tr.RouteID == "" {
			return nil, fmt.Errorf("seed: trip at index %d: tenant_id, trip_id and route_id are required", i)
		}
	}

	for i, p := range s.Positions {
		if p.TenantID == "" || p.BusID == "" || p.RecordedAt.IsZero() {
			return nil, fmt.Errorf("seed: position at index %d: tenant_id, bus_id and recorded_at are required", i)
		}
		if err := (domain.Coordinate{Lat: p.Lat, Lon: p.Lon}).Validate(); err != nil {
			return nil, fmt.Errorf("seed: position at index %d: %w", i, err)
		}
	}

	return &s, nil
}

// Populate the database with routes, trips and tracking logs from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	s, err := ParseSeed(bytes)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range s.Routes {
		var dLat, dLon sql.NullFloat64
		if r.Destination != nil {
			dLat = sql.NullFloat64{Float64: r.Destination.Lat, Valid: true}
			dLon = sql.NullFloat64{Float64: r.Destination.Lon, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO routes (tenant_id, route_id, name, destination_lat, destination_lon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, route_id) DO UPDATE
		SET name = EXCLUDED.name,
			destination_lat = EXCLUDED.destination_lat,
			destination_lon = EXCLUDED.destination_lon;
		`, r.TenantID, r.RouteID, r.Name, dLat, dLon); err != nil {
			return fmt.Errorf("seed: insert route_id=%q: %w", r.RouteID, err)
		}

		for _, st := range r.Stops {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO route_stops (tenant_id, route_id, stop_id, name, lat, lon, sequence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tenant_id, route_id, stop_id) DO UPDATE
			SET name = EXCLUDED.name,
				lat = EXCLUDED.lat,
				lon = EXCLUDED.lon,
				sequence = EXCLUDED.sequence;
			`, r.TenantID, r.RouteID, st.StopID, st.Name, st.Lat, st.Lon, st.Sequence); err != nil {
				return fmt.Errorf("seed: insert stop_id=%q: %w", st.StopID, err)
			}
		}
	}

	for _, tr := range s.Trips {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO trips (tenant_id, trip_id, route_id, bus_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, trip_id) DO UPDATE
		SET route_id = EXCLUDED.route_id,
			bus_id = EXCLUDED.bus_id;
		`, tr.TenantID, tr.TripID, tr.RouteID, tr.BusID); err != nil {
			return fmt.Errorf("seed: insert trip_id=%q: %w", tr.TripID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tracking_logs (tenant_id, bus_id, lat, lon, speed_mps, heading, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare tracking log insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range s.Positions {
		if _, err := stmt.ExecContext(ctx, p.TenantID, p.BusID, p.Lat, p.Lon, p.SpeedMps, p.Heading, p.RecordedAt); err != nil {
			return fmt.Errorf("seed: insert tracking log bus_id=%q: %w", p.BusID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
