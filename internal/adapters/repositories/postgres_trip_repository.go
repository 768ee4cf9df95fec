package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
)

// Postgres-backed implementation of the TripRepository port.
type PostgresTripRepository struct{ DB *sql.DB }

func NewPostgresTripRepository(db *sql.DB) *PostgresTripRepository {
	return &PostgresTripRepository{DB: db}
}

var _ ports.TripRepository = (*PostgresTripRepository)(nil)

func (s *PostgresTripRepository) GetTrip(ctx context.Context, tenantID, tripID string) (_ *domain.Trip, err error) {
	defer obs.Time(ctx, "trips.GetTrip")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres trip repository: DB is nil")
	}

	q := `
	SELECT route_id, bus_id
	FROM trips
	WHERE tenant_id = $1 AND trip_id = $2;
	`

	var routeID, busID string
	err = s.DB.QueryRowContext(ctx, q, tenantID, tripID).Scan(&routeID, &busID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get trip %q: %w", tripID, domain.ErrTripNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %q: query trips table: %w", tripID, err)
	}

	route, err := s.GetRoute(ctx, tenantID, routeID)
	if err != nil {
		return nil, fmt.Errorf("get trip %q: %w", tripID, err)
	}

	return &domain.Trip{ID: tripID, TenantID: tenantID, BusID: busID, Route: *route}, nil
}

func (s *PostgresTripRepository) GetRoute(ctx context.Context, tenantID, routeID string) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("postgres trip repository: DB is nil")
	}

	q := `
	SELECT name, destination_lat, destination_lon
	FROM routes
	WHERE tenant_id = $1 AND route_id = $2;
	`

	var (
		name       string
		dLat, dLon sql.NullFloat64
	)
	err := s.DB.QueryRowContext(ctx, q, tenantID, routeID).Scan(&name, &dLat, &dLon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %q: %w", routeID, domain.ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %q: query routes table: %w", routeID, err)
	}

	route := &domain.Route{ID: routeID, TenantID: tenantID, Name: name}
	if dLat.Valid && dLon.Valid {
		route.Destination = &domain.Coordinate{Lat: dLat.Float64, Lon: dLon.Float64}
	}

	stopsQuery := `
	SELECT stop_id, name, lat, lon, sequence
	FROM route_stops
	WHERE tenant_id = $1 AND route_id = $2
	ORDER BY sequence, stop_id;
	`

	rows, err := s.DB.QueryContext(ctx, stopsQuery, tenantID, routeID)
	if err != nil {
		return nil, fmt.Errorf("get route %q: query route_stops table: %w", routeID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var st domain.RouteStop
		if err := rows.Scan(&st.ID, &st.Name, &st.Coordinate.Lat, &st.Coordinate.Lon, &st.Sequence); err != nil {
			return nil, fmt.Errorf("get route %q: scan stop: %w", routeID, err)
		}
		route.Stops = append(route.Stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get route %q: row iteration: %w", routeID, err)
	}

	return route, nil
}

// UpdateStopSequence writes each stop's Sequence in one transaction. A stop that
// is not on the route aborts the whole update.
func (s *PostgresTripRepository) UpdateStopSequence(
	ctx context.Context,
	tenantID, routeID string,
	stops []domain.RouteStop,
) (err error) {
	defer obs.Time(ctx, "trips.UpdateStopSequence")(&err)

	if s.DB == nil {
		return errors.New("postgres trip repository: DB is nil")
	}

	if len(stops) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update stop sequence: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	UPDATE route_stops
	SET sequence = $1
	WHERE tenant_id = $2 AND route_id = $3 AND stop_id = $4;
	`)
	if err != nil {
		return fmt.Errorf("update stop sequence: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, st := range stops {
		res, err := stmt.ExecContext(ctx, st.Sequence, tenantID, routeID, st.ID)
		if err != nil {
			return fmt.Errorf("update stop sequence stop_id=%q: %w", st.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update stop sequence stop_id=%q: rows affected: %w", st.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("update stop sequence: %w: stop %q is not on route %q", domain.ErrInvalidRoute, st.ID, routeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update stop sequence commit: %w", err)
	}

	return nil
}
