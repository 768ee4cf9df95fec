package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"time"
)

// Postgres-backed tracking log. Serves both the current position of a bus and
// its recorded history.
type PostgresTrackingLog struct {
	DB  *sql.DB
	now func() time.Time
}

func NewPostgresTrackingLog(db *sql.DB) *PostgresTrackingLog {
	return &PostgresTrackingLog{DB: db, now: time.Now}
}

var (
	_ ports.LocationProvider = (*PostgresTrackingLog)(nil)
	_ ports.TrackingHistory  = (*PostgresTrackingLog)(nil)
)

func (s *PostgresTrackingLog) CurrentPosition(
	ctx context.Context,
	tenantID, busID string,
	maxAge time.Duration,
) (_ domain.Position, _ bool, err error) {
	defer obs.Time(ctx, "tracking.CurrentPosition")(&err)

	if s.DB == nil {
		return domain.Position{}, false, errors.New("tracking log: DB is nil")
	}

	// The cutoff is computed here so staleness follows the service clock, not the database's.
	cutoff := s.now().Add(-maxAge)

	q := `
	SELECT lat, lon, speed_mps, heading, recorded_at
	FROM tracking_logs
	WHERE tenant_id = $1
		AND bus_id = $2
		AND recorded_at >= $3
	ORDER BY recorded_at DESC
	LIMIT 1;
	`

	row := s.DB.QueryRowContext(ctx, q, tenantID, busID, cutoff)
	p, err := scanPosition(row.Scan, busID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("current position bus_id=%q: %w", busID, err)
	}

	return p, true, nil
}

func (s *PostgresTrackingLog) Positions(
	ctx context.Context,
	tenantID, busID string,
	from, to time.Time,
) (_ []domain.Position, err error) {
	defer obs.Time(ctx, "tracking.Positions")(&err)

	if s.DB == nil {
		return nil, errors.New("tracking log: DB is nil")
	}

	q := `
	SELECT lat, lon, speed_mps, heading, recorded_at
	FROM tracking_logs
	WHERE tenant_id = $1
		AND bus_id = $2
		AND recorded_at BETWEEN $3 AND $4
	ORDER BY recorded_at ASC;
	`

	rows, err := s.DB.QueryContext(ctx, q, tenantID, busID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list positions: query tracking_logs table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Position, 0, 256)
	for rows.Next() {
		p, err := scanPosition(rows.Scan, busID)
		if err != nil {
			return nil, fmt.Errorf("list positions: scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: row iteration: %w", err)
	}

	return out, nil
}

func scanPosition(scan func(dest ...any) error, busID string) (domain.Position, error) {
	var (
		lat, lon       float64
		speed, heading sql.NullFloat64
		recordedAt     time.Time
	)
	if err := scan(&lat, &lon, &speed, &heading, &recordedAt); err != nil {
		return domain.Position{}, err
	}

	p := domain.Position{
		BusID:      busID,
		Coordinate: domain.Coordinate{Lat: lat, Lon: lon},
		RecordedAt: recordedAt,
	}
	if speed.Valid {
		p.Speed = &speed.Float64
	}
	if heading.Valid {
		p.Heading = &heading.Float64
	}
	return p, nil
}
