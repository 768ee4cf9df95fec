package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// trackingRow is one tracking_logs row held by the fake connection.
type trackingRow struct {
	tenantID, busID string
	lat, lon        float64
	recordedAt      time.Time
}

// fakeTrackingConn answers the current-position query from memory. It
// evaluates the tenant, bus and recorded_at predicates with the bound
// arguments, so the cutoff the store passes decides what is found.
type fakeTrackingConn struct {
	mu    sync.Mutex
	rows  []trackingRow
	query string
	args  []driver.NamedValue
}

func (c *fakeTrackingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake: prepare not supported")
}

func (c *fakeTrackingConn) Close() error { return nil }

func (c *fakeTrackingConn) Begin() (driver.Tx, error) { return nil, errors.New("fake: no tx") }

func (c *fakeTrackingConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query, c.args = query, args
	if len(args) != 3 {
		return nil, errors.New("fake: expected tenant, bus and cutoff")
	}
	cutoff, ok := args[2].Value.(time.Time)
	if !ok {
		return nil, errors.New("fake: cutoff is not a timestamp")
	}

	out := &fakeRows{}
	for _, r := range c.rows {
		if r.tenantID == args[0].Value && r.busID == args[1].Value && !r.recordedAt.Before(cutoff) {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

type fakeRows struct {
	rows []trackingRow
	i    int
}

func (r *fakeRows) Columns() []string {
	return []string{"lat", "lon", "speed_mps", "heading", "recorded_at"}
}

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.i]
	r.i++
	dest[0], dest[1], dest[2], dest[3], dest[4] = row.lat, row.lon, nil, nil, row.recordedAt
	return nil
}

type fakeConnector struct{ conn *fakeTrackingConn }

func (f fakeConnector) Connect(context.Context) (driver.Conn, error) { return f.conn, nil }

func (f fakeConnector) Driver() driver.Driver { return fakeDriver{f.conn} }

type fakeDriver struct{ conn *fakeTrackingConn }

func (d fakeDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func newFakeTrackingLog(t *testing.T, now time.Time, rows ...trackingRow) (*PostgresTrackingLog, *fakeTrackingConn) {
	t.Helper()

	conn := &fakeTrackingConn{rows: rows}
	db := sql.OpenDB(fakeConnector{conn})
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresTrackingLog(db)
	store.now = func() time.Time { return now }
	return store, conn
}

func TestCurrentPositionHonorsMaxAge(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	ctx := context.Background()

	store, conn := newFakeTrackingLog(t, now, trackingRow{
		tenantID: "district-1", busID: "bus-7", lat: 37.0, lon: -122.0,
		recordedAt: now.Add(-59 * time.Minute),
	})

	p, found, err := store.CurrentPosition(ctx, "district-1", "bus-7", 60*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("59-minute-old position not found")
	}
	if p.BusID != "bus-7" || p.Coordinate.Lat != 37.0 || p.Speed != nil {
		t.Errorf("position = %+v", p)
	}

	if !strings.Contains(conn.query, "recorded_at >= $3") {
		t.Errorf("query does not filter on the cutoff:\n%s", conn.query)
	}
	cutoff, _ := conn.args[2].Value.(time.Time)
	if want := now.Add(-60 * time.Minute); !cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", cutoff, want)
	}

	conn.rows[0].recordedAt = now.Add(-61 * time.Minute)

	if _, found, err := store.CurrentPosition(ctx, "district-1", "bus-7", 60*time.Minute); err != nil || found {
		t.Fatalf("61-minute-old position: found = %v, err = %v; want not found", found, err)
	}
}

func TestCurrentPositionIsTenantScoped(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

	store, _ := newFakeTrackingLog(t, now, trackingRow{
		tenantID: "district-1", busID: "bus-7", lat: 37.0, lon: -122.0,
		recordedAt: now.Add(-time.Minute),
	})

	_, found, err := store.CurrentPosition(context.Background(), "district-2", "bus-7", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("position leaked across tenants")
	}
}
