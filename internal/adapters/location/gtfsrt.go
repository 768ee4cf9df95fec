package location

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"
)

const (
	// DefaultRefreshInterval matches the usual publish cadence of vehicle position feeds.
	DefaultRefreshInterval = 15 * time.Second

	maxFeedBytes = 16 << 20
)

// GTFSRTLocationProvider reads bus positions from a GTFS-realtime
// VehiclePositions feed. Buses are matched by vehicle id, falling back to the
// vehicle label. A feed carries one agency, so tenantID is not consulted.
type GTFSRTLocationProvider struct {
	url      string
	client   *http.Client
	interval time.Duration
	now      func() time.Time

	sf        singleflight.Group
	mu        sync.RWMutex
	snapshot  map[string]domain.Position
	fetchedAt time.Time
}

func NewGTFSRTLocationProvider(url string, interval time.Duration, now func() time.Time) *GTFSRTLocationProvider {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if now == nil {
		now = time.Now
	}
	return &GTFSRTLocationProvider{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: interval,
		now:      now,
	}
}

var _ ports.LocationProvider = (*GTFSRTLocationProvider)(nil)

func (g *GTFSRTLocationProvider) CurrentPosition(
	ctx context.Context,
	tenantID, busID string,
	maxAge time.Duration,
) (domain.Position, bool, error) {
	positions, err := g.positions(ctx)
	if err != nil {
		return domain.Position{}, false, err
	}

	p, ok := positions[busID]
	if !ok || !p.IsFresh(g.now(), maxAge) {
		return domain.Position{}, false, nil
	}
	return p, true, nil
}

// positions returns the current snapshot, refreshing it once it is older than
// the interval. A failed refresh keeps serving the previous snapshot.
func (g *GTFSRTLocationProvider) positions(ctx context.Context) (map[string]domain.Position, error) {
	g.mu.RLock()
	snap, fetchedAt := g.snapshot, g.fetchedAt
	g.mu.RUnlock()

	if snap != nil && g.now().Sub(fetchedAt) < g.interval {
		return snap, nil
	}

	v, err, _ := g.sf.Do("refresh", func() (any, error) {
		return g.Refresh(ctx)
	})
	if err != nil {
		if snap != nil {
			log.Printf("req_id=%s gtfsrt: refresh failed, serving snapshot from %s: %v",
				obs.RequestID(ctx), fetchedAt.Format(time.RFC3339), err)
			return snap, nil
		}
		return nil, err
	}
	return v.(map[string]domain.Position), nil
}

// Refresh downloads the feed and replaces the snapshot.
func (g *GTFSRTLocationProvider) Refresh(ctx context.Context) (_ map[string]domain.Position, err error) {
	defer obs.Time(ctx, "gtfsrt.Refresh")(&err)

	fm, err := g.fetchFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("gtfsrt: fetch %s: %w", g.url, err)
	}

	snap := vehiclePositions(fm)

	g.mu.Lock()
	g.snapshot = snap
	g.fetchedAt = g.now()
	g.mu.Unlock()

	return snap, nil
}

func (g *GTFSRTLocationProvider) fetchFeed(ctx context.Context) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &fm, nil
}

// vehiclePositions indexes the feed's vehicle entities by bus id, keeping the
// newest report when a vehicle appears more than once.
func vehiclePositions(fm *gtfsrtpb.FeedMessage) map[string]domain.Position {
	out := make(map[string]domain.Position, len(fm.GetEntity()))

	for _, e := range fm.GetEntity() {
		vp := e.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}

		busID := vp.GetVehicle().GetId()
		if busID == "" {
			busID = vp.GetVehicle().GetLabel()
		}
		if busID == "" {
			continue
		}

		pos := vp.GetPosition()
		c := domain.Coordinate{Lat: float64(pos.GetLatitude()), Lon: float64(pos.GetLongitude())}
		if err := c.Validate(); err != nil {
			continue
		}

		ts := vp.GetTimestamp()
		if ts == 0 {
			ts = fm.GetHeader().GetTimestamp()
		}

		p := domain.Position{
			BusID:      busID,
			Coordinate: c,
			RecordedAt: time.Unix(int64(ts), 0).UTC(),
		}
		if pos.Speed != nil {
			s := float64(pos.GetSpeed())
			p.Speed = &s
		}
		if pos.Bearing != nil {
			h := float64(pos.GetBearing())
			p.Heading = &h
		}

		if prev, ok := out[busID]; ok && prev.RecordedAt.After(p.RecordedAt) {
			continue
		}
		out[busID] = p
	}

	return out
}
