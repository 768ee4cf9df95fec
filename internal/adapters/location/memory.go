package location

import (
	"context"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"slices"
	"sync"
	"time"
)

// MemoryTracker keeps recorded positions in process, per tenant and bus.
// It backs local runs without a database and the service tests.
type MemoryTracker struct {
	mu   sync.RWMutex
	logs map[string][]domain.Position // tenant/bus -> positions, oldest first
	now  func() time.Time
}

func NewMemoryTracker(now func() time.Time) *MemoryTracker {
	if now == nil {
		now = time.Now
	}
	return &MemoryTracker{logs: map[string][]domain.Position{}, now: now}
}

var (
	_ ports.LocationProvider = (*MemoryTracker)(nil)
	_ ports.TrackingHistory  = (*MemoryTracker)(nil)
)

func trackerKey(tenantID, busID string) string { return tenantID + "/" + busID }

// Record appends a position, keeping the log ordered by RecordedAt.
func (m *MemoryTracker) Record(tenantID string, p domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := trackerKey(tenantID, p.BusID)
	entries := append(m.logs[k], p)
	slices.SortStableFunc(entries, func(a, b domain.Position) int { return a.RecordedAt.Compare(b.RecordedAt) })
	m.logs[k] = entries
}

func (m *MemoryTracker) CurrentPosition(
	ctx context.Context,
	tenantID, busID string,
	maxAge time.Duration,
) (domain.Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.logs[trackerKey(tenantID, busID)]
	if len(entries) == 0 {
		return domain.Position{}, false, nil
	}

	latest := entries[len(entries)-1]
	if !latest.IsFresh(m.now(), maxAge) {
		return domain.Position{}, false, nil
	}
	return latest, true, nil
}

func (m *MemoryTracker) Positions(
	ctx context.Context,
	tenantID, busID string,
	from, to time.Time,
) ([]domain.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Position
	for _, p := range m.logs[trackerKey(tenantID, busID)] {
		if p.RecordedAt.Before(from) || p.RecordedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
