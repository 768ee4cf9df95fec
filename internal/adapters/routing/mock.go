package routing

import (
	"context"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"sync/atomic"
)

type MockPair struct {
	From, To domain.Coordinate
	Meters   float64
	Seconds  float64
}

// MockBackend answers from a fixed table of origin/destination pairs and
// fails for any pair it does not know. Err, when set, fails every call.
type MockBackend struct {
	name  string
	m     map[[2]domain.Coordinate]ports.RouteResult
	Err   error
	calls atomic.Int64
}

func NewMockBackend(name string, pairs []MockPair) *MockBackend {
	m := make(map[[2]domain.Coordinate]ports.RouteResult, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinate{p.From, p.To}] = ports.RouteResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockBackend{name: name, m: m}
}

func (b *MockBackend) Name() string { return b.name }

func (b *MockBackend) Calls() int { return int(b.calls.Load()) }

func (b *MockBackend) Route(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteResult, error) {
	b.calls.Add(1)
	if b.Err != nil {
		return ports.RouteResult{}, b.Err
	}
	r, ok := b.m[[2]domain.Coordinate{origin, destination}]
	if !ok {
		return ports.RouteResult{}, fmt.Errorf("missing pair %v -> %v: %w", origin, destination, ErrNoRoute)
	}
	return r, nil
}
