package services

import (
	"context"
	"errors"
	"math"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	speed := 10.0 // m/s

	points := []domain.Position{
		{Coordinate: domain.Coordinate{Lat: 37.000, Lon: -122.0}, RecordedAt: t0, Speed: &speed},
		// parked at a stop for 3 minutes
		{Coordinate: domain.Coordinate{Lat: 37.010, Lon: -122.0}, RecordedAt: t0.Add(2 * time.Minute)},
		{Coordinate: domain.Coordinate{Lat: 37.0101, Lon: -122.0}, RecordedAt: t0.Add(3 * time.Minute)},
		{Coordinate: domain.Coordinate{Lat: 37.0102, Lon: -122.0}, RecordedAt: t0.Add(5 * time.Minute)},
		{Coordinate: domain.Coordinate{Lat: 37.020, Lon: -122.0}, RecordedAt: t0.Add(7 * time.Minute)},
	}

	pb := Summarize("bus-7", t0, t0.Add(time.Hour), points)

	coords := make([]domain.Coordinate, len(points))
	for i, p := range points {
		coords[i] = p.Coordinate
	}
	if want := geo.PathDistanceKm(coords); math.Abs(pb.DistanceKm-want) > 1e-9 {
		t.Errorf("distance = %v, want %v", pb.DistanceKm, want)
	}
	if pb.Elapsed != 7*time.Minute {
		t.Errorf("elapsed = %v, want 7m", pb.Elapsed)
	}
	if want := pb.DistanceKm / (7.0 / 60); math.Abs(pb.AvgSpeedKmh-want) > 1e-9 {
		t.Errorf("avg speed = %v, want %v", pb.AvgSpeedKmh, want)
	}
	if pb.MaxSpeedKmh < 36 {
		t.Errorf("max speed = %v, want at least the recorded 36 km/h", pb.MaxSpeedKmh)
	}

	if len(pb.Stops) != 1 {
		t.Fatalf("dwell stops = %d, want 1", len(pb.Stops))
	}
	if d := pb.Stops[0]; !d.ArrivedAt.Equal(t0.Add(2*time.Minute)) || d.Duration() != 3*time.Minute {
		t.Errorf("dwell = %+v, want 3m from 07:02", d)
	}
}

func TestPlaybackEmptyWindow(t *testing.T) {
	f := newFixture(nil)
	s := NewPlaybackService(f.tracker)
	now := f.clock.Now()

	_, err := s.Playback(context.Background(), tenant, "bus-7", now.Add(-time.Hour), now)
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Fatalf("err = %v, want ErrLocationUnavailable", err)
	}

	_, err = s.Playback(context.Background(), tenant, "bus-7", now, now.Add(-time.Hour))
	if !errors.Is(err, domain.ErrInvalidTimeWindow) {
		t.Fatalf("err = %v, want ErrInvalidTimeWindow", err)
	}
}

func TestPlaybackReadsHistory(t *testing.T) {
	f := newFixture(nil)
	f.locate("bus-7", busPos, 10*time.Minute)
	f.locate("bus-7", stopA, 5*time.Minute)
	now := f.clock.Now()

	pb, err := NewPlaybackService(f.tracker).Playback(context.Background(), tenant, "bus-7", now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pb.Points) != 2 {
		t.Errorf("points = %d, want 2", len(pb.Points))
	}
	if pb.DistanceKm <= 1 {
		t.Errorf("distance = %v, want about 1.1 km", pb.DistanceKm)
	}
}
