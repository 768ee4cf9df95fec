package services

import (
	"context"
	"fmt"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/ports"
	"time"
)

const (
	// A dwell is a run of points within DwellRadiusKm of its first point
	// lasting at least MinDwell.
	DwellRadiusKm = 0.05
	MinDwell      = 2 * time.Minute
)

// PlaybackService replays recorded positions of a bus.
type PlaybackService struct {
	history ports.TrackingHistory
}

func NewPlaybackService(history ports.TrackingHistory) *PlaybackService {
	return &PlaybackService{history: history}
}

// Playback summarizes the positions recorded for busID in [from, to].
// An empty window yields ErrLocationUnavailable.
func (s *PlaybackService) Playback(
	ctx context.Context,
	tenantID, busID string,
	from, to time.Time,
) (_ *domain.Playback, err error) {
	defer obs.Time(ctx, "playback.Playback")(&err)

	if !to.After(from) {
		return nil, fmt.Errorf("playback: %w: from %s is not before to %s",
			domain.ErrInvalidTimeWindow, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	points, err := s.history.Positions(ctx, tenantID, busID, from, to)
	if err != nil {
		return nil, fmt.Errorf("playback: bus %q: %w", busID, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("playback: bus %q: no positions in window: %w", busID, domain.ErrLocationUnavailable)
	}

	return Summarize(busID, from, to, points), nil
}

// Summarize computes distance, speeds and dwell stops over points, which must
// be ordered oldest first.
func Summarize(busID string, from, to time.Time, points []domain.Position) *domain.Playback {
	pb := &domain.Playback{
		BusID:  busID,
		From:   from,
		To:     to,
		Points: points,
		Stops:  []domain.DwellStop{},
	}
	if len(points) == 0 {
		return pb
	}

	for i, p := range points {
		if p.Speed != nil {
			pb.MaxSpeedKmh = max(pb.MaxSpeedKmh, geo.MpsToKmh(*p.Speed))
		}
		if i == 0 {
			continue
		}

		prev := points[i-1]
		km := geo.DistanceKm(prev.Coordinate, p.Coordinate)
		pb.DistanceKm += km

		// derive speed for segments whose end point has no recorded speed
		if dt := p.RecordedAt.Sub(prev.RecordedAt); p.Speed == nil && dt > 0 {
			pb.MaxSpeedKmh = max(pb.MaxSpeedKmh, km/dt.Hours())
		}
	}

	pb.Elapsed = points[len(points)-1].RecordedAt.Sub(points[0].RecordedAt)
	if pb.Elapsed > 0 {
		pb.AvgSpeedKmh = pb.DistanceKm / pb.Elapsed.Hours()
	}

	pb.Stops = dwellStops(points)
	return pb
}

func dwellStops(points []domain.Position) []domain.DwellStop {
	out := []domain.DwellStop{}

	for i := 0; i < len(points); {
		anchor := points[i]

		j := i + 1
		for j < len(points) && geo.DistanceKm(anchor.Coordinate, points[j].Coordinate) <= DwellRadiusKm {
			j++
		}

		last := points[j-1]
		if last.RecordedAt.Sub(anchor.RecordedAt) >= MinDwell {
			out = append(out, domain.DwellStop{
				Coordinate: anchor.Coordinate,
				ArrivedAt:  anchor.RecordedAt,
				DepartedAt: last.RecordedAt,
			})
			i = j
			continue
		}
		i++
	}

	return out
}
