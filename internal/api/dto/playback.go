package dto

import (
	"school-eta-service/internal/domain"
	"school-eta-service/internal/geo"
	"time"
)

type PlaybackPoint struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
}

type DwellStop struct {
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	ArrivedAt       time.Time `json:"arrived_at"`
	DepartedAt      time.Time `json:"departed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

type PlaybackResponse struct {
	BusID          string          `json:"bus_id"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	DistanceKm     float64         `json:"distance_km"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	AvgSpeedKmh    float64         `json:"avg_speed_kmh"`
	MaxSpeedKmh    float64         `json:"max_speed_kmh"`
	Points         []PlaybackPoint `json:"points"`
	Stops          []DwellStop     `json:"stops"`
}

func NewPlaybackResponse(pb *domain.Playback) PlaybackResponse {
	res := PlaybackResponse{
		BusID:          pb.BusID,
		From:           pb.From,
		To:             pb.To,
		DistanceKm:     pb.DistanceKm,
		ElapsedSeconds: pb.Elapsed.Seconds(),
		AvgSpeedKmh:    pb.AvgSpeedKmh,
		MaxSpeedKmh:    pb.MaxSpeedKmh,
		Points:         make([]PlaybackPoint, 0, len(pb.Points)),
		Stops:          make([]DwellStop, 0, len(pb.Stops)),
	}

	for _, p := range pb.Points {
		pt := PlaybackPoint{
			Lat:        p.Coordinate.Lat,
			Lng:        p.Coordinate.Lon,
			RecordedAt: p.RecordedAt,
			Heading:    p.Heading,
		}
		if p.Speed != nil {
			kmh := geo.MpsToKmh(*p.Speed)
			pt.SpeedKmh = &kmh
		}
		res.Points = append(res.Points, pt)
	}

	for _, d := range pb.Stops {
		res.Stops = append(res.Stops, DwellStop{
			Lat:             d.Coordinate.Lat,
			Lng:             d.Coordinate.Lon,
			ArrivedAt:       d.ArrivedAt,
			DepartedAt:      d.DepartedAt,
			DurationSeconds: d.Duration().Seconds(),
		})
	}

	return res
}
