package domain

import (
	"errors"
	"time"
)

var ErrInvalidTimeWindow = errors.New("invalid time window")

// DwellStop is a span where the bus stayed within a small radius.
type DwellStop struct {
	Coordinate Coordinate
	ArrivedAt  time.Time
	DepartedAt time.Time
}

func (d DwellStop) Duration() time.Duration { return d.DepartedAt.Sub(d.ArrivedAt) }

// Playback summarizes recorded positions for a bus over a time window.
type Playback struct {
	BusID       string
	From        time.Time
	To          time.Time
	Points      []Position
	DistanceKm  float64
	Elapsed     time.Duration
	AvgSpeedKmh float64
	MaxSpeedKmh float64
	Stops       []DwellStop
}
