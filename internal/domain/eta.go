package domain

import "time"

const (
	// FallbackProvider names results produced by the local Haversine estimate.
	FallbackProvider = "haversine_fallback"

	// DefaultFallbackSpeedKmh is the assumed average speed of a school bus in urban traffic.
	DefaultFallbackSpeedKmh = 30.0

	DefaultTrafficFactor = 1.0
)

// ETAResult is the travel estimate between two points.
// DurationMinutes and DistanceKm are never negative.
type ETAResult struct {
	Success          bool
	DurationMinutes  float64
	DistanceKm       float64
	TrafficFactor    float64
	Polyline         string
	Provider         string
	CalculatedAt     time.Time
	EstimatedArrival time.Time
}

// IsFallback reports whether the result came from the local estimate rather than a routing backend.
func (r ETAResult) IsFallback() bool { return r.Provider == FallbackProvider }

// Duration returns DurationMinutes as a time.Duration.
func (r ETAResult) Duration() time.Duration {
	return time.Duration(r.DurationMinutes * float64(time.Minute))
}

// StopETA is the estimated arrival at one stop of a trip, computed leg by leg.
type StopETA struct {
	Stop                 RouteStop
	Leg                  ETAResult
	CumulativeMinutes    float64
	CumulativeDistanceKm float64
	EstimatedArrival     time.Time
}

// TripETAs is the sequence of per-stop estimates for a trip.
type TripETAs struct {
	TripID       string
	BusID        string
	Origin       Position
	Stops        []StopETA
	CalculatedAt time.Time
}
