package dto

import "school-eta-service/internal/domain"

type Point struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

func NewPoint(c domain.Coordinate) Point {
	lat, lng := c.Lat, c.Lon
	return Point{Lat: &lat, Lng: &lng}
}

func (p Point) Coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: *p.Lat, Lon: *p.Lng}
}

type Stop struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name"`
	Lat      *float64 `json:"lat" validate:"required,latitude"`
	Lng      *float64 `json:"lng" validate:"required,longitude"`
	Sequence int      `json:"sequence"`
}

func NewStop(s domain.RouteStop) Stop {
	lat, lng := s.Coordinate.Lat, s.Coordinate.Lon
	return Stop{ID: s.ID, Name: s.Name, Lat: &lat, Lng: &lng, Sequence: s.Sequence}
}

func (s Stop) RouteStop() domain.RouteStop {
	return domain.RouteStop{
		ID:         s.ID,
		Name:       s.Name,
		Coordinate: domain.Coordinate{Lat: *s.Lat, Lon: *s.Lng},
		Sequence:   s.Sequence,
	}
}

type PriorMetrics struct {
	DistanceKm      float64 `json:"distance_km" validate:"gte=0"`
	DurationMinutes float64 `json:"duration_minutes" validate:"gte=0"`
}

type OptimizeRequest struct {
	Stops       []Stop        `json:"stops" validate:"max=500,dive"`
	Destination *Point        `json:"destination"`
	Prior       *PriorMetrics `json:"prior"`
}

type OptimizeResponse struct {
	OrderedStops             []Stop  `json:"ordered_stops"`
	TotalDistanceKm          float64 `json:"total_distance_km"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
	DistanceSavedKm          float64 `json:"distance_saved_km"`
	TimeSavedMinutes         float64 `json:"time_saved_minutes"`
	DistanceSavedPercent     float64 `json:"distance_saved_percent"`
	TimeSavedPercent         float64 `json:"time_saved_percent"`
	NothingToOptimize        bool    `json:"nothing_to_optimize,omitempty"`
	Committed                bool    `json:"committed,omitempty"`
}

func NewOptimizeResponse(r domain.OptimizationResult) OptimizeResponse {
	res := OptimizeResponse{
		OrderedStops:             make([]Stop, 0, len(r.OrderedStops)),
		TotalDistanceKm:          r.TotalDistanceKm,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		DistanceSavedKm:          r.DistanceSavedKm,
		TimeSavedMinutes:         r.TimeSavedMinutes,
		DistanceSavedPercent:     r.DistanceSavedPercent,
		TimeSavedPercent:         r.TimeSavedPercent,
		NothingToOptimize:        r.NothingToOptimize,
	}
	for _, s := range r.OrderedStops {
		res.OrderedStops = append(res.OrderedStops, NewStop(s))
	}
	return res
}
