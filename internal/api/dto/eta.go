package dto

import (
	"school-eta-service/internal/domain"
	"time"
)

type ETAResponse struct {
	BusID            string    `json:"bus_id,omitempty"`
	Success          bool      `json:"success"`
	ETAMinutes       float64   `json:"eta_minutes"`
	DistanceKm       float64   `json:"distance_km"`
	TrafficFactor    float64   `json:"traffic_factor"`
	Polyline         string    `json:"polyline,omitempty"`
	Provider         string    `json:"provider"`
	CalculatedAt     time.Time `json:"calculated_at"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

func NewETAResponse(busID string, r domain.ETAResult) ETAResponse {
	return ETAResponse{
		BusID:            busID,
		Success:          r.Success,
		ETAMinutes:       r.DurationMinutes,
		DistanceKm:       r.DistanceKm,
		TrafficFactor:    r.TrafficFactor,
		Polyline:         r.Polyline,
		Provider:         r.Provider,
		CalculatedAt:     r.CalculatedAt,
		EstimatedArrival: r.EstimatedArrival,
	}
}

type BatchETAItem struct {
	BusID string   `json:"bus_id" validate:"required"`
	Lat   *float64 `json:"lat" validate:"required,latitude"`
	Lng   *float64 `json:"lng" validate:"required,longitude"`
}

type BatchETARequest struct {
	Requests []BatchETAItem `json:"requests" validate:"required,min=1,max=200,dive"`
	Provider string         `json:"provider"`
}

type BatchETAItemResponse struct {
	BusID string       `json:"bus_id"`
	ETA   *ETAResponse `json:"eta,omitempty"`
	Error string       `json:"error,omitempty"`
}

type BatchETAResponse struct {
	Results []BatchETAItemResponse `json:"results"`
}

type StopETAResponse struct {
	StopID           string    `json:"stop_id"`
	Name             string    `json:"name"`
	Sequence         int       `json:"sequence"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	LegMinutes       float64   `json:"leg_minutes"`
	LegDistanceKm    float64   `json:"leg_distance_km"`
	Provider         string    `json:"provider"`
	ETAMinutes       float64   `json:"eta_minutes"`
	DistanceKm       float64   `json:"distance_km"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

type TripETAsResponse struct {
	TripID       string            `json:"trip_id"`
	BusID        string            `json:"bus_id"`
	Origin       Point             `json:"origin"`
	CalculatedAt time.Time         `json:"calculated_at"`
	ETAs         []StopETAResponse `json:"etas"`
}

func NewTripETAsResponse(t *domain.TripETAs) TripETAsResponse {
	res := TripETAsResponse{
		TripID:       t.TripID,
		BusID:        t.BusID,
		Origin:       NewPoint(t.Origin.Coordinate),
		CalculatedAt: t.CalculatedAt,
		ETAs:         make([]StopETAResponse, 0, len(t.Stops)),
	}
	for _, s := range t.Stops {
		res.ETAs = append(res.ETAs, StopETAResponse{
			StopID:           s.Stop.ID,
			Name:             s.Stop.Name,
			Sequence:         s.Stop.Sequence,
			Lat:              s.Stop.Coordinate.Lat,
			Lng:              s.Stop.Coordinate.Lon,
			LegMinutes:       s.Leg.DurationMinutes,
			LegDistanceKm:    s.Leg.DistanceKm,
			Provider:         s.Leg.Provider,
			ETAMinutes:       s.CumulativeMinutes,
			DistanceKm:       s.CumulativeDistanceKm,
			EstimatedArrival: s.EstimatedArrival,
		})
	}
	return res
}

type ProximityResponse struct {
	BusID       string   `json:"bus_id"`
	IsNear      bool     `json:"is_near"`
	Located     bool     `json:"located"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	ThresholdKm float64  `json:"threshold_km"`
}
