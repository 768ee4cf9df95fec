// Package geo holds the geodesy primitives shared by the ETA engine, the
// routing fallback, the proximity checker and the route optimizer.
//
// Distance functions assume their inputs are valid WGS84 coordinates.
// Callers validate at the boundary with domain.Coordinate.Validate.
package geo

import (
	"school-eta-service/internal/domain"

	"github.com/golang/geo/s2"
)

const (
	// Mean Earth radius (volumetric), in kilometers and miles.
	EarthRadiusKm    = 6371.0
	EarthRadiusMiles = 3959.0

	MilesPerKilometer = 0.621371
)

// Distance returns the great-circle (Haversine) distance between a and b on a
// sphere of the given radius. The result is in the radius's unit.
func Distance(a, b domain.Coordinate, radius float64) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * radius
}

func DistanceKm(a, b domain.Coordinate) float64 { return Distance(a, b, EarthRadiusKm) }

func DistanceMiles(a, b domain.Coordinate) float64 { return Distance(a, b, EarthRadiusMiles) }

// PathDistanceKm sums consecutive-pair distances along points.
func PathDistanceKm(points []domain.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

func KmToMiles(km float64) float64 { return km * MilesPerKilometer }

func MilesToKm(mi float64) float64 { return mi / MilesPerKilometer }

func MpsToKmh(mps float64) float64 { return mps * 3.6 }

func KmhToMps(kmh float64) float64 { return kmh / 3.6 }

// TravelMinutes is the time to cover distanceKm at a constant speedKmh.
// A non-positive speed yields zero.
func TravelMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceKm / speedKmh * 60
}
