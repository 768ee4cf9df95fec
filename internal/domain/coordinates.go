package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Immutable WGS84 geographic coordinate.
type Coordinate struct {
	Lat float64
	Lon float64
}

// NewCoordinate builds a Coordinate and rejects out-of-range values.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports whether latitude is in [-90, 90] and longitude in [-180, 180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinate) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// String renders "lat,lon" with full precision.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
