package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"time"
)

// routesAPIURL is the Google Routes API v2 endpoint.
const routesAPIURL = "https://routes.googleapis.com/directions/v2:computeRoutes"

// GoogleBackend implements RoutingBackend using the Google Routes API v2.
type GoogleBackend struct {
	name   string
	apiKey string
	apiURL string
	client *http.Client
}

// NewGoogleBackend creates a backend for the Routes API. apiURL may be empty
// to use the public endpoint.
func NewGoogleBackend(name, apiKey, apiURL string) *GoogleBackend {
	if apiURL == "" {
		apiURL = routesAPIURL
	}
	return &GoogleBackend{
		name:   name,
		apiKey: apiKey,
		apiURL: apiURL,
		client: newHTTPClient(),
	}
}

func (g *GoogleBackend) Name() string { return g.name }

// Route requests a traffic-aware drive. The traffic factor is the live duration
// over the free-flow (static) duration.
func (g *GoogleBackend) Route(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteResult, error) {
	body := routesAPIRequest{
		Origin:            waypoint(origin),
		Destination:       waypoint(destination),
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
		Units:             "METRIC",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("google: marshal request: %w", err)
	}

	req, err := newRequest(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload), map[string]string{
		"X-Goog-Api-Key": g.apiKey,
		// Request only the fields we need to minimize response size and latency.
		"X-Goog-FieldMask": "routes.duration,routes.staticDuration,routes.distanceMeters,routes.polyline.encodedPolyline",
	})
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("google: %w", err)
	}

	var resp routesAPIResponse
	if err := doJSON(g.client, req, &resp); err != nil {
		return ports.RouteResult{}, fmt.Errorf("google: compute routes: %w", err)
	}
	if len(resp.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("google: %w", ErrNoRoute)
	}

	route := resp.Routes[0]

	// Google returns durations as e.g. "123s".
	dur, err := time.ParseDuration(route.Duration)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("google: duration %q: %w", route.Duration, ErrMalformedResponse)
	}

	out := ports.RouteResult{
		DurationSeconds: dur.Seconds(),
		DistanceMeters:  float64(route.DistanceMeters),
		Geometry:        route.Polyline.EncodedPolyline,
	}

	if static, err := time.ParseDuration(route.StaticDuration); err == nil && static > 0 {
		out.TrafficFactor = dur.Seconds() / static.Seconds()
	}

	return out, nil
}

func waypoint(c domain.Coordinate) routesAPIWaypoint {
	return routesAPIWaypoint{
		Location: routesAPILocation{
			LatLng: routesAPILatLng{Latitude: c.Lat, Longitude: c.Lon},
		},
	}
}

// --- JSON types for the Google Routes API v2 ---

type routesAPIRequest struct {
	Origin            routesAPIWaypoint `json:"origin"`
	Destination       routesAPIWaypoint `json:"destination"`
	TravelMode        string            `json:"travelMode"`
	RoutingPreference string            `json:"routingPreference"`
	Units             string            `json:"units"`
}

type routesAPIWaypoint struct {
	Location routesAPILocation `json:"location"`
}

type routesAPILocation struct {
	LatLng routesAPILatLng `json:"latLng"`
}

type routesAPILatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routesAPIResponse struct {
	Routes []routesAPIRoute `json:"routes"`
}

type routesAPIRoute struct {
	DistanceMeters int               `json:"distanceMeters"`
	Duration       string            `json:"duration"`
	StaticDuration string            `json:"staticDuration"`
	Polyline       routesAPIPolyline `json:"polyline"`
}

type routesAPIPolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}
