package routing

import (
	"context"
	"fmt"
	"net/http"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"strings"
)

const mapboxDefaultBaseURL = "https://api.mapbox.com"

// MapboxBackend implements RoutingBackend using the Mapbox Directions API v5.
type MapboxBackend struct {
	name        string
	accessToken string
	baseURL     string
	profile     string
	client      *http.Client
}

func NewMapboxBackend(name, accessToken, baseURL, profile string) *MapboxBackend {
	if baseURL == "" {
		baseURL = mapboxDefaultBaseURL
	}
	if profile == "" {
		profile = "driving-traffic"
	}
	return &MapboxBackend{
		name:        name,
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		profile:     profile,
		client:      newHTTPClient(),
	}
}

func (m *MapboxBackend) Name() string { return m.name }

type mapboxResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration        float64 `json:"duration"`
		DurationTypical float64 `json:"duration_typical"`
		Distance        float64 `json:"distance"`
		Geometry        string  `json:"geometry"`
	} `json:"routes"`
}

func (m *MapboxBackend) Route(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteResult, error) {
	endpoint := fmt.Sprintf(
		"%s/directions/v5/mapbox/%s/%s;%s",
		m.baseURL, m.profile,
		lonLatPath(origin.Lon, origin.Lat),
		lonLatPath(destination.Lon, destination.Lat),
	)

	req, err := newRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("mapbox: %w", err)
	}
	q := req.URL.Query()
	q.Set("access_token", m.accessToken)
	q.Set("geometries", "polyline")
	q.Set("overview", "full")
	req.URL.RawQuery = q.Encode()

	var resp mapboxResponse
	if err := doJSON(m.client, req, &resp); err != nil {
		return ports.RouteResult{}, fmt.Errorf("mapbox: directions request: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("mapbox: code %q: %s: %w", resp.Code, resp.Message, ErrNoRoute)
	}

	r := resp.Routes[0]
	out := ports.RouteResult{
		DurationSeconds: r.Duration,
		DistanceMeters:  r.Distance,
		Geometry:        r.Geometry,
	}
	if r.DurationTypical > 0 {
		out.TrafficFactor = r.Duration / r.DurationTypical
	}
	return out, nil
}
