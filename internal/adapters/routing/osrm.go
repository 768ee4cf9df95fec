package routing

import (
	"context"
	"fmt"
	"net/http"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"strings"
)

const osrmDefaultBaseURL = "https://router.project-osrm.org"

// OSRMBackend implements RoutingBackend against an OSRM /route/v1 service.
// The public demo server needs no credentials, which makes it the default provider.
type OSRMBackend struct {
	name    string
	baseURL string
	profile string
	client  *http.Client
}

func NewOSRMBackend(name, baseURL, profile string) *OSRMBackend {
	if baseURL == "" {
		baseURL = osrmDefaultBaseURL
	}
	if profile == "" {
		profile = "driving"
	}
	return &OSRMBackend{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  newHTTPClient(),
	}
}

func (o *OSRMBackend) Name() string { return o.name }

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRMBackend) Route(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteResult, error) {
	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s;%s",
		o.baseURL, o.profile,
		lonLatPath(origin.Lon, origin.Lat),
		lonLatPath(destination.Lon, destination.Lat),
	)

	req, err := newRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("osrm: %w", err)
	}
	q := req.URL.Query()
	q.Set("overview", "full")
	q.Set("geometries", "polyline")
	req.URL.RawQuery = q.Encode()

	var resp osrmResponse
	if err := doJSON(o.client, req, &resp); err != nil {
		return ports.RouteResult{}, fmt.Errorf("osrm: route request: %w", err)
	}

	if resp.Code != "Ok" {
		return ports.RouteResult{}, fmt.Errorf("osrm: code %q: %s: %w", resp.Code, resp.Message, ErrNoRoute)
	}
	if len(resp.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("osrm: %w", ErrNoRoute)
	}

	r := resp.Routes[0]
	return ports.RouteResult{
		DurationSeconds: r.Duration,
		DistanceMeters:  r.Distance,
		Geometry:        r.Geometry,
	}, nil
}
