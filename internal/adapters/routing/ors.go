package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/ports"
	"strings"
)

const orsDefaultBaseURL = "https://api.openrouteservice.org"

// ORSBackend implements RoutingBackend using the OpenRouteService directions endpoint.
//
// The backend is safe for concurrent use.
type ORSBackend struct {
	name    string
	apiKey  string
	baseURL string
	profile string
	client  *http.Client
}

func NewORSBackend(name, apiKey, baseURL, profile string) (*ORSBackend, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = orsDefaultBaseURL
	}
	if profile == "" {
		profile = "driving-car"
	}

	return &ORSBackend{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  newHTTPClient(),
	}, nil
}

func (o *ORSBackend) Name() string { return o.name }

type orsDirectionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type orsDirectionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance *float64 `json:"distance"`
			Duration *float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

func (o *ORSBackend) Route(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteResult, error) {
	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)

	payload, err := json.Marshal(orsDirectionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("ors: marshal directions request: %w", err)
	}

	req, err := newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), map[string]string{
		"Authorization": o.apiKey,
	})
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("ors: %w", err)
	}

	var resp orsDirectionsResponse
	if err := doJSON(o.client, req, &resp); err != nil {
		return ports.RouteResult{}, fmt.Errorf("ors: directions request: %w", err)
	}
	if len(resp.Routes) == 0 {
		return ports.RouteResult{}, fmt.Errorf("ors: %w", ErrNoRoute)
	}

	r := resp.Routes[0]
	// ORS omits summary fields for zero-length routes.
	var meters, seconds float64
	if r.Summary.Distance != nil {
		meters = *r.Summary.Distance
	}
	if r.Summary.Duration != nil {
		seconds = *r.Summary.Duration
	}

	return ports.RouteResult{
		DurationSeconds: seconds,
		DistanceMeters:  meters,
		Geometry:        r.Geometry,
	}, nil
}
