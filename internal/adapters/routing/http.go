package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoRoute is returned when a backend answers but finds no route.
	ErrNoRoute = errors.New("no route found")
	// ErrMalformedResponse is returned when a backend answer cannot be used.
	ErrMalformedResponse = errors.New("malformed routing response")
)

const (
	// httpMaxIdleConns is the maximum number of idle (keep-alive) connections
	// kept in the transport pool across all hosts.
	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a backend response body is read.
	maxResponseBytes = 4 << 20
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// newHTTPClient returns a client without its own timeout; every call is bounded
// by the context deadline set in Adapter.ComputeRoute.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        httpMaxIdleConns,
			MaxIdleConnsPerHost: httpMaxIdleConns,
			IdleConnTimeout:     httpIdleConnTimeout,
		},
	}
}

func newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
	headers map[string]string,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// doJSON performs a single attempt and decodes a 2xx JSON body into out.
// There is no retry: a failed call goes straight to the Haversine fallback.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(body)
		return &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	return nil
}

// failureReason buckets an error for metrics labels.
func failureReason(err error) string {
	var he *httpStatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoRoute):
		return "no_route"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &he):
		return "http_status"
	default:
		return "transport"
	}
}

func lonLatPath(lon, lat float64) string {
	return fmt.Sprintf("%.6f,%.6f", lon, lat)
}
