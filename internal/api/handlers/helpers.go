package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"school-eta-service/internal/api/dto"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"strconv"
)

// maxBodyBytes caps request bodies accepted by POST endpoints.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: req_id=%s method=%s path=%s err=%v",
			obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors onto an HTTP status and a client-facing
// message. Unrecognized errors become a 500 without leaking details.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrInvalidTimeWindow):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrLocationUnavailable):
		return http.StatusNotFound, "Bus location not available"
	case errors.Is(err, domain.ErrRouteHasNoStops):
		return http.StatusUnprocessableEntity, "Route has no stops defined"
	case errors.Is(err, domain.ErrInvalidRoute):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrTripNotFound):
		return http.StatusNotFound, "trip not found"
	case errors.Is(err, domain.ErrRouteNotFound):
		return http.StatusNotFound, "route not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: req_id=%s method=%s path=%s err=%v",
			obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeError(w, r, status, msg)
}

func clientMessage(err error) string {
	_, msg := errorStatus(err)
	return msg
}

// decodeJSON reads a size-limited body into v and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return dto.Validate(v)
}

func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
	return v, true, nil
}

// queryCoordinate reads the lat and lng query parameters. Both are required.
func queryCoordinate(r *http.Request) (domain.Coordinate, error) {
	lat, ok, err := queryFloat(r, "lat")
	if err != nil {
		return domain.Coordinate{}, err
	}
	if !ok {
		return domain.Coordinate{}, errors.New("lat is required")
	}

	lng, ok, err := queryFloat(r, "lng")
	if err != nil {
		return domain.Coordinate{}, err
	}
	if !ok {
		return domain.Coordinate{}, errors.New("lng is required")
	}

	return domain.NewCoordinate(lat, lng)
}

func tenantID(r *http.Request) string { return obs.TenantID(r.Context()) }
