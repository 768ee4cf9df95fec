package handlers

import (
	"net/http"
	"school-eta-service/internal/api/dto"
	"school-eta-service/internal/services"

	"github.com/julienschmidt/httprouter"
)

type ETAHandler struct {
	Engine           *services.ETAEngine
	ProximityChecker *services.ProximityChecker
}

// BusETA handles GET /v1/buses/:bus_id/eta?lat=&lng=&provider=.
func (h *ETAHandler) BusETA(w http.ResponseWriter, r *http.Request) {
	busID := httprouter.ParamsFromContext(r.Context()).ByName("bus_id")

	dest, err := queryCoordinate(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Engine.CalculateBusETA(r.Context(), tenantID(r), busID, dest, r.URL.Query().Get("provider"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewETAResponse(busID, res))
}

// Batch handles POST /v1/eta/batch. Per-bus failures are reported inline and
// never fail the whole request.
func (h *ETAHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchETARequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reqs := make([]services.BusDestination, 0, len(req.Requests))
	for _, item := range req.Requests {
		p := dto.Point{Lat: item.Lat, Lng: item.Lng}
		reqs = append(reqs, services.BusDestination{BusID: item.BusID, Destination: p.Coordinate()})
	}

	results, err := h.Engine.BatchBusETAs(r.Context(), tenantID(r), reqs, req.Provider)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.BatchETAResponse{Results: make([]dto.BatchETAItemResponse, 0, len(results))}
	for _, br := range results {
		item := dto.BatchETAItemResponse{BusID: br.BusID}
		if br.Err != nil {
			item.Error = clientMessage(br.Err)
		} else {
			eta := dto.NewETAResponse(br.BusID, *br.Result)
			item.ETA = &eta
		}
		res.Results = append(res.Results, item)
	}

	writeJSON(w, r, http.StatusOK, res)
}

// EvictCache handles DELETE /v1/buses/:bus_id/eta-cache.
func (h *ETAHandler) EvictCache(w http.ResponseWriter, r *http.Request) {
	busID := httprouter.ParamsFromContext(r.Context()).ByName("bus_id")

	if err := h.Engine.EvictBus(r.Context(), tenantID(r), busID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TripETAs handles GET /v1/trips/:trip_id/etas?provider=.
func (h *ETAHandler) TripETAs(w http.ResponseWriter, r *http.Request) {
	tripID := httprouter.ParamsFromContext(r.Context()).ByName("trip_id")

	etas, err := h.Engine.CalculateTripETAs(r.Context(), tenantID(r), tripID, r.URL.Query().Get("provider"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewTripETAsResponse(etas))
}

// Proximity handles GET /v1/buses/:bus_id/proximity?lat=&lng=&threshold_km=.
func (h *ETAHandler) Proximity(w http.ResponseWriter, r *http.Request) {
	busID := httprouter.ParamsFromContext(r.Context()).ByName("bus_id")

	point, err := queryCoordinate(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	threshold, _, err := queryFloat(r, "threshold_km")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ProximityChecker.Check(r.Context(), tenantID(r), busID, point, threshold)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := dto.ProximityResponse{
		BusID:       busID,
		IsNear:      res.Near,
		Located:     res.Located,
		ThresholdKm: res.ThresholdKm,
	}
	if res.Located {
		d := res.DistanceKm
		out.DistanceKm = &d
	}
	writeJSON(w, r, http.StatusOK, out)
}
