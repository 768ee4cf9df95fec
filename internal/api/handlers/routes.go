package handlers

import (
	"net/http"
	"school-eta-service/internal/api/dto"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/services"

	"github.com/julienschmidt/httprouter"
)

type RouteHandler struct {
	Optimizer *services.RouteOptimizer
}

// Optimize handles POST /v1/optimize-route for an ad-hoc list of stops.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stops := make([]domain.RouteStop, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, s.RouteStop())
	}

	var dest *domain.Coordinate
	if req.Destination != nil {
		if req.Destination.Lat == nil || req.Destination.Lng == nil {
			writeError(w, r, http.StatusBadRequest, "destination requires lat and lng")
			return
		}
		c := req.Destination.Coordinate()
		dest = &c
	}

	var prior *domain.RouteMetrics
	if req.Prior != nil {
		prior = &domain.RouteMetrics{
			DistanceKm:      req.Prior.DistanceKm,
			DurationMinutes: req.Prior.DurationMinutes,
		}
	}

	res, err := h.Optimizer.Optimize(stops, dest, prior)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewOptimizeResponse(res))
}

// OptimizeStored handles POST /v1/routes/:route_id/optimize?commit=true.
func (h *RouteHandler) OptimizeStored(w http.ResponseWriter, r *http.Request) {
	routeID := httprouter.ParamsFromContext(r.Context()).ByName("route_id")
	commit := r.URL.Query().Get("commit") == "true"

	res, err := h.Optimizer.OptimizeStoredRoute(r.Context(), tenantID(r), routeID, commit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := dto.NewOptimizeResponse(res)
	out.Committed = commit && !res.NothingToOptimize
	writeJSON(w, r, http.StatusOK, out)
}
