package handlers

import (
	"net/http"
	"school-eta-service/internal/api/dto"
	"school-eta-service/internal/services"
	"time"

	"github.com/julienschmidt/httprouter"
)

type PlaybackHandler struct {
	Service *services.PlaybackService
}

// Playback handles GET /v1/buses/:bus_id/playback?from=&to= with RFC 3339 bounds.
func (h *PlaybackHandler) Playback(w http.ResponseWriter, r *http.Request) {
	busID := httprouter.ParamsFromContext(r.Context()).ByName("bus_id")

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
		return
	}

	pb, err := h.Service.Playback(r.Context(), tenantID(r), busID, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewPlaybackResponse(pb))
}
