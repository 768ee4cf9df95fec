package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"school-eta-service/internal/api/dto"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"
	"school-eta-service/internal/services"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const DefaultStreamInterval = 15 * time.Second

const streamWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes a bus's ETA over a websocket at a fixed interval
// until the client disconnects.
type StreamHandler struct {
	Engine   *services.ETAEngine
	Interval time.Duration
}

type streamMessage struct {
	ETA   *dto.ETAResponse `json:"eta,omitempty"`
	Error string           `json:"error,omitempty"`
}

// Stream handles GET /v1/buses/:bus_id/eta/stream?lat=&lng=&provider=.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	busID := httprouter.ParamsFromContext(r.Context()).ByName("bus_id")
	tenant := tenantID(r)
	provider := r.URL.Query().Get("provider")

	dest, err := queryCoordinate(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: req_id=%s err=%v", obs.RequestID(r.Context()), err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(conn, cancel)

	interval := h.Interval
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn, tenant, busID, dest, provider); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) push(
	ctx context.Context,
	conn *websocket.Conn,
	tenant, busID string,
	dest domain.Coordinate,
	provider string,
) error {
	var msg streamMessage

	res, err := h.Engine.CalculateBusETA(ctx, tenant, busID, dest, provider)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg.Error = clientMessage(err)
	} else {
		eta := dto.NewETAResponse(busID, res)
		msg.ETA = &eta
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readPump drains client frames and cancels the stream once the peer goes away.
func readPump(c *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
