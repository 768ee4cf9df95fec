package api

import (
	"net/http"
	"school-eta-service/internal/api/handlers"
	"school-eta-service/internal/services"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Engine         *services.ETAEngine
	Proximity      *services.ProximityChecker
	Optimizer      *services.RouteOptimizer
	Playback       *services.PlaybackService
	StreamInterval time.Duration

	// Sentry enables panic capture; set it only once sentry.Init has run.
	Sentry bool
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	router := httprouter.New()

	eta := &handlers.ETAHandler{Engine: d.Engine, ProximityChecker: d.Proximity}
	routes := &handlers.RouteHandler{Optimizer: d.Optimizer}
	playback := &handlers.PlaybackHandler{Service: d.Playback}
	stream := &handlers.StreamHandler{Engine: d.Engine, Interval: d.StreamInterval}

	router.HandlerFunc(http.MethodGet, "/v1/health", handlers.Health)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.HandlerFunc(http.MethodGet, "/v1/buses/:bus_id/eta", requireTenant(eta.BusETA))
	router.HandlerFunc(http.MethodGet, "/v1/buses/:bus_id/eta/stream", requireTenant(stream.Stream))
	router.HandlerFunc(http.MethodDelete, "/v1/buses/:bus_id/eta-cache", requireTenant(eta.EvictCache))
	router.HandlerFunc(http.MethodGet, "/v1/buses/:bus_id/proximity", requireTenant(eta.Proximity))
	router.HandlerFunc(http.MethodGet, "/v1/buses/:bus_id/playback", requireTenant(playback.Playback))
	router.HandlerFunc(http.MethodPost, "/v1/eta/batch", requireTenant(eta.Batch))
	router.HandlerFunc(http.MethodGet, "/v1/trips/:trip_id/etas", requireTenant(eta.TripETAs))
	router.HandlerFunc(http.MethodPost, "/v1/optimize-route", requireTenant(routes.Optimize))
	router.HandlerFunc(http.MethodPost, "/v1/routes/:route_id/optimize", requireTenant(routes.OptimizeStored))

	var h http.Handler = router
	if d.Sentry {
		h = sentryMiddleware(h)
	}
	return requestContext(loggingMiddleware(securityHeaders(h)))
}
