package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"school-eta-service/internal/adapters/cache"
	"school-eta-service/internal/adapters/location"
	"school-eta-service/internal/adapters/repositories"
	"school-eta-service/internal/adapters/routing"
	"school-eta-service/internal/api"
	"school-eta-service/internal/config"
	"school-eta-service/internal/platform/db"
	"school-eta-service/internal/platform/report"
	"school-eta-service/internal/ports"
	"school-eta-service/internal/services"
	"strconv"
	"syscall"
	"time"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	memoryCacheSize     = 10_000
	gtfsRefreshEvery    = 15 * time.Second
	shutdownGracePeriod = 15 * time.Second
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	reporter, err := report.NewReporter(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		log.Printf("sentry disabled: %v", err)
	}
	defer reporter.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := routing.NewRegistryFromConfig(cfg.Routing)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("routing providers=%v default=%s", registry.Names(), registry.DefaultName())

	router := routing.NewAdapter(registry,
		routing.WithTimeout(cfg.RoutingTimeout),
		routing.WithFallbackSpeed(cfg.FallbackSpeedKmh),
		routing.WithReporter(reporter),
	)

	var conn *sql.DB
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
	}

	etaCache, closeCache := newETACache(ctx, cfg)
	defer closeCache()

	locations, history := newLocationSources(cfg, conn)

	// trips stays a nil interface without a database so services can report it.
	var trips ports.TripRepository
	if conn != nil {
		trips = repositories.NewPostgresTripRepository(conn)
	}

	engine := services.NewETAEngine(locations, router, etaCache, trips,
		services.WithLocationMaxAge(cfg.LocationMaxAge),
		services.WithCacheTTL(cfg.ETACacheTTL),
	)

	handler := api.NewRouter(api.Deps{
		Engine:    engine,
		Proximity: services.NewProximityChecker(locations, services.WithProximityMaxAge(cfg.LocationMaxAge)),
		Optimizer: services.NewRouteOptimizer(trips, cfg.FallbackSpeedKmh),
		Playback:  services.NewPlaybackService(history),
		Sentry:    reporter.Enabled(),
	})

	// WriteTimeout is left unset so websocket ETA streams are not cut off.
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=%s env=%s version=%s", srv.Addr, cfg.Env, version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// newETACache picks Redis when REDIS_URL is set and the in-process LRU otherwise.
func newETACache(ctx context.Context, cfg *config.Config) (ports.ETACache, func()) {
	if cfg.RedisURL == "" {
		log.Printf("eta cache=memory size=%d", memoryCacheSize)
		return cache.NewMemoryETACache(memoryCacheSize), func() {}
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("eta cache=redis")
	return cache.NewRedisETACache(rdb), func() { _ = rdb.Close() }
}

// newLocationSources chooses where current positions and playback history
// come from. A GTFS-realtime feed wins for live positions; history always
// needs the tracking log, falling back to an in-process tracker.
func newLocationSources(cfg *config.Config, conn *sql.DB) (ports.LocationProvider, ports.TrackingHistory) {
	var history ports.TrackingHistory
	var live ports.LocationProvider

	if conn != nil {
		logs := repositories.NewPostgresTrackingLog(conn)
		history, live = logs, logs
	} else {
		log.Println("DATABASE_URL not set; using in-memory tracking (no persisted history)")
		tracker := location.NewMemoryTracker(time.Now)
		history, live = tracker, tracker
	}

	if cfg.GTFSRTVehiclesURL != "" {
		log.Printf("locations=gtfs-rt url=%s refresh=%s", cfg.GTFSRTVehiclesURL, gtfsRefreshEvery)
		live = location.NewGTFSRTLocationProvider(cfg.GTFSRTVehiclesURL, gtfsRefreshEvery, time.Now)
	}

	return live, history
}
