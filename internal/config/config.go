// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// ProviderConfig describes one routing backend.
type ProviderConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Kind    string `yaml:"kind" validate:"required,oneof=osrm google mapbox ors"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	APIKey  string `yaml:"api_key"`
	Profile string `yaml:"profile"`
}

// RoutingConfig is the shape of ROUTING_PROVIDERS_FILE.
type RoutingConfig struct {
	Default   string           `yaml:"default"`
	Providers []ProviderConfig `yaml:"providers" validate:"dive"`
}

// Config holds all runtime configuration.
type Config struct {
	Env  string `validate:"required"`
	Port int    `validate:"gte=1,lte=65535"`

	DatabaseURL       string
	RedisURL          string
	GTFSRTVehiclesURL string `validate:"omitempty,url"`
	SentryDSN         string

	ETACacheTTL      time.Duration `validate:"gt=0,lte=5m"`
	LocationMaxAge   time.Duration `validate:"gt=0"`
	RoutingTimeout   time.Duration `validate:"gte=1s,lte=10s"`
	FallbackSpeedKmh float64       `validate:"gt=0,lte=120"`

	Routing RoutingConfig
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := &Config{
		Env:               Get("APP_ENV", "development"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		GTFSRTVehiclesURL: strings.TrimSpace(os.Getenv("GTFSRT_VEHICLE_POSITIONS_URL")),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
	}

	var errs []error

	port, err := strconv.Atoi(Get("PORT", "8080"))
	if err != nil {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be a valid integer"})
	}
	cfg.Port = port

	speed, err := strconv.ParseFloat(Get("FALLBACK_SPEED_KMH", "30"), 64)
	if err != nil {
		errs = append(errs, &ConfigError{Field: "FALLBACK_SPEED_KMH", Message: "must be a number"})
	}
	cfg.FallbackSpeedKmh = speed

	cfg.ETACacheTTL = parseDurationEnv("ETA_CACHE_TTL", 5*time.Minute)
	cfg.LocationMaxAge = parseDurationEnv("LOCATION_MAX_AGE", 60*time.Minute)
	cfg.RoutingTimeout = parseDurationEnv("ROUTING_TIMEOUT", 4*time.Second)

	if path := os.Getenv("ROUTING_PROVIDERS_FILE"); path != "" {
		rc, err := LoadRoutingFile(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Routing = *rc
		}
	} else {
		cfg.Routing = routingFromEnv()
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRoutingFile parses a YAML provider list.
func LoadRoutingFile(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "ROUTING_PROVIDERS_FILE", Message: err.Error()}
	}

	var rc RoutingConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, &ConfigError{Field: "ROUTING_PROVIDERS_FILE", Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	return &rc, nil
}

// routingFromEnv builds the provider list from per-provider API key variables.
// OSRM needs no key and is always present as the default.
func routingFromEnv() RoutingConfig {
	rc := RoutingConfig{
		Default: Get("ROUTING_DEFAULT_PROVIDER", "osrm"),
		Providers: []ProviderConfig{
			{Name: "osrm", Kind: "osrm", BaseURL: Get("OSRM_BASE_URL", "https://router.project-osrm.org")},
		},
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		rc.Providers = append(rc.Providers, ProviderConfig{Name: "google", Kind: "google", APIKey: key})
	}
	if key := os.Getenv("MAPBOX_ACCESS_TOKEN"); key != "" {
		rc.Providers = append(rc.Providers, ProviderConfig{Name: "mapbox", Kind: "mapbox", APIKey: key})
	}
	if key := os.Getenv("ORS_API_KEY"); key != "" {
		rc.Providers = append(rc.Providers, ProviderConfig{Name: "ors", Kind: "ors", APIKey: key})
	}
	return rc
}

// Validate re-checks every field on an already-constructed Config.
func (c *Config) Validate() error {
	v := validator.New()

	var errs []error
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, &ConfigError{Field: fe.Namespace(), Message: fmt.Sprintf("failed %q rule", fe.Tag())})
			}
		} else {
			errs = append(errs, err)
		}
	}

	seen := make(map[string]struct{}, len(c.Routing.Providers))
	for _, p := range c.Routing.Providers {
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, &ConfigError{Field: "Routing.Providers", Message: fmt.Sprintf("duplicate provider %q", p.Name)})
		}
		seen[p.Name] = struct{}{}

		if p.Kind != "osrm" && p.APIKey == "" {
			errs = append(errs, &ConfigError{Field: "Routing.Providers", Message: fmt.Sprintf("provider %q requires api_key", p.Name)})
		}
	}
	if c.Routing.Default != "" {
		if _, ok := seen[c.Routing.Default]; !ok {
			errs = append(errs, &ConfigError{Field: "Routing.Default", Message: fmt.Sprintf("unknown provider %q", c.Routing.Default)})
		}
	}

	return errors.Join(errs...)
}

// parseDurationEnv reads a Go duration string ("4s", "5m") from key.
// Falls back to defaultVal if the variable is unset or unparseable.
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, raw, defaultVal)
		return defaultVal
	}
	return d
}
