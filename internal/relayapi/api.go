// Package relayapi implements the REST API of the Heimdall relay.
// It exposes the SDK decision surface to services that cannot embed the Go client.
package relayapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/heimdall-sdk/sdk"
)

// Compile-time check to verify that the SDK client satisfies Decider.
var _ Decider = (*sdk.Client)(nil)

// Decider is the subset of the SDK client the relay serves.
type Decider interface {
	Experiment(key int64, user sdk.User, defaultVariation string) sdk.Decision
	FeatureFlag(key int64, user sdk.User) sdk.FeatureFlagDecision
	RemoteConfig(user sdk.User) *sdk.RemoteConfig
	Track(ev sdk.Event, user sdk.User)
}

// Config holds the HTTP-level settings of the API.
type Config struct {
	// APIKeyHash is the hex SHA-256 of the accepted API key. Empty disables authentication.
	APIKeyHash string
	// MaxBodyBytes caps request bodies. Zero means 64KB.
	MaxBodyBytes int64
}

// API holds the router and its dependencies.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	logger  *slog.Logger
	decider Decider
	config  Config
}

// NewAPI creates a new API instance. It panics if decider is nil.
func NewAPI(logger *slog.Logger, decider Decider, cfg Config) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if decider == nil {
		panic("relayapi: decider cannot be nil")
	}
	cfg.APIKeyHash = strings.ToLower(cfg.APIKeyHash)
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}

	api := &API{
		Router:  chi.NewRouter(),
		logger:  logger,
		decider: decider,
		config:  cfg,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	a.Router.Use(requestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(a.requestLogger)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(requestMetrics)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)
		r.Use(a.limitBody)

		r.Post("/experiments/{key}", a.handleExperiment)
		r.Post("/feature-flags/{key}", a.handleFeatureFlag)
		r.Post("/remote-configs/{key}", a.handleRemoteConfig)
		r.Post("/events", a.handleTrack)
	})
}

// handleHealthCheck only reports that the HTTP server is serving.
// Workspace readiness is reported by the observability server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
