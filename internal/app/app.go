// Package app assembles the Daybook application from its parts.
//
// An App owns the database store and the fully-wired HTTP handler. The
// standalone server and the serverless entry point both build an App and
// differ only in how they drive its handler.
package app

import (
	"fmt"
	"net/http"

	"github.com/daybook-app/daybook-backend/internal/api"
	"github.com/daybook-app/daybook-backend/internal/api/auth"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

// Options controls optional application behavior.
type Options struct {
	// RequestLogging enables per-request log lines.
	RequestLogging bool

	// Metrics enables Prometheus instrumentation and the /metrics endpoint.
	Metrics bool
}

// App is a fully constructed application instance.
type App struct {
	store   *store.Store
	handler http.Handler
}

// New builds an App from an open store and API configuration.
//
// The JWT secret must be configured via config or the DAYBOOK_API_SECRET
// environment variable and must be at least 32 characters.
func New(apiConfig api.Config, st *store.Store, opts Options) (*App, error) {
	apiConfig.ApplyDefaults()

	secret := apiConfig.GetJWTSecret()
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters; set via %s env var or config", api.EnvAPISecret)
	}

	jwtService, err := auth.NewJWTService(apiConfig.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	handler := api.NewRouter(st, jwtService, api.RouterOptions{
		RequestLogging: opts.RequestLogging,
		Metrics:        opts.Metrics,
	})

	return &App{
		store:   st,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler serving the full API surface.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Store returns the application's database store.
func (a *App) Store() *store.Store {
	return a.store
}

// Close releases the application's resources, including the database pool.
func (a *App) Close() error {
	return a.store.Close()
}
