package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/fedgate/core"
	"github.com/stephnangue/fedgate/logger"
)

// HandlerProperties contains configuration for the HTTP handler
type HandlerProperties struct {
	Core   *core.Core
	Logger logger.Logger

	// BackendTimeout bounds each login attempt end to end.
	BackendTimeout time.Duration

	// ServiceListTTL bounds how long the auth-service choice list is
	// served from cache before the realm directory is queried again.
	// Zero disables caching.
	ServiceListTTL time.Duration

	// LoginRatePerSecond throttles login attempts per client IP. Zero
	// disables throttling.
	LoginRatePerSecond float64
	LoginBurst         int
}

// Handler creates and returns the main HTTP handler for fedgate.
func Handler(props *HandlerProperties) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/sys/health", handleSysHealth())

	// Login and choice-list endpoints for the form/UI layer
	mux.Handle("/v1/auth/login", handleLogin(props))
	mux.Handle("/v1/auth/services", handleServices(props))
	mux.Handle("/v1/auth/regions", handleRegions(props))

	return wrapGenericHandler(mux)
}

// wrapGenericHandler validates the API prefix before dispatch.
func wrapGenericHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			respondError(w, http.StatusNotFound, "path must begin with /v1/")
			return
		}

		handler.ServeHTTP(w, r)
	})
}

// handleSysHealth reports liveness for deployment probes.
func handleSysHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}
		respondOk(w, map[string]any{
			"initialized": true,
			"server_time": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
