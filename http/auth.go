package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stephnangue/fedgate/logical"
	"golang.org/x/time/rate"
)

const (
	// FlushSessionHeader tells the session-owning layer to flush session
	// state before responding to the original caller.
	FlushSessionHeader = "X-Fedgate-Flush-Session"

	maxLoginBodySize = 256 * 1024

	serviceCacheKey = "services"
)

// LoginResponse is the wire shape of a successful login.
type LoginResponse struct {
	Token *logical.ScopedToken `json:"token"`
}

// ChoiceListResponse is the wire shape of the region/service listings.
type ChoiceListResponse struct {
	Choices []logical.Choice `json:"choices"`

	// Preselected is set when exactly one choice exists, so the UI layer
	// can hide the widget the way the original form did.
	Preselected string `json:"preselected,omitempty"`

	// DomainRequired tells the UI layer to render a domain field.
	DomainRequired bool `json:"domain_required"`
}

// handleLogin processes POST /v1/auth/login.
func handleLogin(props *HandlerProperties) http.Handler {
	limiters := newLoginLimiters(props.LoginRatePerSecond, props.LoginBurst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}

		clientIP := remoteIP(r)
		if !limiters.allow(clientIP) {
			respondError(w, http.StatusTooManyRequests, "login rate exceeded")
			return
		}

		req, err := decodeLoginRequest(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.ClientIP = clientIP

		ctx := r.Context()
		if props.BackendTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, props.BackendTimeout)
			defer cancel()
		}

		result, err := props.Core.HandleLogin(ctx, req)
		if err != nil {
			if props.Core.FlushSessionOnFailure(req, err) {
				w.Header().Set(FlushSessionHeader, "true")
			}
			respondFailure(w, err)
			return
		}

		respondOk(w, &LoginResponse{Token: result.Token})
	})
}

// handleServices serves the auth-service choice list, optionally cached.
// Caching here is deliberate: the core never caches realms, but this surface
// is a caller and may.
func handleServices(props *HandlerProperties) http.Handler {
	var cache *expirable.LRU[string, []logical.Choice]
	if props.ServiceListTTL > 0 {
		cache = expirable.NewLRU[string, []logical.Choice](1, nil, props.ServiceListTTL)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}

		var choices []logical.Choice
		if cache != nil {
			if cached, ok := cache.Get(serviceCacheKey); ok {
				choices = cached
			}
		}
		if choices == nil {
			choices = props.Core.ServiceChoices(r.Context())
			if cache != nil {
				cache.Add(serviceCacheKey, choices)
			}
		}

		respondOk(w, &ChoiceListResponse{
			Choices:        choices,
			DomainRequired: props.Core.MultidomainSupport(),
		})
	})
}

// handleRegions serves the region choice list.
func handleRegions(props *HandlerProperties) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "unsupported method")
			return
		}

		choices := props.Core.RegionChoices()
		resp := &ChoiceListResponse{
			Choices:        choices,
			DomainRequired: props.Core.MultidomainSupport(),
		}
		if len(choices) == 1 {
			resp.Preselected = choices[0].Value
		}
		respondOk(w, resp)
	})
}

// decodeLoginRequest parses the JSON body into a LoginRequest.
func decodeLoginRequest(r *http.Request) (*logical.LoginRequest, error) {
	raw := map[string]any{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBodySize))
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
	}

	var req logical.LoginRequest
	if err := mapstructure.Decode(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// respondFailure writes an AuthFailure with its mapped status, kind and a
// human-safe detail. Non-failure errors degrade to a 500 with no detail.
func respondFailure(w http.ResponseWriter, err error) {
	failure, ok := logical.AsFailure(err)
	if !ok {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(failure.Code())
	json.NewEncoder(w).Encode(&ErrorResponse{
		Errors:    []string{failure.Detail},
		Kind:      string(failure.Kind),
		Retryable: failure.Retryable(),
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loginLimiters throttles login attempts per client IP. Limiters for idle
// IPs age out with the cache.
type loginLimiters struct {
	cache *expirable.LRU[string, *rate.Limiter]
	rps   float64
	burst int
}

func newLoginLimiters(rps float64, burst int) *loginLimiters {
	if rps <= 0 {
		return &loginLimiters{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginLimiters{
		cache: expirable.NewLRU[string, *rate.Limiter](4096, nil, 0),
		rps:   rps,
		burst: burst,
	}
}

func (l *loginLimiters) allow(ip string) bool {
	if l.cache == nil {
		return true
	}
	limiter, ok := l.cache.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.cache.Add(ip, limiter)
	}
	return limiter.Allow()
}
