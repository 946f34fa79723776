package keystone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stephnangue/fedgate/logger"
	"github.com/stephnangue/fedgate/logical"
)

// ErrExchangeRejected marks a backend rejection: bad credentials, unknown
// domain, disabled user, expired federated assertion, or a refused scope.
// Distinct from unreachability, which surfaces as BackendUnavailable.
var ErrExchangeRejected = errors.New("exchange rejected by identity backend")

const (
	subjectTokenHeader = "X-Subject-Token"
	authTokenHeader    = "X-Auth-Token"

	maxResponseBodySize = 1 << 20
)

// HTTPClientConfig configures the HTTP identity backend client.
type HTTPClientConfig struct {
	// AuthURL is the default identity endpoint, used when a call does not
	// name one.
	AuthURL string

	// Timeout bounds each backend call, in addition to any caller
	// deadline on the context.
	Timeout time.Duration

	TLSSkipVerify bool

	Logger logger.Logger
}

// HTTPClient implements Client against a Keystone-v3-shaped identity backend.
type HTTPClient struct {
	config HTTPClientConfig
	client *http.Client
	logger logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an identity backend client sharing the pooled
// transport.
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	transport := sharedTransport
	if config.TLSSkipVerify {
		transport = newKeystoneTransport(true)
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = logger.NewZerologLogger(nil)
	}
	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: log.WithSubsystem("keystone"),
	}
}

// tokenResponse is the wire shape of a token exchange response.
type tokenResponse struct {
	Token struct {
		ExpiresAt string `json:"expires_at"`
		User      struct {
			ID     string `json:"id"`
			Domain struct {
				ID string `json:"id"`
			} `json:"domain"`
			DefaultProjectID string `json:"default_project_id"`
		} `json:"user"`
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	} `json:"token"`
}

// projectsResponse is the wire shape of the scopable-project listing.
type projectsResponse struct {
	Projects []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	} `json:"projects"`
}

// AuthenticateDirect performs the password exchange and then lists the
// subject's scopable projects. The candidate order is the backend's order.
func (c *HTTPClient) AuthenticateDirect(ctx context.Context, username, password, domain, authEndpoint string) (*logical.UnscopedIdentity, error) {
	endpoint := c.endpoint(authEndpoint)

	body := map[string]any{
		"auth": map[string]any{
			"identity": map[string]any{
				"methods": []string{"password"},
				"password": map[string]any{
					"user": map[string]any{
						"name":     username,
						"password": password,
						"domain":   map[string]any{"name": domain},
					},
				},
			},
		},
	}

	token, parsed, err := c.tokenExchange(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	identity := &logical.UnscopedIdentity{
		SubjectID:        parsed.Token.User.ID,
		DomainID:         parsed.Token.User.Domain.ID,
		UnscopedToken:    token,
		DefaultProjectID: parsed.Token.User.DefaultProjectID,
	}

	candidates, err := c.listProjects(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}
	identity.CandidateProjectIDs = candidates

	return identity, nil
}

// AuthenticateFederated performs the federated exchange for a realm. The
// scoping region is an explicit parameter: deployments that pin federated
// realms to one region do so through configuration, not through this client.
func (c *HTTPClient) AuthenticateFederated(ctx context.Context, realmID, region string) (*logical.UnscopedIdentity, error) {
	endpoint := c.endpoint("")
	exchangeURL := fmt.Sprintf("%s/OS-FEDERATION/realms/%s/auth", endpoint, url.PathEscape(realmID))

	payload, err := json.Marshal(map[string]string{"region": region})
	if err != nil {
		return nil, logical.ErrBackendUnavailable("failed to encode federated exchange", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exchangeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, logical.ErrBackendUnavailable("failed to build federated exchange request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, logical.ErrBackendUnavailable("federated exchange failed", err)
	}
	defer resp.Body.Close()

	token, parsed, err := c.parseTokenResponse(resp)
	if err != nil {
		return nil, err
	}

	identity := &logical.UnscopedIdentity{
		SubjectID:        parsed.Token.User.ID,
		DomainID:         parsed.Token.User.Domain.ID,
		UnscopedToken:    token,
		DefaultProjectID: parsed.Token.User.DefaultProjectID,
	}

	candidates, err := c.listProjects(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}
	identity.CandidateProjectIDs = candidates

	return identity, nil
}

// ScopeToProject exchanges the unscoped token for a token bound to the given
// project.
func (c *HTTPClient) ScopeToProject(ctx context.Context, identity *logical.UnscopedIdentity, projectID string) (*logical.ScopedToken, error) {
	endpoint := c.endpoint("")

	body := map[string]any{
		"auth": map[string]any{
			"identity": map[string]any{
				"methods": []string{"token"},
				"token":   map[string]any{"id": identity.UnscopedToken},
			},
			"scope": map[string]any{
				"project": map[string]any{"id": projectID},
			},
		},
	}

	token, parsed, err := c.tokenExchange(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, parsed.Token.ExpiresAt)
	if err != nil {
		// A token without a parseable expiry is unusable downstream.
		return nil, logical.ErrBackendUnavailable("backend returned invalid token expiry", err)
	}

	scopedProject := parsed.Token.Project.ID
	if scopedProject == "" {
		scopedProject = projectID
	}

	return &logical.ScopedToken{
		TokenValue: token,
		ProjectID:  scopedProject,
		SubjectID:  identity.SubjectID,
		ExpiresAt:  expiresAt,
	}, nil
}

// endpoint picks the per-call endpoint or falls back to the configured one.
func (c *HTTPClient) endpoint(override string) string {
	endpoint := c.config.AuthURL
	if override != "" {
		endpoint = override
	}
	return strings.TrimRight(endpoint, "/")
}

func (c *HTTPClient) tokenExchange(ctx context.Context, endpoint string, body map[string]any) (string, *tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, logical.ErrBackendUnavailable("failed to encode token exchange", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/auth/tokens", bytes.NewReader(payload))
	if err != nil {
		return "", nil, logical.ErrBackendUnavailable("failed to build token exchange request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, logical.ErrBackendUnavailable("token exchange failed", err)
	}
	defer resp.Body.Close()

	return c.parseTokenResponse(resp)
}

func (c *HTTPClient) parseTokenResponse(resp *http.Response) (string, *tokenResponse, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", nil, logical.ErrBackendUnavailable("failed to read backend response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// fallthrough to parsing
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The backend body may echo request details; never forward it.
		return "", nil, fmt.Errorf("%w (status %d)", ErrExchangeRejected, resp.StatusCode)
	default:
		return "", nil, logical.ErrBackendUnavailable(
			fmt.Sprintf("identity backend returned status %d", resp.StatusCode), nil)
	}

	token := resp.Header.Get(subjectTokenHeader)
	if token == "" {
		return "", nil, logical.ErrBackendUnavailable("backend response missing subject token", nil)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", nil, logical.ErrBackendUnavailable("malformed backend token response", err)
	}

	return token, &parsed, nil
}

// listProjects returns the ids of the subject's enabled scopable projects in
// backend order.
func (c *HTTPClient) listProjects(ctx context.Context, endpoint, token string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/auth/projects", nil)
	if err != nil {
		return nil, logical.ErrBackendUnavailable("failed to build project listing request", err)
	}
	req.Header.Set(authTokenHeader, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, logical.ErrBackendUnavailable("project listing failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		// A backend-side failure must not masquerade as a subject with no
		// scopable projects.
		return nil, logical.ErrBackendUnavailable(
			fmt.Sprintf("project listing returned status %d", resp.StatusCode), nil)
	default:
		// A refused listing means no candidates, not a failed attempt:
		// the default project may still scope.
		c.logger.Debug("project listing unavailable",
			logger.Int("status", resp.StatusCode))
		return nil, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, logical.ErrBackendUnavailable("failed to read project listing", err)
	}

	var parsed projectsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, logical.ErrBackendUnavailable("malformed project listing", err)
	}

	ids := make([]string, 0, len(parsed.Projects))
	for _, p := range parsed.Projects {
		if !p.Enabled {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}
