package keystone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stephnangue/fedgate/logger"
	"github.com/stephnangue/fedgate/logical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, serverURL string) *HTTPClient {
	t.Helper()
	return NewHTTPClient(HTTPClientConfig{
		AuthURL: serverURL,
		Timeout: 5 * time.Second,
		Logger:  logger.NewTestLogger(io.Discard),
	})
}

// identityBackend is a minimal Keystone-v3-shaped test double.
func identityBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Auth struct {
				Identity struct {
					Methods  []string `json:"methods"`
					Password struct {
						User struct {
							Name     string `json:"name"`
							Password string `json:"password"`
						} `json:"user"`
					} `json:"password"`
					Token struct {
						ID string `json:"id"`
					} `json:"token"`
				} `json:"identity"`
				Scope struct {
					Project struct {
						ID string `json:"id"`
					} `json:"project"`
				} `json:"scope"`
			} `json:"auth"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body.Auth.Identity.Methods[0] {
		case "password":
			if body.Auth.Identity.Password.User.Password != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("X-Subject-Token", "unscoped-tok")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"token":{"user":{"id":"alice-id","domain":{"id":"default-id"},"default_project_id":"proj-42"}}}`)
		case "token":
			if body.Auth.Scope.Project.ID == "proj-disabled" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("X-Subject-Token", "scoped-tok")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"token":{"expires_at":"2030-01-01T00:00:00Z","user":{"id":"alice-id"},"project":{"id":%q}}}`,
				body.Auth.Scope.Project.ID)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/auth/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"projects":[
			{"id":"proj-42","enabled":true},
			{"id":"proj-43","enabled":true},
			{"id":"proj-archived","enabled":false}
		]}`)
	})

	mux.HandleFunc("/OS-FEDERATION/realms/realm-xyz/auth", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Region string `json:"region"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Region)

		w.Header().Set("X-Subject-Token", "fed-unscoped-tok")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"token":{"user":{"id":"fed-id","domain":{"id":"fed-domain"}}}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAuthenticateDirect(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	identity, err := client.AuthenticateDirect(context.Background(), "alice", "hunter2", "Default", server.URL)
	require.NoError(t, err)

	assert.Equal(t, "alice-id", identity.SubjectID)
	assert.Equal(t, "default-id", identity.DomainID)
	assert.Equal(t, "unscoped-tok", identity.UnscopedToken)
	assert.Equal(t, "proj-42", identity.DefaultProjectID)
	// Disabled projects are not candidates.
	assert.Equal(t, []string{"proj-42", "proj-43"}, identity.CandidateProjectIDs)
}

func TestAuthenticateDirect_Rejection(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	_, err := client.AuthenticateDirect(context.Background(), "alice", "wrong", "Default", server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeRejected))
	assert.NotContains(t, err.Error(), "wrong")
}

func TestAuthenticateDirect_Unreachable(t *testing.T) {
	client := testClient(t, "http://127.0.0.1:1")

	_, err := client.AuthenticateDirect(context.Background(), "alice", "hunter2", "Default", "")
	require.Error(t, err)

	failure, ok := logical.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, logical.BackendUnavailable, failure.Kind)
}

func TestAuthenticateDirect_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	client := testClient(t, server.URL)

	_, err := client.AuthenticateDirect(context.Background(), "alice", "hunter2", "Default", "")
	require.Error(t, err)
	assert.Equal(t, logical.BackendUnavailable, logical.KindOf(err))
}

func TestAuthenticateDirect_ProjectListingStatus(t *testing.T) {
	// The password exchange succeeds; the listing answers with the given
	// status.
	backendWithListing := func(status int) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Subject-Token", "unscoped-tok")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"token":{"user":{"id":"alice-id","default_project_id":"proj-42"}}}`)
		})
		mux.HandleFunc("/auth/projects", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}

	t.Run("server error surfaces as unavailable", func(t *testing.T) {
		server := backendWithListing(http.StatusInternalServerError)
		client := testClient(t, server.URL)

		_, err := client.AuthenticateDirect(context.Background(), "alice", "hunter2", "Default", "")
		require.Error(t, err)
		assert.Equal(t, logical.BackendUnavailable, logical.KindOf(err))
	})

	t.Run("refused listing degrades to no candidates", func(t *testing.T) {
		server := backendWithListing(http.StatusForbidden)
		client := testClient(t, server.URL)

		identity, err := client.AuthenticateDirect(context.Background(), "alice", "hunter2", "Default", "")
		require.NoError(t, err)
		assert.Empty(t, identity.CandidateProjectIDs)
		assert.Equal(t, "proj-42", identity.DefaultProjectID)
	})
}

func TestAuthenticateFederated(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	identity, err := client.AuthenticateFederated(context.Background(), "realm-xyz", "RegionOne")
	require.NoError(t, err)

	assert.Equal(t, "fed-id", identity.SubjectID)
	assert.Equal(t, "fed-unscoped-tok", identity.UnscopedToken)
	assert.Empty(t, identity.DefaultProjectID)
	assert.Equal(t, []string{"proj-42", "proj-43"}, identity.CandidateProjectIDs)
}

func TestAuthenticateFederated_UnknownRealmRejected(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	// The mux returns 404 for unknown realm paths.
	_, err := client.AuthenticateFederated(context.Background(), "realm-unknown", "RegionOne")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeRejected))
}

func TestScopeToProject(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	identity := &logical.UnscopedIdentity{
		SubjectID:     "alice-id",
		UnscopedToken: "unscoped-tok",
	}

	token, err := client.ScopeToProject(context.Background(), identity, "proj-42")
	require.NoError(t, err)

	assert.Equal(t, "scoped-tok", token.TokenValue)
	assert.Equal(t, "proj-42", token.ProjectID)
	assert.Equal(t, "alice-id", token.SubjectID)
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), token.ExpiresAt)
}

func TestScopeToProject_Rejection(t *testing.T) {
	server := identityBackend(t)
	client := testClient(t, server.URL)

	identity := &logical.UnscopedIdentity{
		SubjectID:     "alice-id",
		UnscopedToken: "unscoped-tok",
	}

	_, err := client.ScopeToProject(context.Background(), identity, "proj-disabled")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeRejected))
}

func TestContextDeadlineMapsToBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()
	client := testClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AuthenticateDirect(ctx, "alice", "hunter2", "Default", "")
	require.Error(t, err)
	assert.Equal(t, logical.BackendUnavailable, logical.KindOf(err))
}
