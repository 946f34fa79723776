package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stephnangue/fedgate/config"
	"github.com/stephnangue/fedgate/keystone"
	"github.com/stephnangue/fedgate/logical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateDirect_EmptyCredentialsFailFast(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty password", "alice", ""},
		{"empty username", "", "hunter2"},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			c := testCore(t, backend, nil)

			_, err := c.authenticateDirect(context.Background(), &logical.LoginRequest{
				Username: tt.username,
				Password: tt.password,
			}, "Default")
			require.Error(t, err)

			failure, ok := logical.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, logical.InvalidCredentials, failure.Kind)
			assert.Equal(t, 0, backend.directCalls, "must not reach the backend")
		})
	}
}

func TestAuthenticateDirect_RejectionMapsToInvalidCredentials(t *testing.T) {
	backend := &fakeBackend{
		directErr: fmt.Errorf("%w (status 401)", keystone.ErrExchangeRejected),
	}
	c := testCore(t, backend, nil)

	_, err := c.authenticateDirect(context.Background(), &logical.LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, "Default")
	require.Error(t, err)

	failure, ok := logical.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, logical.InvalidCredentials, failure.Kind)
	assert.NotContains(t, failure.Error(), "wrong")
}

func TestAuthenticateDirect_TransportErrorMapsToBackendUnavailable(t *testing.T) {
	backend := &fakeBackend{
		directErr: fmt.Errorf("connection refused"),
	}
	c := testCore(t, backend, nil)

	_, err := c.authenticateDirect(context.Background(), &logical.LoginRequest{
		Username: "alice",
		Password: "hunter2",
	}, "Default")
	require.Error(t, err)

	failure, ok := logical.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, logical.BackendUnavailable, failure.Kind)
	assert.True(t, failure.Retryable())
}

func TestAuthenticateDirect_EndpointSelection(t *testing.T) {
	tests := []struct {
		name     string
		request  logical.LoginRequest
		expected string
	}{
		{
			name: "explicit endpoint wins",
			request: logical.LoginRequest{
				AuthEndpointURL: "https://override.example/v3",
				Region:          "https://region.example/v3",
			},
			expected: "https://override.example/v3",
		},
		{
			name: "region doubles as endpoint selector",
			request: logical.LoginRequest{
				Region: "https://region.example/v3",
			},
			expected: "https://region.example/v3",
		},
		{
			name:     "configured endpoint as fallback",
			request:  logical.LoginRequest{},
			expected: "https://configured.example/v3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				directIdentity: &logical.UnscopedIdentity{SubjectID: "alice-id"},
			}
			c := testCore(t, backend, &config.KeystoneBlock{
				AuthURL: "https://configured.example/v3",
			})

			req := tt.request
			req.Username = "alice"
			req.Password = "hunter2"

			_, err := c.authenticateDirect(context.Background(), &req, "Default")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, backend.lastDirectEndpoint)
		})
	}
}
