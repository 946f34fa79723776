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

func TestAuthenticateFederated_RegionDefault(t *testing.T) {
	tests := []struct {
		name             string
		requestRegion    string
		configuredRegion string
		expected         string
	}{
		{
			name:          "request region wins",
			requestRegion: "RegionTwo",
			expected:      "RegionTwo",
		},
		{
			name:             "configured region as default",
			configuredRegion: "RegionEU",
			expected:         "RegionEU",
		},
		{
			name:     "package default",
			expected: "RegionOne",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := realmServer(t, "realm-xyz")
			backend := &fakeBackend{
				federatedIdentity: &logical.UnscopedIdentity{SubjectID: "fed-id"},
			}
			c := testCore(t, backend, &config.KeystoneBlock{
				AuthURL:         "https://id.example/v3",
				FederatedURL:    server.URL,
				FederatedRegion: tt.configuredRegion,
			})

			_, err := c.authenticateFederated(context.Background(), &logical.LoginRequest{
				ServiceSelector: "realm-xyz",
				Region:          tt.requestRegion,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, backend.lastRegion)
		})
	}
}

func TestAuthenticateFederated_AbsentRealm(t *testing.T) {
	server := realmServer(t, "realm-abc", "realm-def")
	backend := &fakeBackend{}
	c := testCore(t, backend, &config.KeystoneBlock{
		AuthURL:      "https://id.example/v3",
		FederatedURL: server.URL,
	})

	_, err := c.authenticateFederated(context.Background(), &logical.LoginRequest{
		ServiceSelector: "realm-xyz",
	})
	require.Error(t, err)

	failure, ok := logical.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, logical.RealmUnreachable, failure.Kind)
	assert.Equal(t, 0, backend.federatedCalls)
}

func TestAuthenticateFederated_NoDiscoveryConfigured(t *testing.T) {
	backend := &fakeBackend{}
	c := testCore(t, backend, &config.KeystoneBlock{
		AuthURL: "https://id.example/v3",
	})

	_, err := c.authenticateFederated(context.Background(), &logical.LoginRequest{
		ServiceSelector: "realm-xyz",
	})
	require.Error(t, err)
	assert.Equal(t, logical.RealmUnreachable, logical.KindOf(err))
}

func TestAuthenticateFederated_RejectionMapsToInvalidCredentials(t *testing.T) {
	server := realmServer(t, "realm-xyz")
	backend := &fakeBackend{
		federatedErr: fmt.Errorf("%w (status 401)", keystone.ErrExchangeRejected),
	}
	c := testCore(t, backend, &config.KeystoneBlock{
		AuthURL:      "https://id.example/v3",
		FederatedURL: server.URL,
	})

	_, err := c.authenticateFederated(context.Background(), &logical.LoginRequest{
		ServiceSelector: "realm-xyz",
	})
	require.Error(t, err)
	assert.Equal(t, logical.InvalidCredentials, logical.KindOf(err))
}
