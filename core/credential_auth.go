package core

import (
	"context"
	"errors"

	"github.com/stephnangue/fedgate/keystone"
	"github.com/stephnangue/fedgate/logical"
)

// authenticateDirect exchanges username/password/domain for an unscoped
// identity. Empty credentials fail fast without reaching the backend.
//
// In the direct path the request region doubles as the identity endpoint
// selector: an explicit auth endpoint wins, then the region, then the
// configured endpoint.
func (c *Core) authenticateDirect(ctx context.Context, req *logical.LoginRequest, domain string) (*logical.UnscopedIdentity, error) {
	if req.Username == "" || req.Password == "" {
		return nil, logical.ErrInvalidCredentials("username and password are required")
	}

	endpoint := req.AuthEndpointURL
	if endpoint == "" {
		endpoint = req.Region
	}
	if endpoint == "" {
		endpoint = c.keystoneConfig.AuthURL
	}

	identity, err := c.backend.AuthenticateDirect(ctx, req.Username, req.Password, domain, endpoint)
	if err != nil {
		return nil, mapExchangeError(err, "invalid username or password")
	}
	return identity, nil
}

// mapExchangeError translates backend client errors into the failure
// taxonomy. Rejections become InvalidCredentials with a human-safe detail
// that never echoes the secret; anything else that is not already an
// AuthFailure is an unreachable backend.
func mapExchangeError(err error, rejectionDetail string) error {
	if errors.Is(err, keystone.ErrExchangeRejected) {
		return logical.ErrInvalidCredentials(rejectionDetail)
	}
	if _, ok := logical.AsFailure(err); ok {
		return err
	}
	return logical.ErrBackendUnavailable("identity backend unreachable", err)
}
