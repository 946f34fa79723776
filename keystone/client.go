package keystone

import (
	"context"

	"github.com/stephnangue/fedgate/logical"
)

// Client is the call contract with the identity backend. The backend's wire
// protocol is its own concern; this interface is what the login core needs:
// a direct password exchange, a federated exchange, and a scoping exchange.
//
// Implementations must honor the context deadline on every call and surface
// unreachability or timeout as a BackendUnavailable AuthFailure. Rejections
// (bad credentials, refused scope) are returned as ErrExchangeRejected so
// callers can tell policy failures from infrastructure failures.
type Client interface {
	// AuthenticateDirect exchanges username/password/domain for an
	// unscoped identity against the given endpoint.
	AuthenticateDirect(ctx context.Context, username, password, domain, authEndpoint string) (*logical.UnscopedIdentity, error)

	// AuthenticateFederated exchanges a realm id and scoping region for
	// an unscoped identity via the realm's trust relationship.
	AuthenticateFederated(ctx context.Context, realmID, region string) (*logical.UnscopedIdentity, error)

	// ScopeToProject binds an unscoped identity to one project.
	ScopeToProject(ctx context.Context, identity *logical.UnscopedIdentity, projectID string) (*logical.ScopedToken, error)
}
