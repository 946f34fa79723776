package core

import (
	"context"

	"github.com/stephnangue/fedgate/logical"
)

// authenticate routes a login attempt to exactly one authenticator, decided
// solely by the service selector: the default selector (or none) takes the
// direct credential path, anything else names a federated realm. Neither
// path ever falls back to the other, and neither path retries; each
// authenticator owns its failure semantics.
func (c *Core) authenticate(ctx context.Context, req *logical.LoginRequest, domain string) (*logical.UnscopedIdentity, error) {
	if req.IsFederated() {
		return c.authenticateFederated(ctx, req)
	}
	return c.authenticateDirect(ctx, req, domain)
}
