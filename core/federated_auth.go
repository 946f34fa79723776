package core

import (
	"context"

	"github.com/stephnangue/fedgate/logical"
)

// authenticateFederated exchanges a realm id and region for an unscoped
// identity. The realm is validated against a single attempt-local directory
// snapshot, so one login attempt sees one consistent realm set.
func (c *Core) authenticateFederated(ctx context.Context, req *logical.LoginRequest) (*logical.UnscopedIdentity, error) {
	realmID := req.ServiceSelector

	realms := c.directory.ListRealms(ctx, c.keystoneConfig.FederatedURL)
	if !realmKnown(realms, realmID) {
		return nil, logical.ErrRealmUnreachable("authentication realm " + realmID + " is not available")
	}

	// The scoping region is explicit. Deployments that pin federated
	// realms to a single region do so via federated_region.
	region := req.Region
	if region == "" {
		region = c.keystoneConfig.ResolvedFederatedRegion()
	}

	identity, err := c.backend.AuthenticateFederated(ctx, realmID, region)
	if err != nil {
		return nil, mapExchangeError(err, "federated trust rejected the exchange")
	}
	return identity, nil
}

func realmKnown(realms []logical.Realm, id string) bool {
	for _, r := range realms {
		if r.ID == id {
			return true
		}
	}
	return false
}
