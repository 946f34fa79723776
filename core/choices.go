package core

import (
	"context"

	"github.com/stephnangue/fedgate/logical"
)

// RegionChoices builds the (value, label) region list handed to the UI
// layer. The list is a pure function of configuration, rebuilt per call:
// nothing here mutates shared field state.
func (c *Core) RegionChoices() []logical.Choice {
	pairs := c.keystoneConfig.RegionChoicePairs()
	choices := make([]logical.Choice, 0, len(pairs))
	for _, p := range pairs {
		choices = append(choices, logical.Choice{Value: p[0], Label: p[1]})
	}
	return choices
}

// ServiceChoices builds the auth-service list: the default selector first,
// then one entry per federated realm the directory currently reports. An
// unreachable directory yields just the default entry, so direct login is
// never blocked by a discovery outage.
func (c *Core) ServiceChoices(ctx context.Context) []logical.Choice {
	choices := []logical.Choice{{Value: logical.ServiceDefault, Label: "Default"}}
	for _, realm := range c.directory.ListRealms(ctx, c.keystoneConfig.FederatedURL) {
		choices = append(choices, logical.Choice{Value: realm.ID, Label: realm.DisplayName})
	}
	return choices
}
