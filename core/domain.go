package core

import "github.com/stephnangue/fedgate/logical"

// ResolveDomain determines the identity domain for a login attempt. An
// explicit non-empty domain wins; otherwise the configured default applies.
// When neither is set the deployment is misconfigured: that failure belongs
// to operators, not end users.
func ResolveDomain(explicitDomain, configuredDefault string) (string, error) {
	if explicitDomain != "" {
		return explicitDomain, nil
	}
	if configuredDefault != "" {
		return configuredDefault, nil
	}
	return "", logical.ErrMisconfiguredDomain("no identity domain supplied and no default configured")
}
