package logical

// ServiceDefault is the selector value that routes a login attempt to the
// direct credential path. Any other selector names a federated realm.
const ServiceDefault = "default"

// LoginRequest carries the inputs of one login attempt as supplied by the
// form/UI layer. The password is an opaque secret: it must never appear in
// any log line or in any error surfaced to an observer.
type LoginRequest struct {
	// ServiceSelector is either ServiceDefault or a realm id from the
	// realm directory.
	ServiceSelector string `json:"service_selector" mapstructure:"service_selector"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`

	// Domain is the identity domain. When empty the configured default
	// domain applies.
	Domain string `json:"domain" mapstructure:"domain"`

	// Region selects the identity endpoint for the direct path and the
	// scoping region for the federated path.
	Region string `json:"region" mapstructure:"region"`

	// AuthEndpointURL overrides the configured identity endpoint when set.
	AuthEndpointURL string `json:"auth_endpoint_url" mapstructure:"auth_endpoint_url"`

	// ClientIP is propagated for audit logging only.
	ClientIP string `json:"-" mapstructure:"-"`
}

// IsFederated reports whether the selector names a federated realm.
func (r *LoginRequest) IsFederated() bool {
	return r.ServiceSelector != "" && r.ServiceSelector != ServiceDefault
}

// LoginResult is the outcome of a successful login attempt. Session-flush
// decisions on failure are a separate concern, reported by the core per
// failed attempt.
type LoginResult struct {
	Token *ScopedToken `json:"token"`
}
