package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

const (
	// DefaultDomain applies when the keystone block sets no default_domain.
	DefaultDomain = "Default"

	// DefaultFederatedRegion is the scoping region for federated exchanges
	// when neither the request nor the configuration names one.
	DefaultFederatedRegion = "RegionOne"

	// DefaultBackendTimeout bounds each identity backend call.
	DefaultBackendTimeout = 30 * time.Second
)

// Config is the configuration for the fedgate server.
type Config struct {
	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	Listeners []ListenerBlock `hcl:"listener,block"`
	Keystone  *KeystoneBlock  `hcl:"keystone,block"`
}

// KeystoneBlock configures the identity backend and the login policy.
type KeystoneBlock struct {
	// AuthURL is the default identity endpoint for the direct path.
	AuthURL string `hcl:"auth_url"`

	// DefaultDomain is used when a login request carries no domain.
	DefaultDomain string `hcl:"default_domain,optional"`

	// MultidomainSupport makes the domain a required login field.
	MultidomainSupport bool `hcl:"multidomain_support,optional"`

	// FederatedURL is the realm discovery endpoint. Empty disables
	// federated login entirely.
	FederatedURL string `hcl:"federated_url,optional"`

	// FederatedRegion is the scoping region for federated exchanges when
	// the request does not name one.
	FederatedRegion string `hcl:"federated_region,optional"`

	// FlushSessionOnFederatedFailure extends the direct-path session
	// flush policy to federated failures.
	FlushSessionOnFederatedFailure bool `hcl:"flush_session_on_federated_failure,optional"`

	Timeout       string `hcl:"timeout,optional"`
	TLSSkipVerify bool   `hcl:"tls_skip_verify,optional"`

	Regions []RegionBlock `hcl:"region,block"`
}

// RegionBlock is one entry of the region choice list. The label is the URL
// of an identity endpoint; the block label is what the UI shows.
type RegionBlock struct {
	URL   string `hcl:"url,label"`
	Label string `hcl:"label"`
}

// ListenerBlock configures the API listener.
type ListenerBlock struct {
	Name        string `hcl:"name,label"`
	Address     string `hcl:"address"`
	TLSCertFile string `hcl:"tls_cert_file,optional"`
	TLSKeyFile  string `hcl:"tls_key_file,optional"`
	TLSEnabled  bool   `hcl:"tls_enabled,optional"`
}

// LoadConfig loads and validates an HCL configuration file.
func LoadConfig(configFile string) (*Config, error) {
	var config Config

	err := hclsimple.DecodeFile(configFile, nil, &config)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Keystone == nil {
		return fmt.Errorf("missing required 'keystone' block")
	}
	if c.Keystone.AuthURL == "" {
		return fmt.Errorf("keystone block requires 'auth_url'")
	}
	if _, err := c.Keystone.BackendTimeout(); err != nil {
		return fmt.Errorf("invalid keystone timeout: %w", err)
	}
	if len(c.Listeners) == 0 {
		return fmt.Errorf("at least one 'listener' block is required")
	}
	return nil
}

// GetListenerByName returns a listener by its name (label)
func (c *Config) GetListenerByName(name string) (*ListenerBlock, error) {
	for _, listener := range c.Listeners {
		if listener.Name == name {
			return &listener, nil
		}
	}
	return nil, fmt.Errorf("listener '%s' not found", name)
}

// GetApiListener is a convenience method to get the api listener
func (c *Config) GetApiListener() (*ListenerBlock, error) {
	return c.GetListenerByName("api")
}

// ResolvedDefaultDomain returns the configured default domain or the
// package default.
func (k *KeystoneBlock) ResolvedDefaultDomain() string {
	if k.DefaultDomain != "" {
		return k.DefaultDomain
	}
	return DefaultDomain
}

// ResolvedFederatedRegion returns the configured federated region or the
// package default.
func (k *KeystoneBlock) ResolvedFederatedRegion() string {
	if k.FederatedRegion != "" {
		return k.FederatedRegion
	}
	return DefaultFederatedRegion
}

// BackendTimeout parses the timeout field, accepting "30s" style strings or
// bare seconds.
func (k *KeystoneBlock) BackendTimeout() (time.Duration, error) {
	if k.Timeout == "" {
		return DefaultBackendTimeout, nil
	}
	return parseutil.ParseDurationSecond(k.Timeout)
}

// RegionChoicePairs returns the configured regions as (url, label) pairs,
// falling back to the auth URL as the single default region.
func (k *KeystoneBlock) RegionChoicePairs() [][2]string {
	if len(k.Regions) == 0 {
		return [][2]string{{k.AuthURL, "Default Region"}}
	}
	pairs := make([][2]string, 0, len(k.Regions))
	for _, r := range k.Regions {
		pairs = append(pairs, [2]string{r.URL, r.Label})
	}
	return pairs
}
