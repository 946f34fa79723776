package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/stephnangue/fedgate/logger"
	"github.com/stephnangue/fedgate/logical"
	"golang.org/x/sync/singleflight"
)

const (
	// maxDiscoveryBodySize bounds the discovery response we are willing
	// to parse.
	maxDiscoveryBodySize = 1 << 20

	defaultDiscoveryTimeout = 10 * time.Second
)

// realmListResponse is the wire shape of the discovery endpoint.
type realmListResponse struct {
	Realms []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"realms"`
}

// Directory resolves the set of federated authentication realms from a
// configured discovery endpoint.
//
// A directory outage must never block direct-credential login: every failure
// mode (transport error, bad status, malformed body) degrades to an empty
// realm list. Concurrent lookups for the same URL are collapsed into a
// single in-flight request; results are never cached across calls.
type Directory struct {
	client *retryablehttp.Client
	logger logger.Logger
	group  singleflight.Group
}

// Option customizes a Directory.
type Option func(*Directory)

// WithHTTPClient replaces the underlying HTTP client, used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Directory) {
		d.client.HTTPClient = c
	}
}

// New creates a realm Directory.
func New(log logger.Logger, opts ...Option) *Directory {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = defaultDiscoveryTimeout
	client.RetryMax = 2
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.Logger = nil

	d := &Directory{
		client: client,
		logger: log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListRealms fetches the realm list from discoveryURL. The returned slice
// preserves the order of the discovery response and may be empty, meaning
// "federated auth unavailable"; the default selector stays usable.
func (d *Directory) ListRealms(ctx context.Context, discoveryURL string) []logical.Realm {
	if discoveryURL == "" {
		return nil
	}

	v, err, _ := d.group.Do(discoveryURL, func() (any, error) {
		return d.fetch(ctx, discoveryURL), nil
	})
	if err != nil {
		// fetch never returns an error; degrade anyway.
		return nil
	}
	return v.([]logical.Realm)
}

func (d *Directory) fetch(ctx context.Context, discoveryURL string) []logical.Realm {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		d.logger.Warn("invalid realm discovery url",
			logger.String("url", discoveryURL), logger.Err(err))
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("realm discovery unreachable, degrading to no realms",
			logger.String("url", discoveryURL), logger.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("realm discovery returned unexpected status, degrading to no realms",
			logger.String("url", discoveryURL), logger.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBodySize))
	if err != nil {
		d.logger.Warn("failed to read realm discovery response",
			logger.String("url", discoveryURL), logger.Err(err))
		return nil
	}

	var parsed realmListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		d.logger.Warn("malformed realm discovery response, degrading to no realms",
			logger.String("url", discoveryURL), logger.Err(err))
		return nil
	}

	realms := make([]logical.Realm, 0, len(parsed.Realms))
	for _, r := range parsed.Realms {
		if r.ID == "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = r.ID
		}
		realms = append(realms, logical.Realm{ID: r.ID, DisplayName: name})
	}

	d.logger.Debug(fmt.Sprintf("discovered %d federated realms", len(realms)),
		logger.String("url", discoveryURL))
	return realms
}
