package hcloud

import (
	"context"
	"net/http"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// Service names reported as unsupported.
const (
	serviceIdentity      = "password-identity"
	serviceCOE           = "coe"
	serviceOrchestration = "orchestration"
)

// Backend authenticates Hetzner Cloud API tokens. It implements
// cloudapi.Authenticator.
type Backend struct {
	endpoint       string
	username       string
	projectID      string
	projectName    string
	networkZone    hcloud.NetworkZone
	location       string
	networkRange   string
	requestTimeout time.Duration
	cacheSize      int
	cacheTTL       time.Duration
	// newClient is swapped in tests.
	newClient func(token string) *hcloud.Client
}

var _ cloudapi.Authenticator = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithEndpoint sets the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(b *Backend) { b.endpoint = endpoint }
}

// WithUsername sets the username reported by connections. Tokens carry no
// user identity.
func WithUsername(username string) Option {
	return func(b *Backend) { b.username = username }
}

// WithProject sets the id and name of the tenancy a token grants.
func WithProject(id, name string) Option {
	return func(b *Backend) {
		b.projectID = id
		b.projectName = name
	}
}

// WithNetworkZone sets the zone of created subnets.
func WithNetworkZone(zone string) Option {
	return func(b *Backend) { b.networkZone = hcloud.NetworkZone(zone) }
}

// WithLocation sets the location of volumes and floating IPs created without
// a server, and of servers created without an availability zone.
func WithLocation(location string) Option {
	return func(b *Backend) { b.location = location }
}

// WithNetworkRange sets the IP range of created networks.
func WithNetworkRange(cidr string) Option {
	return func(b *Backend) { b.networkRange = cidr }
}

// WithRequestTimeout bounds every HTTP request.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Backend) { b.requestTimeout = d }
}

// WithCache sets the size and TTL of the volume and SSH key read cache.
// A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(b *Backend) {
		b.cacheSize = size
		b.cacheTTL = ttl
	}
}

// WithHCloudClient makes every connection use client (useful for testing).
func WithHCloudClient(client *hcloud.Client) Option {
	return func(b *Backend) { b.newClient = func(string) *hcloud.Client { return client } }
}

// New creates a Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		username:       "hcloud",
		projectID:      "default",
		projectName:    "default",
		networkZone:    hcloud.NetworkZoneEUCentral,
		networkRange:   "10.0.0.0/16",
		requestTimeout: 30 * time.Second,
		cacheSize:      256,
		cacheTTL:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.newClient == nil {
		b.newClient = b.defaultClient
	}
	return b
}

func (b *Backend) defaultClient(token string) *hcloud.Client {
	opts := []hcloud.ClientOption{
		hcloud.WithToken(token),
		hcloud.WithApplication("cloudbroker", ""),
		hcloud.WithHTTPClient(&http.Client{Timeout: b.requestTimeout}),
	}
	if b.endpoint != "" {
		opts = append(opts, hcloud.WithEndpoint(b.endpoint))
	}
	return hcloud.NewClient(opts...)
}

// WithPassword is not supported; Hetzner Cloud only knows API tokens.
func (b *Backend) WithPassword(context.Context, string, string) (cloudapi.Connection, error) {
	return nil, &cloudapi.ServiceNotSupportedError{Service: serviceIdentity}
}

// WithToken checks the token with a cheap read and opens a connection.
func (b *Backend) WithToken(ctx context.Context, token string) (cloudapi.Connection, error) {
	client := b.newClient(token)
	if _, err := client.Location.All(ctx); err != nil {
		return nil, apiError("verify token", err)
	}
	return &connection{backend: b, client: client, token: token}, nil
}

type connection struct {
	backend *Backend
	client  *hcloud.Client
	token   string
}

func (c *connection) Username() string { return c.backend.username }
func (c *connection) UserID() string   { return c.backend.username }
func (c *connection) Token() string    { return c.token }
func (c *connection) AuthURL() string  { return c.backend.authURL() }

func (b *Backend) authURL() string {
	if b.endpoint != "" {
		return b.endpoint
	}
	return hcloud.Endpoint
}

// Projects returns the single project the token belongs to.
func (c *connection) Projects(context.Context) ([]cloudapi.Project, error) {
	return []cloudapi.Project{{ID: c.backend.projectID, Name: c.backend.projectName, Enabled: true}}, nil
}

func (c *connection) Scoped(_ context.Context, projectID string) (cloudapi.ScopedConnection, error) {
	if projectID != c.backend.projectID {
		return nil, cloudapi.NewError(http.StatusForbidden, "Token is not valid for project %s.", projectID)
	}
	return &scoped{
		backend: c.backend,
		client:  c.client,
		token:   c.token,
		cache:   newReadCache(c.backend.cacheSize, c.backend.cacheTTL),
	}, nil
}

func (c *connection) Close() error { return nil }

// scoped implements every service on one hcloud client.
type scoped struct {
	backend *Backend
	client  *hcloud.Client
	token   string
	cache   *readCache
}

func (s *scoped) ProjectID() string { return s.backend.projectID }
func (s *scoped) Token() string     { return s.token }
func (s *scoped) AuthURL() string   { return s.backend.authURL() }

func (s *scoped) Compute() (cloudapi.ComputeService, error)       { return (*computeService)(s), nil }
func (s *scoped) Network() (cloudapi.NetworkService, error)       { return (*networkService)(s), nil }
func (s *scoped) BlockStore() (cloudapi.BlockStoreService, error) { return (*storageService)(s), nil }
func (s *scoped) Image() (cloudapi.ImageService, error)           { return (*imageService)(s), nil }

func (s *scoped) COE() (cloudapi.COEService, error) {
	return nil, &cloudapi.ServiceNotSupportedError{Service: serviceCOE}
}

func (s *scoped) Orchestration() (cloudapi.OrchestrationService, error) {
	return nil, &cloudapi.ServiceNotSupportedError{Service: serviceOrchestration}
}

func (s *scoped) Close() error {
	s.cache.purge()
	return nil
}
