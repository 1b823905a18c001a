// Package memory is an in-process implementation of the cloud API.
//
// It keeps the OpenStack object model in memory, records every call by
// operation name and supports failure injection per operation. It backs the
// "memory" backend of the CLI and most provider tests.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// Service names accepted by Unsupported.
const (
	ServiceCompute       = "compute"
	ServiceNetwork       = "network"
	ServiceBlockStore    = "block-store"
	ServiceImage         = "image"
	ServiceCOE           = "coe"
	ServiceOrchestration = "orchestration"
)

// Option configures a Cloud.
type Option func(*Cloud)

// WithAuthURL sets the auth URL reported by connections.
func WithAuthURL(url string) Option {
	return func(c *Cloud) { c.authURL = url }
}

// WithImmediateClusterDeletion removes clusters as soon as deletion is requested
// instead of leaving them visible until FinishClusterDeletions.
func WithImmediateClusterDeletion() Option {
	return func(c *Cloud) { c.immediateClusterDelete = true }
}

// WithClock overrides the time source used for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cloud) { c.now = now }
}

type user struct {
	id       string
	name     string
	password string
	projects []string
}

type port struct {
	cloudapi.Port
	fixedIP string
}

type projectState struct {
	networks      []*cloudapi.Network
	subnets       []cloudapi.Subnet
	ports         []*port
	fips          []*cloudapi.FloatingIP
	servers       []*cloudapi.Server
	volumes       []*cloudapi.Volume
	clusters      []*cloudapi.Cluster
	deleting      map[string]bool
	stacks        []cloudapi.Stack
	computeLimits cloudapi.ComputeLimits
	blockLimits   cloudapi.BlockStoreLimits
	networkQuota  cloudapi.NetworkQuota
}

// Cloud is an in-memory cloud. The zero value is not usable; use New.
type Cloud struct {
	mu                     sync.Mutex
	authURL                string
	immediateClusterDelete bool
	now                    func() time.Time

	users       map[string]*user
	tokens      map[string]string
	projects    []cloudapi.Project
	flavors     []cloudapi.Flavor
	images      []cloudapi.Image
	templates   []cloudapi.ClusterTemplate
	keypairs    map[string][]cloudapi.Keypair
	consoleLogs map[string]string
	userData    map[string]string
	cas         map[string]*clusterCA
	state       map[string]*projectState

	unsupported map[string]bool
	failures    map[string]error
	calls       []string
	addrSeq     int
}

// New creates an empty in-memory cloud.
func New(opts ...Option) *Cloud {
	c := &Cloud{
		authURL:     "memory://identity/v3",
		now:         time.Now,
		users:       make(map[string]*user),
		tokens:      make(map[string]string),
		keypairs:    make(map[string][]cloudapi.Keypair),
		consoleLogs: make(map[string]string),
		userData:    make(map[string]string),
		cas:         make(map[string]*clusterCA),
		state:       make(map[string]*projectState),
		unsupported: make(map[string]bool),
		failures:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddProject registers a project and returns it with an id assigned.
func (c *Cloud) AddProject(p cloudapi.Project) cloudapi.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	c.projects = append(c.projects, p)
	c.project(p.ID)
	return p
}

// AddUser registers a user that is a member of the given projects and returns its id.
func (c *Cloud) AddUser(username, password string, projectIDs ...string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := &user{id: uuid.NewString(), name: username, password: password, projects: projectIDs}
	c.users[username] = u
	return u.id
}

// IssueToken returns a valid token for an existing user.
func (c *Cloud) IssueToken(username string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := uuid.NewString()
	c.tokens[token] = username
	return token
}

// RevokeToken invalidates a token.
func (c *Cloud) RevokeToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, token)
}

// Unsupported marks a service as not offered by the deployment.
func (c *Cloud) Unsupported(services ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range services {
		c.unsupported[s] = true
	}
}

// FailOn makes every subsequent call to op return err. A nil err clears the failure.
func (c *Cloud) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// Calls returns the operations issued so far, in order.
func (c *Cloud) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallCount returns how many times op was issued.
func (c *Cloud) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the recorded calls.
func (c *Cloud) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// begin records op and returns any injected failure. Callers hold c.mu.
func (c *Cloud) begin(ctx context.Context, op string) error {
	c.calls = append(c.calls, op)
	if err := ctx.Err(); err != nil {
		return &cloudapi.TransportError{Op: op, Err: err}
	}
	if err, ok := c.failures[op]; ok {
		return err
	}
	return nil
}

func (c *Cloud) project(id string) *projectState {
	st, ok := c.state[id]
	if !ok {
		st = &projectState{
			deleting:     make(map[string]bool),
			networkQuota: cloudapi.NetworkQuota{FloatingIP: 50},
			computeLimits: cloudapi.ComputeLimits{
				MaxTotalCores:     -1,
				MaxTotalRAMSize:   -1,
				MaxTotalInstances: -1,
			},
			blockLimits: cloudapi.BlockStoreLimits{
				MaxTotalVolumeGigabytes: -1,
				MaxTotalVolumes:         -1,
			},
		}
		c.state[id] = st
	}
	return st
}

func (c *Cloud) nextAddress(prefix string) string {
	c.addrSeq++
	return fmt.Sprintf("%s.%d.%d", prefix, c.addrSeq/250, c.addrSeq%250+2)
}

// WithPassword implements cloudapi.Authenticator.
func (c *Cloud) WithPassword(ctx context.Context, username, password string) (cloudapi.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "identity.WithPassword"); err != nil {
		return nil, err
	}
	u, ok := c.users[username]
	if !ok || u.password != password {
		return nil, cloudapi.NewError(http.StatusUnauthorized, "The request you have made requires authentication.")
	}
	token := uuid.NewString()
	c.tokens[token] = username
	return &connection{cloud: c, user: u, token: token}, nil
}

// WithToken implements cloudapi.Authenticator.
func (c *Cloud) WithToken(ctx context.Context, token string) (cloudapi.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "identity.WithToken"); err != nil {
		return nil, err
	}
	username, ok := c.tokens[token]
	if !ok {
		return nil, cloudapi.NotFound("Could not find token: %s.", token)
	}
	return &connection{cloud: c, user: c.users[username], token: token}, nil
}

type connection struct {
	cloud  *Cloud
	user   *user
	token  string
	closed bool
}

func (conn *connection) Username() string { return conn.user.name }
func (conn *connection) UserID() string   { return conn.user.id }
func (conn *connection) Token() string    { return conn.token }
func (conn *connection) AuthURL() string  { return conn.cloud.authURL }

func (conn *connection) Projects(ctx context.Context) ([]cloudapi.Project, error) {
	c := conn.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "identity.Projects"); err != nil {
		return nil, err
	}
	var out []cloudapi.Project
	for _, p := range c.projects {
		if slices.Contains(conn.user.projects, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (conn *connection) Scoped(ctx context.Context, projectID string) (cloudapi.ScopedConnection, error) {
	c := conn.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "identity.Scoped"); err != nil {
		return nil, err
	}
	if _, ok := c.tokens[conn.token]; !ok {
		return nil, cloudapi.NewError(http.StatusUnauthorized, "The request you have made requires authentication.")
	}
	if !slices.Contains(conn.user.projects, projectID) {
		return nil, cloudapi.NewError(http.StatusUnauthorized, "User has no access to project %s.", projectID)
	}
	token := uuid.NewString()
	c.tokens[token] = conn.user.name
	return &scoped{cloud: c, user: conn.user, projectID: projectID, token: token}, nil
}

func (conn *connection) Close() error {
	conn.cloud.mu.Lock()
	defer conn.cloud.mu.Unlock()
	conn.closed = true
	conn.cloud.calls = append(conn.cloud.calls, "identity.Close")
	return nil
}

type scoped struct {
	cloud     *Cloud
	user      *user
	projectID string
	token     string
}

func (s *scoped) ProjectID() string { return s.projectID }
func (s *scoped) Token() string     { return s.token }
func (s *scoped) AuthURL() string   { return s.cloud.authURL }

func (s *scoped) service(name string) error {
	s.cloud.mu.Lock()
	defer s.cloud.mu.Unlock()
	if s.cloud.unsupported[name] {
		return &cloudapi.ServiceNotSupportedError{Service: name}
	}
	return nil
}

func (s *scoped) Compute() (cloudapi.ComputeService, error) {
	if err := s.service(ServiceCompute); err != nil {
		return nil, err
	}
	return &compute{s}, nil
}

func (s *scoped) Network() (cloudapi.NetworkService, error) {
	if err := s.service(ServiceNetwork); err != nil {
		return nil, err
	}
	return &network{s}, nil
}

func (s *scoped) BlockStore() (cloudapi.BlockStoreService, error) {
	if err := s.service(ServiceBlockStore); err != nil {
		return nil, err
	}
	return &blockStore{s}, nil
}

func (s *scoped) Image() (cloudapi.ImageService, error) {
	if err := s.service(ServiceImage); err != nil {
		return nil, err
	}
	return &images{s}, nil
}

func (s *scoped) COE() (cloudapi.COEService, error) {
	if err := s.service(ServiceCOE); err != nil {
		return nil, err
	}
	return &coe{s}, nil
}

func (s *scoped) Orchestration() (cloudapi.OrchestrationService, error) {
	if err := s.service(ServiceOrchestration); err != nil {
		return nil, err
	}
	return &orchestration{s}, nil
}

func (s *scoped) Close() error {
	s.cloud.mu.Lock()
	defer s.cloud.mu.Unlock()
	s.cloud.calls = append(s.cloud.calls, "identity.CloseScoped")
	return nil
}

func (s *scoped) state() *projectState {
	return s.cloud.project(s.projectID)
}

var (
	_ cloudapi.Authenticator    = (*Cloud)(nil)
	_ cloudapi.Connection       = (*connection)(nil)
	_ cloudapi.ScopedConnection = (*scoped)(nil)
)
