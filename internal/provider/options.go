package provider

import (
	"crypto/rand"
	"io"
	"maps"
	mathrand "math/rand/v2"

	"github.com/go-logr/logr"

	"github.com/imamik/cloudbroker/internal/clusterengine"
)

// Defaults applied when the corresponding option is not given.
const (
	DefaultMetadataPrefix      = "portal_"
	DefaultInternalNetworkCIDR = "192.168.3.0/24"
)

type settings struct {
	metadataPrefix          string
	internalNetworkTemplate string
	externalNetworkTemplate string
	internalNetworkCIDR     string
	// backdoorNetworks maps availability zone to backdoor network id.
	backdoorNetworks map[string]string
	backdoorVNICType string
	clusterEngine    clusterengine.Engine
	logger           logr.Logger
	intN             func(n int) int
	entropy          io.Reader
}

// Option configures a Provider.
type Option func(*settings)

// WithMetadataPrefix sets the prefix of every metadata key owned by the broker.
func WithMetadataPrefix(prefix string) Option {
	return func(s *settings) { s.metadataPrefix = prefix }
}

// WithInternalNetworkTemplate sets the name template of the internal network.
// The fragment {tenant_name} is replaced with the tenancy name.
func WithInternalNetworkTemplate(template string) Option {
	return func(s *settings) { s.internalNetworkTemplate = template }
}

// WithExternalNetworkTemplate sets the name template of the external network.
func WithExternalNetworkTemplate(template string) Option {
	return func(s *settings) { s.externalNetworkTemplate = template }
}

// WithInternalNetworkCIDR sets the subnet range of an auto-created internal network.
func WithInternalNetworkCIDR(cidr string) Option {
	return func(s *settings) { s.internalNetworkCIDR = cidr }
}

// WithBackdoorNetworks sets the availability zone to backdoor network id map.
func WithBackdoorNetworks(zones map[string]string) Option {
	return func(s *settings) { s.backdoorNetworks = maps.Clone(zones) }
}

// WithBackdoorVNICType sets the vNIC type of backdoor ports.
func WithBackdoorVNICType(vnicType string) Option {
	return func(s *settings) { s.backdoorVNICType = vnicType }
}

// WithClusterEngine enables application clusters through engine.
func WithClusterEngine(engine clusterengine.Engine) Option {
	return func(s *settings) { s.clusterEngine = engine }
}

// WithLogger sets the audit logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRand sets the random source used to pick availability zones.
// A *rand.Rand is not safe for concurrent use; share it only between
// sessions used from one goroutine.
func WithRand(r *mathrand.Rand) Option {
	return func(s *settings) { s.intN = r.IntN }
}

// WithEntropy sets the cryptographic random source for generated passwords.
func WithEntropy(r io.Reader) Option {
	return func(s *settings) { s.entropy = r }
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		metadataPrefix:      DefaultMetadataPrefix,
		internalNetworkCIDR: DefaultInternalNetworkCIDR,
		backdoorNetworks:    map[string]string{},
		logger:              logr.Discard(),
		intN:                mathrand.IntN,
		entropy:             rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
