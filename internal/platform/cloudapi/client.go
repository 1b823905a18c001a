// Package cloudapi defines the remote cloud API consumed by the provider.
//
// The contract follows the OpenStack object model (projects, servers, ports,
// floating IPs, COE clusters). Backends live in sub-packages or sibling
// platform packages and translate their native APIs into these records.
package cloudapi

import "context"

// Authenticator opens connections to the remote API.
type Authenticator interface {
	// WithPassword authenticates with username and password.
	WithPassword(ctx context.Context, username, password string) (Connection, error)
	// WithToken resumes a session from an existing token.
	WithToken(ctx context.Context, token string) (Connection, error)
}

// Connection is an authenticated, unscoped connection.
type Connection interface {
	Username() string
	UserID() string
	Token() string
	AuthURL() string
	// Projects lists the projects the user belongs to.
	Projects(ctx context.Context) ([]Project, error)
	// Scoped returns a connection bound to a single project.
	Scoped(ctx context.Context, projectID string) (ScopedConnection, error)
	Close() error
}

// ScopedConnection is a connection bound to one project.
// Service accessors return *ServiceNotSupportedError when the deployment lacks the service.
type ScopedConnection interface {
	ProjectID() string
	Token() string
	AuthURL() string
	Compute() (ComputeService, error)
	Network() (NetworkService, error)
	BlockStore() (BlockStoreService, error)
	Image() (ImageService, error)
	COE() (COEService, error)
	Orchestration() (OrchestrationService, error)
	Close() error
}

// GetOption modifies a single get call.
type GetOption func(*GetOptions)

// GetOptions holds the options of a get call.
type GetOptions struct {
	// Force bypasses any upstream read cache.
	Force bool
}

// Force requests an authoritative read that skips upstream caches.
func Force() GetOption {
	return func(o *GetOptions) { o.Force = true }
}

// ApplyGetOptions folds options into a GetOptions value.
func ApplyGetOptions(opts ...GetOption) GetOptions {
	var o GetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ComputeService manages servers, flavors and keypairs.
type ComputeService interface {
	Limits(ctx context.Context) (ComputeLimits, error)
	Flavors(ctx context.Context) ([]Flavor, error)
	Flavor(ctx context.Context, id string) (Flavor, error)

	Servers(ctx context.Context) ([]Server, error)
	Server(ctx context.Context, id string) (Server, error)
	CreateServer(ctx context.Context, opts ServerCreateOpts) (Server, error)
	DeleteServer(ctx context.Context, id string) error
	StartServer(ctx context.Context, id string) error
	StopServer(ctx context.Context, id string) error
	RebootServer(ctx context.Context, id string, rebootType RebootType) error
	ConsoleLog(ctx context.Context, id string) (string, error)

	// Keypair fetches a keypair by name. Returns a 404 *Error if it does not exist.
	Keypair(ctx context.Context, name string, opts ...GetOption) (Keypair, error)
	CreateKeypair(ctx context.Context, name, publicKey string) (Keypair, error)
	DeleteKeypair(ctx context.Context, name string) error

	VolumeAttachments(ctx context.Context, serverID string) ([]VolumeAttachment, error)
	AttachVolume(ctx context.Context, serverID, volumeID string) (VolumeAttachment, error)
	DetachVolume(ctx context.Context, serverID, attachmentID string) error
}

// NetworkService manages networks, ports and floating IPs.
type NetworkService interface {
	Quota(ctx context.Context) (NetworkQuota, error)

	Networks(ctx context.Context, opts NetworkListOpts) ([]Network, error)
	CreateNetwork(ctx context.Context, name string) (Network, error)
	// SetNetworkTags replaces the tags of a network.
	SetNetworkTags(ctx context.Context, networkID string, tags []string) error
	CreateSubnet(ctx context.Context, networkID string, ipVersion int, cidr string) (Subnet, error)

	Ports(ctx context.Context, opts PortListOpts) ([]Port, error)
	Port(ctx context.Context, id string) (Port, error)
	CreatePort(ctx context.Context, opts PortCreateOpts) (Port, error)
	DeletePort(ctx context.Context, id string) error

	// FloatingIPs lists floating IPs, optionally only those bound to portID.
	FloatingIPs(ctx context.Context, portID string) ([]FloatingIP, error)
	FloatingIP(ctx context.Context, id string) (FloatingIP, error)
	CreateFloatingIP(ctx context.Context, networkID string) (FloatingIP, error)
	// SetFloatingIPPort binds a floating IP to a port, or unbinds it when portID is empty.
	SetFloatingIPPort(ctx context.Context, id, portID string) (FloatingIP, error)
}

// BlockStoreService manages volumes.
type BlockStoreService interface {
	Limits(ctx context.Context) (BlockStoreLimits, error)
	Volumes(ctx context.Context) ([]Volume, error)
	Volume(ctx context.Context, id string, opts ...GetOption) (Volume, error)
	CreateVolume(ctx context.Context, opts VolumeCreateOpts) (Volume, error)
	DeleteVolume(ctx context.Context, id string) error
}

// ImageService lists images.
type ImageService interface {
	Images(ctx context.Context) ([]Image, error)
	Image(ctx context.Context, id string) (Image, error)
}

// COEService manages container orchestration clusters.
type COEService interface {
	ClusterTemplates(ctx context.Context) ([]ClusterTemplate, error)
	ClusterTemplate(ctx context.Context, id string) (ClusterTemplate, error)
	Clusters(ctx context.Context) ([]Cluster, error)
	Cluster(ctx context.Context, id string) (Cluster, error)
	CreateCluster(ctx context.Context, opts ClusterCreateOpts) (Cluster, error)
	UpgradeCluster(ctx context.Context, id, templateID string) (Cluster, error)
	DeleteCluster(ctx context.Context, id string) error
	// SignCertificate signs a PEM CSR with the cluster CA.
	SignCertificate(ctx context.Context, clusterID, csrPEM string) (Certificate, error)
	// CACertificate returns the cluster CA certificate.
	CACertificate(ctx context.Context, clusterID string) (Certificate, error)
}

// OrchestrationService looks up orchestration stacks.
type OrchestrationService interface {
	// StackByName returns a 404 *Error when no stack has the name.
	StackByName(ctx context.Context, name string) (Stack, error)
}
