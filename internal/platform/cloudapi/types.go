package cloudapi

import "time"

// Project is an identity project (tenancy) visible to a connection.
type Project struct {
	ID      string
	Name    string
	Enabled bool
}

// Flavor is a compute flavor.
type Flavor struct {
	ID       string
	Name     string
	VCPUs    int
	RAM      int // MB
	Disk     int // GB
	Disabled bool
}

// Image is a glance-style image record.
type Image struct {
	ID         string
	Name       string
	Status     string
	Visibility string
	// Size in bytes.
	Size       int64
	Properties map[string]string
}

// Address is one address bound to a server on a named network.
type Address struct {
	Addr    string
	Version int
	// Type is "fixed" or "floating".
	Type string
}

// Server is a compute instance record.
type Server struct {
	ID         string
	Name       string
	ImageID    string
	FlavorID   string
	Status     string
	PowerState int
	TaskState  string
	Fault      string
	// Addresses is keyed by network name.
	Addresses       map[string][]Address
	AttachedVolumes []string
	Metadata        map[string]string
	UserID          string
	KeyName         string
	Zone            string
	Created         time.Time
}

// ServerNetwork attaches a server to a network or to an existing port.
type ServerNetwork struct {
	NetworkID string
	PortID    string
}

// ServerCreateOpts are the parameters for creating a server.
type ServerCreateOpts struct {
	Name             string
	ImageID          string
	FlavorID         string
	Networks         []ServerNetwork
	AvailabilityZone string
	KeyName          string
	Metadata         map[string]string
	// UserData must already be base64 encoded.
	UserData string
}

// RebootType selects a soft or hard reboot.
type RebootType string

const (
	RebootSoft RebootType = "SOFT"
	RebootHard RebootType = "HARD"
)

// Keypair is a named SSH public key.
type Keypair struct {
	Name      string
	PublicKey string
}

// VolumeAttachment links a volume to a server.
type VolumeAttachment struct {
	ID       string
	ServerID string
	VolumeID string
	Device   string
}

// ComputeLimits are the absolute compute limits of a project.
// A negative maximum means unlimited.
type ComputeLimits struct {
	MaxTotalCores      int
	TotalCoresUsed     int
	MaxTotalRAMSize    int
	TotalRAMUsed       int
	MaxTotalInstances  int
	TotalInstancesUsed int
}

// Network is a neutron-style network.
type Network struct {
	ID        string
	Name      string
	ProjectID string
	External  bool
	Shared    bool
	Tags      []string
}

// NetworkListOpts filters network listings. Nil pointers do not filter.
type NetworkListOpts struct {
	Name string
	Tags []string
	// ProjectID restricts results to networks owned by the project.
	ProjectID string
	External  *bool
	Shared    *bool
}

// Subnet is an address range on a network.
type Subnet struct {
	ID        string
	NetworkID string
	IPVersion int
	CIDR      string
}

// Port is a network attachment point.
type Port struct {
	ID        string
	NetworkID string
	DeviceID  string
	VNICType  string
}

// PortListOpts filters port listings.
type PortListOpts struct {
	DeviceID  string
	NetworkID string
}

// PortCreateOpts are the parameters for creating a port.
type PortCreateOpts struct {
	NetworkID string
	VNICType  string
}

// FloatingIP is an external address allocated from an external network.
type FloatingIP struct {
	ID                string
	FloatingIPAddress string
	FloatingNetworkID string
	PortID            string
}

// NetworkQuota holds the network quotas of a project.
type NetworkQuota struct {
	FloatingIP int
}

// Volume is a block storage volume record.
type Volume struct {
	ID          string
	Name        string
	Status      string
	Size        int
	Attachments []VolumeAttachment
}

// VolumeCreateOpts are the parameters for creating a volume.
type VolumeCreateOpts struct {
	Name string
	Size int
}

// BlockStoreLimits are the absolute block storage limits of a project.
type BlockStoreLimits struct {
	MaxTotalVolumeGigabytes int
	TotalGigabytesUsed      int
	MaxTotalVolumes         int
	TotalVolumesUsed        int
}

// ClusterTemplate is a container orchestration cluster template.
type ClusterTemplate struct {
	UUID            string
	Name            string
	COE             string
	Labels          map[string]string
	MasterLBEnabled bool
	Public          bool
	Hidden          bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Cluster is a container orchestration cluster.
type Cluster struct {
	UUID               string
	Name               string
	ClusterTemplateID  string
	COEVersion         string
	Status             string
	StatusReason       string
	HealthStatus       string
	HealthStatusReason map[string]string
	APIAddress         string
	MasterCount        int
	NodeCount          int
	// MasterFlavorID and FlavorID may hold flavor names instead of ids.
	MasterFlavorID string
	FlavorID       string
	Keypair        string
	Labels         map[string]string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// ClusterCreateOpts are the parameters for creating a cluster.
type ClusterCreateOpts struct {
	Name              string
	ClusterTemplateID string
	MasterFlavorID    string
	FlavorID          string
	NodeCount         int
	Keypair           string
	Labels            map[string]string
}

// Certificate is a PEM encoded certificate issued by a cluster CA.
type Certificate struct {
	ClusterUUID string
	PEM         string
}

// Stack is an orchestration stack.
type Stack struct {
	ID   string
	Name string
	Tags []string
}
