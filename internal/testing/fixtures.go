package testing

import (
	"time"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi/memory"
)

// Fixture credentials.
const (
	Username = "alice@example.com"
	Password = "correct-horse"
)

// FixedTime is the clock of fixture clouds.
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// CloudFixture is an in-memory cloud with one user who belongs to one
// enabled and one disabled tenancy. A shared external network, two sizes,
// a plain and a backdoor image, and Kubernetes and non-Kubernetes cluster
// templates are registered.
type CloudFixture struct {
	Cloud    *memory.Cloud
	Project  cloudapi.Project
	Disabled cloudapi.Project
	Username string
	Password string

	External cloudapi.Network
	Small    cloudapi.Flavor
	Large    cloudapi.Flavor

	Image         cloudapi.Image
	BackdoorImage cloudapi.Image

	Template          cloudapi.ClusterTemplate
	MonitoredTemplate cloudapi.ClusterTemplate
	SwarmTemplate     cloudapi.ClusterTemplate
}

// NewCloudFixture creates the fixture cloud.
func NewCloudFixture(opts ...memory.Option) *CloudFixture {
	c := memory.New(append([]memory.Option{memory.WithClock(func() time.Time { return FixedTime })}, opts...)...)
	f := &CloudFixture{Cloud: c, Username: Username, Password: Password}

	f.Project = c.AddProject(cloudapi.Project{Name: "research", Enabled: true})
	f.Disabled = c.AddProject(cloudapi.Project{Name: "archived", Enabled: false})
	c.AddUser(Username, Password, f.Project.ID, f.Disabled.ID)

	services := c.AddProject(cloudapi.Project{Name: "services", Enabled: true})
	f.External = c.AddNetwork(services.ID, cloudapi.Network{Name: "public", External: true, Shared: true})

	f.Small = c.AddFlavor(cloudapi.Flavor{Name: "small", VCPUs: 1, RAM: 2048, Disk: 20})
	f.Large = c.AddFlavor(cloudapi.Flavor{Name: "large", VCPUs: 8, RAM: 32768, Disk: 160})
	c.AddFlavor(cloudapi.Flavor{Name: "retired", VCPUs: 2, RAM: 4096, Disk: 40, Disabled: true})

	f.Image = c.AddImage(cloudapi.Image{
		Name:       "ubuntu-22.04",
		Visibility: "public",
		Size:       2 * 1024 * 1024 * 1024,
		Properties: map[string]string{"portal_os": "linux", "architecture": "x86_64"},
	})
	f.BackdoorImage = c.AddImage(cloudapi.Image{
		Name:       "ubuntu-22.04-backdoor",
		Visibility: "public",
		Properties: map[string]string{"portal_private_if": "eth1"},
	})
	c.AddImage(cloudapi.Image{
		Name:       "fedora-coreos",
		Visibility: "public",
		Properties: map[string]string{"portal_cluster_image": "1"},
	})
	c.AddImage(cloudapi.Image{Name: "queued", Status: "queued"})

	f.Template = c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name:   "kube-1.28",
		COE:    "kubernetes",
		Public: true,
		Labels: map[string]string{"kube_tag": "v1.28.4"},
	})
	f.MonitoredTemplate = c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name:            "kube-1.29-monitored",
		COE:             "kubernetes",
		Public:          true,
		MasterLBEnabled: true,
		Labels:          map[string]string{"kube_tag": "v1.29.1", "monitoring_enabled": "True"},
	})
	c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name:   "kube-hidden",
		COE:    "kubernetes",
		Hidden: true,
	})
	f.SwarmTemplate = c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name: "swarm",
		COE:  "swarm",
	})
	return f
}

// AddTenantNetwork registers a network tagged as the internal network of the fixture tenancy.
func (f *CloudFixture) AddTenantNetwork(name string) cloudapi.Network {
	return f.Cloud.AddNetwork(f.Project.ID, cloudapi.Network{Name: name, Tags: []string{"portal-internal"}})
}

// AddServer registers a server attached to network in the fixture tenancy.
func (f *CloudFixture) AddServer(name string, network cloudapi.Network) cloudapi.Server {
	srv := f.Cloud.AddServer(f.Project.ID, cloudapi.Server{
		Name:     name,
		ImageID:  f.Image.ID,
		FlavorID: f.Small.ID,
	})
	f.Cloud.AddPort(f.Project.ID, cloudapi.Port{NetworkID: network.ID, DeviceID: srv.ID})
	return srv
}
