package handlers

import (
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi/memory"
)

// Credentials of the demo cloud used by the memory backend.
const (
	demoUsername = "demo"
	demoPassword = "demo"
)

// newDemoCloud seeds an in-memory cloud with one tenancy, a shared external
// network, a few sizes and images, and a Kubernetes template. State lives
// only as long as the process.
func newDemoCloud(opts ...memory.Option) *memory.Cloud {
	c := memory.New(opts...)

	project := c.AddProject(cloudapi.Project{Name: "demo", Enabled: true})
	c.AddUser(demoUsername, demoPassword, project.ID)

	services := c.AddProject(cloudapi.Project{Name: "services", Enabled: true})
	c.AddNetwork(services.ID, cloudapi.Network{Name: "public", External: true, Shared: true})

	c.AddFlavor(cloudapi.Flavor{Name: "m1.small", VCPUs: 1, RAM: 2048, Disk: 20})
	c.AddFlavor(cloudapi.Flavor{Name: "m1.medium", VCPUs: 2, RAM: 4096, Disk: 40})
	c.AddFlavor(cloudapi.Flavor{Name: "m1.large", VCPUs: 4, RAM: 8192, Disk: 80})

	c.AddImage(cloudapi.Image{
		Name:       "ubuntu-24.04",
		Visibility: "public",
		Size:       2 << 30,
		Properties: map[string]string{"portal_os": "linux", "architecture": "x86_64"},
	})
	c.AddImage(cloudapi.Image{
		Name:       "debian-12",
		Visibility: "public",
		Size:       1 << 30,
		Properties: map[string]string{"portal_os": "linux", "architecture": "x86_64"},
	})

	c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name:   "kubernetes-1.30",
		COE:    "kubernetes",
		Public: true,
		Labels: map[string]string{"kube_tag": "v1.30.4"},
	})
	c.AddClusterTemplate(cloudapi.ClusterTemplate{
		Name:            "kubernetes-1.30-monitored",
		COE:             "kubernetes",
		Public:          true,
		MasterLBEnabled: true,
		Labels:          map[string]string{"kube_tag": "v1.30.4", "monitoring_enabled": "true"},
	})
	return c
}
