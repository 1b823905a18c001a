package memory

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// AddFlavor registers a flavor.
func (c *Cloud) AddFlavor(f cloudapi.Flavor) cloudapi.Flavor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	c.flavors = append(c.flavors, f)
	return f
}

// AddImage registers an image.
func (c *Cloud) AddImage(img cloudapi.Image) cloudapi.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.Status == "" {
		img.Status = "active"
	}
	img.Properties = maps.Clone(img.Properties)
	c.images = append(c.images, img)
	return img
}

// AddNetwork registers a network owned by projectID.
func (c *Cloud) AddNetwork(projectID string, n cloudapi.Network) cloudapi.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.ProjectID = projectID
	n.Tags = slices.Clone(n.Tags)
	st := c.project(projectID)
	st.networks = append(st.networks, &n)
	return n
}

// AddPort registers a port in projectID, bound to DeviceID if set.
func (c *Cloud) AddPort(projectID string, p cloudapi.Port) cloudapi.Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	st := c.project(projectID)
	st.ports = append(st.ports, &port{Port: p, fixedIP: c.nextAddress("10.0")})
	return p
}

// AddServer registers a server in projectID. Explicit Addresses are kept as given;
// addresses of ports bound to the server are added on read.
func (c *Cloud) AddServer(projectID string, s cloudapi.Server) cloudapi.Server {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = "ACTIVE"
		s.PowerState = 1
	}
	if s.Created.IsZero() {
		s.Created = c.now()
	}
	s.Metadata = maps.Clone(s.Metadata)
	st := c.project(projectID)
	st.servers = append(st.servers, &s)
	return s
}

// AddVolume registers a volume in projectID.
func (c *Cloud) AddVolume(projectID string, v cloudapi.Volume) cloudapi.Volume {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = "available"
	}
	v.Attachments = slices.Clone(v.Attachments)
	st := c.project(projectID)
	st.volumes = append(st.volumes, &v)
	return v
}

// AddFloatingIP registers a floating IP in projectID.
func (c *Cloud) AddFloatingIP(projectID string, fip cloudapi.FloatingIP) cloudapi.FloatingIP {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fip.ID == "" {
		fip.ID = uuid.NewString()
	}
	if fip.FloatingIPAddress == "" {
		fip.FloatingIPAddress = c.nextAddress("203.0")
	}
	st := c.project(projectID)
	st.fips = append(st.fips, &fip)
	return fip
}

// AddClusterTemplate registers a COE cluster template.
func (c *Cloud) AddClusterTemplate(t cloudapi.ClusterTemplate) cloudapi.ClusterTemplate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now()
	}
	t.Labels = maps.Clone(t.Labels)
	c.templates = append(c.templates, t)
	return t
}

// AddCluster registers a COE cluster in projectID.
func (c *Cloud) AddCluster(projectID string, cl cloudapi.Cluster) cloudapi.Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl.UUID == "" {
		cl.UUID = uuid.NewString()
	}
	if cl.CreatedAt.IsZero() {
		cl.CreatedAt = c.now()
	}
	cl.Labels = maps.Clone(cl.Labels)
	st := c.project(projectID)
	st.clusters = append(st.clusters, &cl)
	return cl
}

// AddStack registers an orchestration stack in projectID.
func (c *Cloud) AddStack(projectID string, s cloudapi.Stack) cloudapi.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	st := c.project(projectID)
	st.stacks = append(st.stacks, s)
	return s
}

// AddKeypair registers a keypair for a user.
func (c *Cloud) AddKeypair(username string, kp cloudapi.Keypair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[username]
	if !ok {
		return
	}
	c.keypairs[u.id] = append(c.keypairs[u.id], kp)
}

// SetConsoleLog sets the console output of a server.
func (c *Cloud) SetConsoleLog(serverID, log string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consoleLogs[serverID] = log
}

// UserData returns the encoded user data a server was created with.
func (c *Cloud) UserData(serverID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userData[serverID]
}

// SetComputeLimits sets the compute limits reported for projectID.
func (c *Cloud) SetComputeLimits(projectID string, l cloudapi.ComputeLimits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project(projectID).computeLimits = l
}

// SetBlockStoreLimits sets the block storage limits reported for projectID.
func (c *Cloud) SetBlockStoreLimits(projectID string, l cloudapi.BlockStoreLimits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project(projectID).blockLimits = l
}

// SetNetworkQuota sets the network quota reported for projectID.
func (c *Cloud) SetNetworkQuota(projectID string, q cloudapi.NetworkQuota) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project(projectID).networkQuota = q
}

// FinishClusterDeletions removes every cluster whose deletion was requested.
func (c *Cloud) FinishClusterDeletions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.state {
		st.clusters = slices.DeleteFunc(st.clusters, func(cl *cloudapi.Cluster) bool {
			return st.deleting[cl.UUID]
		})
		clear(st.deleting)
	}
}

// Networks returns every network of projectID, for assertions.
func (c *Cloud) Networks(projectID string) []cloudapi.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cloudapi.Network
	for _, n := range c.project(projectID).networks {
		out = append(out, *n)
	}
	return out
}

// Ports returns every port of projectID, for assertions.
func (c *Cloud) Ports(projectID string) []cloudapi.Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cloudapi.Port
	for _, p := range c.project(projectID).ports {
		out = append(out, p.Port)
	}
	return out
}

// FloatingIPs returns every floating IP of projectID, for assertions.
func (c *Cloud) FloatingIPs(projectID string) []cloudapi.FloatingIP {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cloudapi.FloatingIP
	for _, f := range c.project(projectID).fips {
		out = append(out, *f)
	}
	return out
}

// Servers returns every server of projectID, for assertions.
func (c *Cloud) Servers(projectID string) []cloudapi.Server {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.project(projectID)
	var out []cloudapi.Server
	for _, s := range st.servers {
		out = append(out, c.serverView(st, s))
	}
	return out
}

// Keypairs returns the keypairs of a user, for assertions.
func (c *Cloud) Keypairs(username string) []cloudapi.Keypair {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[username]
	if !ok {
		return nil
	}
	return slices.Clone(c.keypairs[u.id])
}
