package memory

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type network struct {
	s *scoped
}

func findPort(st *projectState, id string) *port {
	for _, p := range st.ports {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func findFloatingIP(st *projectState, id string) *cloudapi.FloatingIP {
	for _, f := range st.fips {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (ns *network) Quota(ctx context.Context) (cloudapi.NetworkQuota, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.Quota"); err != nil {
		return cloudapi.NetworkQuota{}, err
	}
	return ns.s.state().networkQuota, nil
}

func (ns *network) Networks(ctx context.Context, opts cloudapi.NetworkListOpts) ([]cloudapi.Network, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.Networks"); err != nil {
		return nil, err
	}
	var out []cloudapi.Network
	for _, pid := range slices.Sorted(maps.Keys(c.state)) {
		for _, n := range c.state[pid].networks {
			if n.ProjectID != ns.s.projectID && !n.Shared {
				continue
			}
			if matchNetwork(n, opts) {
				out = append(out, *n)
			}
		}
	}
	return out, nil
}

func matchNetwork(n *cloudapi.Network, opts cloudapi.NetworkListOpts) bool {
	if opts.Name != "" && n.Name != opts.Name {
		return false
	}
	if opts.ProjectID != "" && n.ProjectID != opts.ProjectID {
		return false
	}
	if opts.External != nil && n.External != *opts.External {
		return false
	}
	if opts.Shared != nil && n.Shared != *opts.Shared {
		return false
	}
	for _, tag := range opts.Tags {
		if !slices.Contains(n.Tags, tag) {
			return false
		}
	}
	return true
}

func (ns *network) CreateNetwork(ctx context.Context, name string) (cloudapi.Network, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.CreateNetwork"); err != nil {
		return cloudapi.Network{}, err
	}
	n := &cloudapi.Network{ID: uuid.NewString(), Name: name, ProjectID: ns.s.projectID}
	st := ns.s.state()
	st.networks = append(st.networks, n)
	return *n, nil
}

func (ns *network) SetNetworkTags(ctx context.Context, networkID string, tags []string) error {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.SetNetworkTags"); err != nil {
		return err
	}
	n := c.networkByID(networkID)
	if n == nil {
		return cloudapi.NotFound("Network %s could not be found.", networkID)
	}
	if n.ProjectID != ns.s.projectID {
		return cloudapi.NewError(http.StatusForbidden, "Not authorized to update network %s.", networkID)
	}
	n.Tags = slices.Clone(tags)
	return nil
}

func (ns *network) CreateSubnet(ctx context.Context, networkID string, ipVersion int, cidr string) (cloudapi.Subnet, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.CreateSubnet"); err != nil {
		return cloudapi.Subnet{}, err
	}
	if c.networkByID(networkID) == nil {
		return cloudapi.Subnet{}, cloudapi.NotFound("Network %s could not be found.", networkID)
	}
	sn := cloudapi.Subnet{ID: uuid.NewString(), NetworkID: networkID, IPVersion: ipVersion, CIDR: cidr}
	st := ns.s.state()
	st.subnets = append(st.subnets, sn)
	return sn, nil
}

// Subnets returns the subnets of projectID, for assertions.
func (c *Cloud) Subnets(projectID string) []cloudapi.Subnet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.project(projectID).subnets)
}

func (ns *network) Ports(ctx context.Context, opts cloudapi.PortListOpts) ([]cloudapi.Port, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.Ports"); err != nil {
		return nil, err
	}
	var out []cloudapi.Port
	for _, p := range ns.s.state().ports {
		if opts.DeviceID != "" && p.DeviceID != opts.DeviceID {
			continue
		}
		if opts.NetworkID != "" && p.NetworkID != opts.NetworkID {
			continue
		}
		out = append(out, p.Port)
	}
	return out, nil
}

func (ns *network) Port(ctx context.Context, id string) (cloudapi.Port, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.Port"); err != nil {
		return cloudapi.Port{}, err
	}
	p := findPort(ns.s.state(), id)
	if p == nil {
		return cloudapi.Port{}, cloudapi.NotFound("Port %s could not be found.", id)
	}
	return p.Port, nil
}

func (ns *network) CreatePort(ctx context.Context, opts cloudapi.PortCreateOpts) (cloudapi.Port, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.CreatePort"); err != nil {
		return cloudapi.Port{}, err
	}
	if c.networkByID(opts.NetworkID) == nil {
		return cloudapi.Port{}, cloudapi.NotFound("Network %s could not be found.", opts.NetworkID)
	}
	p := &port{
		Port:    cloudapi.Port{ID: uuid.NewString(), NetworkID: opts.NetworkID, VNICType: opts.VNICType},
		fixedIP: c.nextAddress("172.16"),
	}
	if p.VNICType == "" {
		p.VNICType = "normal"
	}
	st := ns.s.state()
	st.ports = append(st.ports, p)
	return p.Port, nil
}

func (ns *network) DeletePort(ctx context.Context, id string) error {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.DeletePort"); err != nil {
		return err
	}
	st := ns.s.state()
	if findPort(st, id) == nil {
		return cloudapi.NotFound("Port %s could not be found.", id)
	}
	st.ports = slices.DeleteFunc(st.ports, func(p *port) bool { return p.ID == id })
	for _, f := range st.fips {
		if f.PortID == id {
			f.PortID = ""
		}
	}
	return nil
}

func (ns *network) FloatingIPs(ctx context.Context, portID string) ([]cloudapi.FloatingIP, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.FloatingIPs"); err != nil {
		return nil, err
	}
	var out []cloudapi.FloatingIP
	for _, f := range ns.s.state().fips {
		if portID != "" && f.PortID != portID {
			continue
		}
		out = append(out, *f)
	}
	return out, nil
}

func (ns *network) FloatingIP(ctx context.Context, id string) (cloudapi.FloatingIP, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.FloatingIP"); err != nil {
		return cloudapi.FloatingIP{}, err
	}
	f := findFloatingIP(ns.s.state(), id)
	if f == nil {
		return cloudapi.FloatingIP{}, cloudapi.NotFound("Floating IP %s could not be found.", id)
	}
	return *f, nil
}

func (ns *network) CreateFloatingIP(ctx context.Context, networkID string) (cloudapi.FloatingIP, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.CreateFloatingIP"); err != nil {
		return cloudapi.FloatingIP{}, err
	}
	n := c.networkByID(networkID)
	if n == nil {
		return cloudapi.FloatingIP{}, cloudapi.NotFound("Network %s could not be found.", networkID)
	}
	if !n.External {
		return cloudapi.FloatingIP{}, cloudapi.NewError(http.StatusBadRequest, "Network %s is not a valid external network.", networkID)
	}
	st := ns.s.state()
	if q := st.networkQuota.FloatingIP; q >= 0 && len(st.fips) >= q {
		return cloudapi.FloatingIP{}, cloudapi.NewError(http.StatusConflict, "Quota exceeded for resources: ['floatingip'].")
	}
	f := &cloudapi.FloatingIP{
		ID:                uuid.NewString(),
		FloatingIPAddress: c.nextAddress("203.0"),
		FloatingNetworkID: networkID,
	}
	st.fips = append(st.fips, f)
	return *f, nil
}

func (ns *network) SetFloatingIPPort(ctx context.Context, id, portID string) (cloudapi.FloatingIP, error) {
	c := ns.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "network.SetFloatingIPPort"); err != nil {
		return cloudapi.FloatingIP{}, err
	}
	st := ns.s.state()
	f := findFloatingIP(st, id)
	if f == nil {
		return cloudapi.FloatingIP{}, cloudapi.NotFound("Floating IP %s could not be found.", id)
	}
	if portID != "" {
		if findPort(st, portID) == nil {
			return cloudapi.FloatingIP{}, cloudapi.NotFound("Port %s could not be found.", portID)
		}
		for _, other := range st.fips {
			if other.ID != id && other.PortID == portID {
				return cloudapi.FloatingIP{}, cloudapi.NewError(http.StatusConflict,
					"Cannot associate floating IP %s with port %s because it already has a floating IP.", id, portID)
			}
		}
	}
	f.PortID = portID
	return *f, nil
}
