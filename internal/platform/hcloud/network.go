package hcloud

import (
	"context"
	"maps"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

const vnicNormal = "normal"

type networkService scoped

var _ cloudapi.NetworkService = (*networkService)(nil)

func (ns *networkService) scoped() *scoped { return (*scoped)(ns) }

// Quota reports unlimited floating IPs.
func (ns *networkService) Quota(context.Context) (cloudapi.NetworkQuota, error) {
	return cloudapi.NetworkQuota{FloatingIP: -1}, nil
}

// Networks lists the synthetic public network and the private networks
// matching opts.
func (ns *networkService) Networks(ctx context.Context, opts cloudapi.NetworkListOpts) ([]cloudapi.Network, error) {
	all, err := ns.client.Network.All(ctx)
	if err != nil {
		return nil, apiError("list networks", err)
	}
	candidates := make([]cloudapi.Network, 0, len(all)+1)
	candidates = append(candidates, ns.backend.publicNetwork())
	for _, n := range all {
		candidates = append(candidates, ns.backend.toNetwork(n))
	}
	var networks []cloudapi.Network
	for _, n := range candidates {
		if matchNetwork(n, opts) {
			networks = append(networks, n)
		}
	}
	return networks, nil
}

func matchNetwork(n cloudapi.Network, opts cloudapi.NetworkListOpts) bool {
	switch {
	case opts.Name != "" && n.Name != opts.Name:
		return false
	case opts.ProjectID != "" && n.ProjectID != opts.ProjectID:
		return false
	case opts.External != nil && n.External != *opts.External:
		return false
	case opts.Shared != nil && n.Shared != *opts.Shared:
		return false
	}
	for _, tag := range opts.Tags {
		if !slices.Contains(n.Tags, tag) {
			return false
		}
	}
	return true
}

func (ns *networkService) network(ctx context.Context, id string) (*hcloud.Network, error) {
	n, err := parseID("Network", id)
	if err != nil {
		return nil, err
	}
	network, _, err := ns.client.Network.GetByID(ctx, n)
	if err != nil {
		return nil, apiError("get network", err)
	}
	if network == nil {
		return nil, notFound("Network", id)
	}
	return network, nil
}

// CreateNetwork creates a private network spanning the configured range.
func (ns *networkService) CreateNetwork(ctx context.Context, name string) (cloudapi.Network, error) {
	_, ipRange, err := net.ParseCIDR(ns.backend.networkRange)
	if err != nil {
		return cloudapi.Network{}, badRequest("Invalid network range %s.", ns.backend.networkRange)
	}
	network, _, err := ns.client.Network.Create(ctx, hcloud.NetworkCreateOpts{Name: name, IPRange: ipRange})
	if err != nil {
		return cloudapi.Network{}, apiError("create network", err)
	}
	return ns.backend.toNetwork(network), nil
}

// SetNetworkTags replaces the tags of a private network.
func (ns *networkService) SetNetworkTags(ctx context.Context, networkID string, tags []string) error {
	if networkID == publicPortID {
		return badRequest("Network %s cannot be tagged.", networkID)
	}
	network, err := ns.network(ctx, networkID)
	if err != nil {
		return err
	}
	labels := maps.Clone(network.Labels)
	if labels == nil {
		labels = make(map[string]string, len(tags))
	}
	maps.DeleteFunc(labels, func(k, _ string) bool {
		return strings.HasPrefix(k, labelTagPrefix)
	})
	for _, tag := range tags {
		labels[labelTagPrefix+tag] = "true"
	}
	if _, _, err := ns.client.Network.Update(ctx, network, hcloud.NetworkUpdateOpts{Labels: labels}); err != nil {
		return apiError("update network", err)
	}
	return nil
}

// CreateSubnet adds a cloud subnet in the configured network zone.
func (ns *networkService) CreateSubnet(ctx context.Context, networkID string, ipVersion int, cidr string) (cloudapi.Subnet, error) {
	if ipVersion != 4 {
		return cloudapi.Subnet{}, badRequest("Only IPv4 subnets are supported.")
	}
	_, ipRange, err := net.ParseCIDR(cidr)
	if err != nil {
		return cloudapi.Subnet{}, badRequest("Invalid CIDR %s.", cidr)
	}
	network, err := ns.network(ctx, networkID)
	if err != nil {
		return cloudapi.Subnet{}, err
	}
	action, _, err := ns.client.Network.AddSubnet(ctx, network, hcloud.NetworkAddSubnetOpts{
		Subnet: hcloud.NetworkSubnet{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     ipRange,
			NetworkZone: ns.backend.networkZone,
		},
	})
	if err != nil {
		return cloudapi.Subnet{}, apiError("add subnet", err)
	}
	if err := ns.scoped().waitFor(ctx, "add subnet", action); err != nil {
		return cloudapi.Subnet{}, err
	}
	return cloudapi.Subnet{
		ID:        networkID + "/" + ipRange.String(),
		NetworkID: networkID,
		IPVersion: ipVersion,
		CIDR:      ipRange.String(),
	}, nil
}

// serverPorts lists the public port and one port per private network.
func serverPorts(srv *hcloud.Server) []cloudapi.Port {
	deviceID := formatID(srv.ID)
	ports := []cloudapi.Port{{ID: serverPortID(srv.ID, publicPortID), NetworkID: publicPortID, DeviceID: deviceID, VNICType: vnicNormal}}
	for _, pn := range srv.PrivateNet {
		if pn.Network == nil {
			continue
		}
		networkID := formatID(pn.Network.ID)
		ports = append(ports, cloudapi.Port{ID: serverPortID(srv.ID, networkID), NetworkID: networkID, DeviceID: deviceID, VNICType: vnicNormal})
	}
	return ports
}

func (ns *networkService) Ports(ctx context.Context, opts cloudapi.PortListOpts) ([]cloudapi.Port, error) {
	var servers []*hcloud.Server
	if opts.DeviceID != "" {
		id, err := parseID("Server", opts.DeviceID)
		if err != nil {
			return nil, err
		}
		srv, _, err := ns.client.Server.GetByID(ctx, id)
		if err != nil {
			return nil, apiError("get server", err)
		}
		if srv != nil {
			servers = append(servers, srv)
		}
	} else {
		all, err := ns.client.Server.All(ctx)
		if err != nil {
			return nil, apiError("list servers", err)
		}
		servers = all
	}
	var ports []cloudapi.Port
	for _, srv := range servers {
		for _, p := range serverPorts(srv) {
			if opts.NetworkID == "" || p.NetworkID == opts.NetworkID {
				ports = append(ports, p)
			}
		}
	}
	return ports, nil
}

func (ns *networkService) Port(ctx context.Context, id string) (cloudapi.Port, error) {
	serverID, _, err := splitPortID(id)
	if err != nil {
		return cloudapi.Port{}, err
	}
	srv, _, err := ns.client.Server.GetByID(ctx, serverID)
	if err != nil {
		return cloudapi.Port{}, apiError("get server", err)
	}
	if srv != nil {
		for _, p := range serverPorts(srv) {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return cloudapi.Port{}, notFound("Port", id)
}

// CreatePort always fails: ports only exist as network attachments of
// servers.
func (ns *networkService) CreatePort(context.Context, cloudapi.PortCreateOpts) (cloudapi.Port, error) {
	return cloudapi.Port{}, badRequest("Standalone ports are not supported.")
}

// DeletePort detaches the server from the port's private network. Public
// ports go away with their server.
func (ns *networkService) DeletePort(ctx context.Context, id string) error {
	port, err := ns.Port(ctx, id)
	if err != nil {
		return err
	}
	if port.NetworkID == publicPortID {
		return nil
	}
	serverID, _ := strconv.ParseInt(port.DeviceID, 10, 64)
	networkID, _ := strconv.ParseInt(port.NetworkID, 10, 64)
	action, _, err := ns.client.Server.DetachFromNetwork(ctx, &hcloud.Server{ID: serverID}, hcloud.ServerDetachFromNetworkOpts{
		Network: &hcloud.Network{ID: networkID},
	})
	if err != nil {
		return apiError("detach server from network", err)
	}
	return ns.scoped().waitFor(ctx, "detach server from network", action)
}

// FloatingIPs lists floating IPs, optionally only those assigned to the
// server owning portID.
func (ns *networkService) FloatingIPs(ctx context.Context, portID string) ([]cloudapi.FloatingIP, error) {
	var serverID int64
	if portID != "" {
		id, _, err := splitPortID(portID)
		if err != nil {
			return nil, err
		}
		serverID = id
	}
	all, err := ns.client.FloatingIP.All(ctx)
	if err != nil {
		return nil, apiError("list floating IPs", err)
	}
	fips := make([]cloudapi.FloatingIP, 0, len(all))
	for _, f := range all {
		if serverID != 0 && (f.Server == nil || f.Server.ID != serverID) {
			continue
		}
		fips = append(fips, toFloatingIP(f))
	}
	return fips, nil
}

func (ns *networkService) FloatingIP(ctx context.Context, id string) (cloudapi.FloatingIP, error) {
	f, err := ns.floatingIP(ctx, id)
	if err != nil {
		return cloudapi.FloatingIP{}, err
	}
	return toFloatingIP(f), nil
}

func (ns *networkService) floatingIP(ctx context.Context, id string) (*hcloud.FloatingIP, error) {
	n, err := parseID("FloatingIP", id)
	if err != nil {
		return nil, err
	}
	f, _, err := ns.client.FloatingIP.GetByID(ctx, n)
	if err != nil {
		return nil, apiError("get floating IP", err)
	}
	if f == nil {
		return nil, notFound("FloatingIP", id)
	}
	return f, nil
}

// CreateFloatingIP allocates an IPv4 floating IP homed in the configured
// location. Only the public network can hold floating IPs.
func (ns *networkService) CreateFloatingIP(ctx context.Context, networkID string) (cloudapi.FloatingIP, error) {
	if networkID != publicPortID {
		return cloudapi.FloatingIP{}, notFound("Network", networkID)
	}
	if ns.backend.location == "" {
		return cloudapi.FloatingIP{}, badRequest("No location configured for floating IPs.")
	}
	result, _, err := ns.client.FloatingIP.Create(ctx, hcloud.FloatingIPCreateOpts{
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: &hcloud.Location{Name: ns.backend.location},
	})
	if err != nil {
		return cloudapi.FloatingIP{}, apiError("create floating IP", err)
	}
	if err := ns.scoped().waitFor(ctx, "create floating IP", result.Action); err != nil {
		return cloudapi.FloatingIP{}, err
	}
	return toFloatingIP(result.FloatingIP), nil
}

// SetFloatingIPPort assigns a floating IP to the server owning portID, or
// unassigns it when portID is empty.
func (ns *networkService) SetFloatingIPPort(ctx context.Context, id, portID string) (cloudapi.FloatingIP, error) {
	f, err := ns.floatingIP(ctx, id)
	if err != nil {
		return cloudapi.FloatingIP{}, err
	}
	var action *hcloud.Action
	switch {
	case portID == "" && f.Server == nil:
		return toFloatingIP(f), nil
	case portID == "":
		action, _, err = ns.client.FloatingIP.Unassign(ctx, f)
	default:
		port, perr := ns.Port(ctx, portID)
		if perr != nil {
			return cloudapi.FloatingIP{}, perr
		}
		serverID, _ := strconv.ParseInt(port.DeviceID, 10, 64)
		action, _, err = ns.client.FloatingIP.Assign(ctx, f, &hcloud.Server{ID: serverID})
	}
	if err != nil {
		return cloudapi.FloatingIP{}, apiError("assign floating IP", err)
	}
	if err := ns.scoped().waitFor(ctx, "assign floating IP", action); err != nil {
		return cloudapi.FloatingIP{}, err
	}
	return ns.FloatingIP(ctx, id)
}
