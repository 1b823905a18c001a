package provider

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/labels"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

// Network resolution runs fresh on every call, in priority order:
// tagged network, name template, then a role specific fallback.

// taggedNetwork returns the first network tagged for role, or nil.
func (s *ScopedSession) taggedNetwork(ctx context.Context, ns cloudapi.NetworkService, role string) (*cloudapi.Network, error) {
	nets, err := ns.Networks(ctx, cloudapi.NetworkListOpts{Tags: []string{labels.NetworkTag(role)}})
	if err != nil {
		return nil, err
	}
	if len(nets) == 0 {
		s.log.Info("Failed to find tagged network", "role", role)
		return nil, nil
	}
	s.log.Info("Using tagged network", "role", role, "network", nets[0].Name)
	return &nets[0], nil
}

// templatedNetwork returns the network named by template. A configured
// template that matches nothing is a configuration error.
func (s *ScopedSession) templatedNetwork(ctx context.Context, ns cloudapi.NetworkService, template, role string) (*cloudapi.Network, error) {
	name := naming.FromTemplate(template, s.tenancy.Name)
	nets, err := ns.Networks(ctx, cloudapi.NetworkListOpts{Name: name})
	if err != nil {
		return nil, err
	}
	if len(nets) == 0 {
		s.log.Info("Failed to find network from template", "role", role, "network", name)
		return nil, cloud.InvalidOperationError("Could not find %s network.", role)
	}
	s.log.Info("Found network using template", "role", role, "network", nets[0].Name)
	return &nets[0], nil
}

// tenantNetwork resolves the internal network. When nothing matches it
// returns nil, or creates the network if create is set.
func (s *ScopedSession) tenantNetwork(ctx context.Context, create bool) (*cloudapi.Network, error) {
	ns, err := s.conn.Network()
	if err != nil {
		return nil, err
	}
	tagged, err := s.taggedNetwork(ctx, ns, labels.RoleInternal)
	if err != nil || tagged != nil {
		return tagged, err
	}
	if s.settings.internalNetworkTemplate != "" {
		return s.templatedNetwork(ctx, ns, s.settings.internalNetworkTemplate, labels.RoleInternal)
	}
	if !create {
		return nil, nil
	}
	return s.createInternalNetwork(ctx, ns)
}

func (s *ScopedSession) createInternalNetwork(ctx context.Context, ns cloudapi.NetworkService) (*cloudapi.Network, error) {
	s.log.Info("Creating internal network", "network", naming.InternalNetwork)
	network, err := ns.CreateNetwork(ctx, naming.InternalNetwork)
	if err != nil {
		return nil, err
	}
	// Tags cannot be set on creation.
	tags := []string{labels.NetworkTag(labels.RoleInternal)}
	if err := ns.SetNetworkTags(ctx, network.ID, tags); err != nil {
		return nil, err
	}
	network.Tags = tags
	s.log.Info("Creating subnet for network", "network", network.Name, "cidr", s.settings.internalNetworkCIDR)
	if _, err := ns.CreateSubnet(ctx, network.ID, 4, s.settings.internalNetworkCIDR); err != nil {
		return nil, err
	}
	return &network, nil
}

// externalNetwork resolves the network external IPs are allocated from.
// Without a tag or template, exactly one external network must be visible.
func (s *ScopedSession) externalNetwork(ctx context.Context) (*cloudapi.Network, error) {
	ns, err := s.conn.Network()
	if err != nil {
		return nil, err
	}
	tagged, err := s.taggedNetwork(ctx, ns, labels.RoleExternal)
	if err != nil || tagged != nil {
		return tagged, err
	}
	if s.settings.externalNetworkTemplate != "" {
		return s.templatedNetwork(ctx, ns, s.settings.externalNetworkTemplate, labels.RoleExternal)
	}

	external, shared, unshared := true, true, false
	// Unshared external networks of the project, then shared ones of any project.
	own, err := ns.Networks(ctx, cloudapi.NetworkListOpts{External: &external, Shared: &unshared, ProjectID: s.tenancy.ID})
	if err != nil {
		return nil, err
	}
	public, err := ns.Networks(ctx, cloudapi.NetworkListOpts{External: &external, Shared: &shared})
	if err != nil {
		return nil, err
	}
	candidates := append(own, public...)
	if len(candidates) != 1 {
		return nil, cloud.InvalidOperationError("Could not find external network.")
	}
	return &candidates[0], nil
}
