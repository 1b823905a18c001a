package provider

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// ExternalIPs lists the external IPs of the tenancy. The ports of all IPs
// are resolved from a single port listing, issued only if any IP exists.
func (s *ScopedSession) ExternalIPs(ctx context.Context) ([]cloud.ExternalIP, error) {
	return do(ctx, s.log, "external_ips", func() ([]cloud.ExternalIP, error) {
		s.log.Info("Fetching floating ips")
		ns, err := s.conn.Network()
		if err != nil {
			return nil, err
		}
		fips, err := ns.FloatingIPs(ctx, "")
		if err != nil {
			return nil, err
		}
		s.log.Info("Found floating ips", "count", len(fips))
		ips := make([]cloud.ExternalIP, 0, len(fips))
		if len(fips) == 0 {
			return ips, nil
		}
		s.log.Info("Fetching ports")
		ports, err := ns.Ports(ctx, cloudapi.PortListOpts{})
		if err != nil {
			return nil, err
		}
		devices := make(map[string]string, len(ports))
		for _, p := range ports {
			devices[p.ID] = p.DeviceID
		}
		for _, fip := range fips {
			ips = append(ips, toExternalIP(fip, devices[fip.PortID]))
		}
		return ips, nil
	})
}

// machineOf resolves the machine an external IP is bound to through its port.
func (s *ScopedSession) machineOf(ctx context.Context, ns cloudapi.NetworkService, fip cloudapi.FloatingIP) (cloud.ExternalIP, error) {
	if fip.PortID == "" {
		return toExternalIP(fip, ""), nil
	}
	port, err := ns.Port(ctx, fip.PortID)
	if err != nil {
		return cloud.ExternalIP{}, err
	}
	return toExternalIP(fip, port.DeviceID), nil
}

// AllocateExternalIP allocates a new IP on the external network.
func (s *ScopedSession) AllocateExternalIP(ctx context.Context) (cloud.ExternalIP, error) {
	return do(ctx, s.log, "allocate_external_ip", func() (cloud.ExternalIP, error) {
		s.log.Info("Allocating new floating ip")
		external, err := s.externalNetwork(ctx)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		ns, err := s.conn.Network()
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		fip, err := ns.CreateFloatingIP(ctx, external.ID)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		s.log.Info("Allocated new floating ip", "address", fip.FloatingIPAddress)
		return toExternalIP(fip, ""), nil
	})
}

// FindExternalIP returns one external IP.
func (s *ScopedSession) FindExternalIP(ctx context.Context, id string) (cloud.ExternalIP, error) {
	return do(ctx, s.log, "find_external_ip", func() (cloud.ExternalIP, error) {
		s.log.Info("Fetching floating ip", "ip", id)
		ns, err := s.conn.Network()
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		fip, err := ns.FloatingIP(ctx, id)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		return s.machineOf(ctx, ns, fip)
	})
}

// AttachExternalIP binds an external IP to the tenant network port of a
// machine. Any other IP bound to that port is unbound first, so a port
// never carries more than one external IP.
func (s *ScopedSession) AttachExternalIP(ctx context.Context, ip cloud.Ref[cloud.ExternalIP], machine cloud.Ref[cloud.Machine]) (cloud.ExternalIP, error) {
	return do(ctx, s.log, "attach_external_ip", func() (cloud.ExternalIP, error) {
		s.log.Info("Attaching floating ip", "ip", ip.ID(), "machine", machine.ID())
		ns, err := s.conn.Network()
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		tenant, err := s.tenantNetwork(ctx, false)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		var ports []cloudapi.Port
		if tenant != nil {
			ports, err = ns.Ports(ctx, cloudapi.PortListOpts{DeviceID: machine.ID(), NetworkID: tenant.ID})
			if err != nil {
				return cloud.ExternalIP{}, err
			}
		}
		if len(ports) == 0 {
			return cloud.ExternalIP{}, cloud.InvalidOperationError("Machine is not connected to tenant network.")
		}
		port := ports[0]

		current, err := ns.FloatingIPs(ctx, port.ID)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		for _, fip := range current {
			if _, err := ns.SetFloatingIPPort(ctx, fip.ID, ""); err != nil {
				return cloud.ExternalIP{}, err
			}
		}
		fip, err := ns.SetFloatingIPPort(ctx, ip.ID(), port.ID)
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		return toExternalIP(fip, port.DeviceID), nil
	})
}

// DetachExternalIP unbinds an external IP from its port.
func (s *ScopedSession) DetachExternalIP(ctx context.Context, ip cloud.Ref[cloud.ExternalIP]) (cloud.ExternalIP, error) {
	return do(ctx, s.log, "detach_external_ip", func() (cloud.ExternalIP, error) {
		s.log.Info("Detaching floating ip", "ip", ip.ID())
		ns, err := s.conn.Network()
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		fip, err := ns.SetFloatingIPPort(ctx, ip.ID(), "")
		if err != nil {
			return cloud.ExternalIP{}, err
		}
		return toExternalIP(fip, ""), nil
	})
}
