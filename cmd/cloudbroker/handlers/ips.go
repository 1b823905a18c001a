package handlers

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
)

// ExternalIPs lists the external IPs of the tenancy.
func ExternalIPs(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		ips, err := session.ExternalIPs(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(ips, func() view { return ipView(ips...) })
	})
}

func ipView(ips ...cloud.ExternalIP) view {
	v := view{headers: []string{"ID", "ADDRESS", "MACHINE"}}
	for _, ip := range ips {
		v.rows = append(v.rows, []string{ip.ID, ip.Address, ip.AttachedMachineID})
	}
	return v
}

// AllocateExternalIP allocates an external IP on the external network.
func AllocateExternalIP(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		ip, err := session.AllocateExternalIP(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(ip, func() view { return ipView(ip) })
	})
}

// AttachExternalIP binds an external IP to a machine.
func AttachExternalIP(ctx context.Context, opts *Options, ipID, machineID string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		ip, err := session.AttachExternalIP(ctx, cloud.ByID[cloud.ExternalIP](ipID), cloud.ByID[cloud.Machine](machineID))
		if err != nil {
			return err
		}
		return env.printer.print(ip, func() view { return ipView(ip) })
	})
}

// DetachExternalIP unbinds an external IP.
func DetachExternalIP(ctx context.Context, opts *Options, ipID string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		ip, err := session.DetachExternalIP(ctx, cloud.ByID[cloud.ExternalIP](ipID))
		if err != nil {
			return err
		}
		return env.printer.print(ip, func() view { return ipView(ip) })
	})
}
