package handlers

import (
	"context"
	"strconv"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
)

// Tenancies lists the tenancies the user may scope to.
func Tenancies(ctx context.Context, opts *Options) error {
	return withUnscoped(ctx, opts, func(env *environment, session *provider.UnscopedSession) error {
		tenancies, err := session.Tenancies(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(tenancies, func() view {
			v := view{headers: []string{"ID", "NAME"}}
			for _, t := range tenancies {
				v.rows = append(v.rows, []string{t.ID, t.Name})
			}
			return v
		})
	})
}

// Capabilities shows which optional services the deployment offers.
func Capabilities(ctx context.Context, opts *Options) error {
	return withUnscoped(ctx, opts, func(env *environment, session *provider.UnscopedSession) error {
		caps, err := session.Capabilities(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(caps, func() view {
			return view{
				headers: []string{"FEATURE", "SUPPORTED"},
				rows: [][]string{
					{"volumes", yesNo(caps.SupportsVolumes)},
					{"kubernetes", yesNo(caps.SupportsKubernetes)},
					{"clusters", yesNo(caps.SupportsClusters)},
				},
			}
		})
	})
}

// Quotas shows the allocation and usage of the tenancy.
func Quotas(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		quotas, err := session.Quotas(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(quotas, func() view { return quotaView(quotas) })
	})
}

func quotaView(quotas []cloud.Quota) view {
	v := view{headers: []string{"RESOURCE", "USED", "ALLOCATED", "UNIT"}}
	for _, q := range quotas {
		v.rows = append(v.rows, []string{q.Resource, strconv.Itoa(q.Used), limit(q.Allocated), q.Unit})
	}
	return v
}
