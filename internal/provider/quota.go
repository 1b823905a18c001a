package provider

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// Quotas reports the allocation and usage of the tenancy. Storage quotas
// are only included when the deployment offers volumes.
func (s *ScopedSession) Quotas(ctx context.Context) ([]cloud.Quota, error) {
	return do(ctx, s.log, "quotas", func() ([]cloud.Quota, error) {
		s.log.Info("Fetching tenancy quotas")
		compute, err := s.conn.Compute()
		if err != nil {
			return nil, err
		}
		limits, err := compute.Limits(ctx)
		if err != nil {
			return nil, err
		}
		quotas := []cloud.Quota{
			{Resource: "cpus", Allocated: limits.MaxTotalCores, Used: limits.TotalCoresUsed},
			{Resource: "ram", Unit: "MB", Allocated: limits.MaxTotalRAMSize, Used: limits.TotalRAMUsed},
			{Resource: "machines", Allocated: limits.MaxTotalInstances, Used: limits.TotalInstancesUsed},
		}

		ns, err := s.conn.Network()
		if err != nil {
			return nil, err
		}
		networkQuota, err := ns.Quota(ctx)
		if err != nil {
			return nil, err
		}
		// The usage is not reported alongside the quota.
		fips, err := ns.FloatingIPs(ctx, "")
		if err != nil {
			return nil, err
		}
		quotas = append(quotas, cloud.Quota{Resource: "external_ips", Allocated: networkQuota.FloatingIP, Used: len(fips)})

		bs, err := s.conn.BlockStore()
		if cloudapi.IsServiceNotSupported(err) {
			return quotas, nil
		}
		if err != nil {
			return nil, err
		}
		volumeLimits, err := bs.Limits(ctx)
		if err != nil {
			return nil, err
		}
		return append(quotas,
			cloud.Quota{Resource: "storage", Unit: "GB", Allocated: volumeLimits.MaxTotalVolumeGigabytes, Used: volumeLimits.TotalGigabytesUsed},
			cloud.Quota{Resource: "volumes", Allocated: volumeLimits.MaxTotalVolumes, Used: volumeLimits.TotalVolumesUsed},
		), nil
	})
}
