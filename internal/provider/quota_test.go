package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi/memory"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

func TestQuotas(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.Cloud.SetComputeLimits(fx.Project.ID, cloudapi.ComputeLimits{
		MaxTotalCores: 20, TotalCoresUsed: 4,
		MaxTotalRAMSize: 51200, TotalRAMUsed: 8192,
		MaxTotalInstances: 10, TotalInstancesUsed: 2,
	})
	fx.Cloud.SetBlockStoreLimits(fx.Project.ID, cloudapi.BlockStoreLimits{
		MaxTotalVolumeGigabytes: 1000, TotalGigabytesUsed: 50,
		MaxTotalVolumes: 10, TotalVolumesUsed: 1,
	})
	fx.Cloud.SetNetworkQuota(fx.Project.ID, cloudapi.NetworkQuota{FloatingIP: 5})
	fx.Cloud.AddFloatingIP(fx.Project.ID, cloudapi.FloatingIP{FloatingNetworkID: fx.External.ID})
	s := newSession(t, fx)

	quotas, err := s.Quotas(cbtest.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, []cloud.Quota{
		{Resource: "cpus", Allocated: 20, Used: 4},
		{Resource: "ram", Unit: "MB", Allocated: 51200, Used: 8192},
		{Resource: "machines", Allocated: 10, Used: 2},
		{Resource: "external_ips", Allocated: 5, Used: 1},
		{Resource: "storage", Unit: "GB", Allocated: 1000, Used: 50},
		{Resource: "volumes", Allocated: 10, Used: 1},
	}, quotas)
}

func TestQuotasWithoutBlockStore(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.Cloud.Unsupported(memory.ServiceBlockStore)
	s := newSession(t, fx)

	quotas, err := s.Quotas(cbtest.TestContext(t))
	require.NoError(t, err)
	require.Len(t, quotas, 4)
	assert.Equal(t, cloud.Quota{Resource: "cpus", Allocated: -1}, quotas[0], "unlimited is reported as -1")
	assert.Equal(t, cloud.Quota{Resource: "external_ips", Allocated: 50}, quotas[3])
}
