package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

func TestExternalIPsWithoutAddresses(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)

	ips, err := s.ExternalIPs(cbtest.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, []cloud.ExternalIP{}, ips)
	assert.Zero(t, fx.Cloud.CallCount("network.Ports"))
}

func TestExternalIPsResolveMachines(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	tenant := fx.AddTenantNetwork("tenant")
	srv := fx.AddServer("web", tenant)
	ports := fx.Cloud.Ports(fx.Project.ID)
	require.Len(t, ports, 1)
	bound := fx.Cloud.AddFloatingIP(fx.Project.ID, cloudapi.FloatingIP{PortID: ports[0].ID, FloatingNetworkID: fx.External.ID})
	free := fx.Cloud.AddFloatingIP(fx.Project.ID, cloudapi.FloatingIP{FloatingNetworkID: fx.External.ID})
	s := newSession(t, fx)

	ips, err := s.ExternalIPs(cbtest.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, []cloud.ExternalIP{
		{ID: bound.ID, Address: bound.FloatingIPAddress, AttachedMachineID: srv.ID},
		{ID: free.ID, Address: free.FloatingIPAddress},
	}, ips)
	assert.Equal(t, 1, fx.Cloud.CallCount("network.Ports"))

	found, err := s.FindExternalIP(cbtest.TestContext(t), bound.ID)
	require.NoError(t, err)
	assert.Equal(t, srv.ID, found.AttachedMachineID)

	machine, err := s.FindMachine(cbtest.TestContext(t), srv.ID)
	require.NoError(t, err)
	assert.Equal(t, bound.FloatingIPAddress, machine.ExternalIP)
}

func TestAttachExternalIPKeepsOneAddressPerMachine(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	srv := fx.AddServer("web", fx.AddTenantNetwork("tenant"))
	s := newSession(t, fx)
	ctx := cbtest.TestContext(t)

	first, err := s.AllocateExternalIP(ctx)
	require.NoError(t, err)
	second, err := s.AllocateExternalIP(ctx)
	require.NoError(t, err)

	attached, err := s.AttachExternalIP(ctx, cloud.ByValue(first), cloud.ByID[cloud.Machine](srv.ID))
	require.NoError(t, err)
	assert.Equal(t, srv.ID, attached.AttachedMachineID)

	attached, err = s.AttachExternalIP(ctx, cloud.ByValue(second), cloud.ByID[cloud.Machine](srv.ID))
	require.NoError(t, err)
	assert.Equal(t, second.ID, attached.ID)

	firstNow, err := s.FindExternalIP(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, firstNow.AttachedMachineID, "the previous address is released")

	detached, err := s.DetachExternalIP(ctx, cloud.ByValue(attached))
	require.NoError(t, err)
	assert.Equal(t, cloud.ExternalIP{ID: second.ID, Address: second.Address}, detached)
}

func TestAttachExternalIPMovesAddressBetweenMachines(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	tenant := fx.AddTenantNetwork("tenant")
	a := fx.AddServer("web-a", tenant)
	b := fx.AddServer("web-b", tenant)
	s := newSession(t, fx)
	ctx := cbtest.TestContext(t)

	portOf := map[string]string{}
	for _, p := range fx.Cloud.Ports(fx.Project.ID) {
		portOf[p.DeviceID] = p.ID
	}
	require.Len(t, portOf, 2)

	moving, err := s.AllocateExternalIP(ctx)
	require.NoError(t, err)
	previous, err := s.AllocateExternalIP(ctx)
	require.NoError(t, err)
	_, err = s.AttachExternalIP(ctx, cloud.ByValue(moving), cloud.ByID[cloud.Machine](a.ID))
	require.NoError(t, err)
	_, err = s.AttachExternalIP(ctx, cloud.ByValue(previous), cloud.ByID[cloud.Machine](b.ID))
	require.NoError(t, err)

	attached, err := s.AttachExternalIP(ctx, cloud.ByValue(moving), cloud.ByID[cloud.Machine](b.ID))
	require.NoError(t, err)
	assert.Equal(t, b.ID, attached.AttachedMachineID)

	byPort := map[string][]string{}
	for _, fip := range fx.Cloud.FloatingIPs(fx.Project.ID) {
		byPort[fip.PortID] = append(byPort[fip.PortID], fip.ID)
	}
	assert.Empty(t, byPort[portOf[a.ID]], "the first machine keeps no address")
	assert.Equal(t, []string{moving.ID}, byPort[portOf[b.ID]])
	assert.Equal(t, []string{previous.ID}, byPort[""])

	machineA, err := s.FindMachine(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, machineA.ExternalIP)
	machineB, err := s.FindMachine(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, moving.Address, machineB.ExternalIP)
}

func TestAttachExternalIPRequiresTenantPort(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	elsewhere := fx.Cloud.AddNetwork(fx.Project.ID, cloudapi.Network{Name: "elsewhere"})
	srv := fx.AddServer("web", elsewhere)
	s := newSession(t, fx)
	ctx := cbtest.TestContext(t)

	ip, err := s.AllocateExternalIP(ctx)
	require.NoError(t, err)

	_, err = s.AttachExternalIP(ctx, cloud.ByValue(ip), cloud.ByID[cloud.Machine](srv.ID))
	requireKind(t, err, cloud.KindInvalidOperation)
	assert.Equal(t, "Machine is not connected to tenant network.", err.Error())

	fx.AddTenantNetwork("tenant")
	_, err = s.AttachExternalIP(ctx, cloud.ByValue(ip), cloud.ByID[cloud.Machine](srv.ID))
	requireKind(t, err, cloud.KindInvalidOperation)
}

func TestAllocateExternalIPOverQuota(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.Cloud.SetNetworkQuota(fx.Project.ID, cloudapi.NetworkQuota{FloatingIP: 0})
	s := newSession(t, fx)

	_, err := s.AllocateExternalIP(cbtest.TestContext(t))
	requireKind(t, err, cloud.KindQuotaExceeded)
}
