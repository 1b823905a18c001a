package provider

import (
	"encoding/base64"
	mathrand "math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

func TestCreateMachine(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)
	key := cbtest.SSHPublicKey(t)

	machine, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
		Name:     "worker-1",
		Image:    cloud.ByID[cloud.Image](fx.Image.ID),
		Size:     cloud.ByID[cloud.Size](fx.Small.ID),
		SSHKey:   key,
		Metadata: map[string]any{"owner": "ops", "replicas": 3},
		UserData: "#cloud-config\n",
	})
	require.NoError(t, err)

	assert.Equal(t, "worker-1", machine.Name)
	assert.Equal(t, cloud.MachineStatus{Type: cloud.MachineStatusBuild, RawText: "BUILD"}, machine.Status)
	assert.Equal(t, cloud.PowerStateUnknown, machine.PowerState)
	assert.Equal(t, "Spawning", machine.Task)
	assert.True(t, strings.HasPrefix(machine.InternalIP, "10.0."), machine.InternalIP)
	assert.Empty(t, machine.ExternalIP)
	assert.Equal(t, map[string]string{
		"tenant_name": "research",
		"os":          "linux",
		"owner":       "ops",
		"replicas":    "3",
	}, machine.Metadata)
	assert.Equal(t, cbtest.FixedTime, machine.CreatedAt)

	servers := fx.Cloud.Servers(fx.Project.ID)
	require.Len(t, servers, 1)
	keypair, err := naming.Keypair(fx.Username, key)
	require.NoError(t, err)
	assert.Equal(t, keypair, servers[0].KeyName)
	assert.Equal(t, "research", servers[0].Metadata["portal_tenant_name"])
	assert.Empty(t, servers[0].Zone)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("#cloud-config\n")), fx.Cloud.UserData(machine.ID))

	// The internal network was created on demand.
	networks := fx.Cloud.Networks(fx.Project.ID)
	require.Len(t, networks, 1)
	assert.Equal(t, "portal-internal", networks[0].Name)
}

func TestCreateMachineReusesKeypair(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.AddTenantNetwork("tenant")
	s := newSession(t, fx)
	key := cbtest.SSHPublicKey(t)

	for _, name := range []string{"a", "b"} {
		_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
			Name:   name,
			Image:  cloud.ByID[cloud.Image](fx.Image.ID),
			Size:   cloud.ByID[cloud.Size](fx.Small.ID),
			SSHKey: key,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fx.Cloud.CallCount("compute.CreateKeypair"))
	assert.Len(t, fx.Cloud.Keypairs(fx.Username), 1)
}

func TestCreateMachineRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.AddTenantNetwork("tenant")
	s := newSession(t, fx)

	t.Run("unknown image", func(t *testing.T) {
		_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
			Name:  "m",
			Image: cloud.ByID[cloud.Image]("missing"),
			Size:  cloud.ByID[cloud.Size](fx.Small.ID),
		})
		requireKind(t, err, cloud.KindBadInput)
		assert.Equal(t, "Invalid image provided.", err.Error())
	})

	t.Run("unknown size", func(t *testing.T) {
		_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
			Name:  "m",
			Image: cloud.ByValue(s.toImage(fx.Image)),
			Size:  cloud.ByID[cloud.Size]("missing"),
		})
		requireKind(t, err, cloud.KindBadInput)
		assert.Equal(t, "Invalid size provided.", err.Error())
	})

	t.Run("malformed ssh key", func(t *testing.T) {
		_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
			Name:   "m",
			Image:  cloud.ByID[cloud.Image](fx.Image.ID),
			Size:   cloud.ByID[cloud.Size](fx.Small.ID),
			SSHKey: "not a key",
		})
		requireKind(t, err, cloud.KindBadInput)
		assert.Equal(t, "Invalid SSH public key provided.", err.Error())
	})

	assert.Empty(t, fx.Cloud.Servers(fx.Project.ID))
}

func TestCreateMachineBackdoor(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.AddTenantNetwork("tenant")
	backdoor := fx.Cloud.AddNetwork(fx.Project.ID, cloudapi.Network{Name: "backdoor-az1"})
	s := newSession(t, fx,
		WithBackdoorNetworks(map[string]string{"az1": backdoor.ID}),
		WithBackdoorVNICType("direct"),
		WithRand(mathrand.New(mathrand.NewPCG(1, 2))),
	)

	machine, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
		Name:  "gpu",
		Image: cloud.ByID[cloud.Image](fx.BackdoorImage.ID),
		Size:  cloud.ByID[cloud.Size](fx.Large.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "eth1", machine.Metadata["private_if"], "image metadata is copied")

	servers := fx.Cloud.Servers(fx.Project.ID)
	require.Len(t, servers, 1)
	assert.Equal(t, "az1", servers[0].Zone)

	var backdoorPorts []cloudapi.Port
	for _, p := range fx.Cloud.Ports(fx.Project.ID) {
		if p.NetworkID == backdoor.ID {
			backdoorPorts = append(backdoorPorts, p)
		}
	}
	require.Len(t, backdoorPorts, 1)
	assert.Equal(t, "direct", backdoorPorts[0].VNICType)
	assert.Equal(t, machine.ID, backdoorPorts[0].DeviceID)
	assert.True(t, strings.HasPrefix(machine.InternalIP, "10.0."), "tenant address is preferred over the backdoor one")
}

func TestCreateMachineBackdoorDefaultZone(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.AddTenantNetwork("tenant")
	backdoor := fx.Cloud.AddNetwork(fx.Project.ID, cloudapi.Network{Name: "backdoor"})
	s := newSession(t, fx, WithBackdoorNetworks(map[string]string{"nova": backdoor.ID}))

	_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
		Name:  "gpu",
		Image: cloud.ByID[cloud.Image](fx.BackdoorImage.ID),
		Size:  cloud.ByID[cloud.Size](fx.Small.ID),
	})
	require.NoError(t, err)
	servers := fx.Cloud.Servers(fx.Project.ID)
	require.Len(t, servers, 1)
	assert.Empty(t, servers[0].Zone)
}

func TestCreateMachineBackdoorNotConfigured(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)
	fx.Cloud.ResetCalls()

	_, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
		Name:  "gpu",
		Image: cloud.ByID[cloud.Image](fx.BackdoorImage.ID),
		Size:  cloud.ByID[cloud.Size](fx.Small.ID),
	})
	requireKind(t, err, cloud.KindImproperlyConfigured)
	assert.Equal(t, "Backdoor network required by image but not configured.", err.Error())
	for _, call := range fx.Cloud.Calls() {
		assert.False(t, strings.HasPrefix(call, "network."), "unexpected call %s", call)
	}
	assert.Empty(t, fx.Cloud.Networks(fx.Project.ID))
}

func TestCreateMachineBackdoorFlagIsAnyValue(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	fx.AddTenantNetwork("tenant")
	backdoor := fx.Cloud.AddNetwork(fx.Project.ID, cloudapi.Network{Name: "backdoor"})
	image := fx.Cloud.AddImage(cloudapi.Image{
		Name:       "rocky-9",
		Visibility: "public",
		Properties: map[string]string{"portal_private_if": "false"},
	})
	s := newSession(t, fx, WithBackdoorNetworks(map[string]string{"nova": backdoor.ID}))

	machine, err := s.CreateMachine(cbtest.TestContext(t), MachineCreateRequest{
		Name:  "m",
		Image: cloud.ByID[cloud.Image](image.ID),
		Size:  cloud.ByID[cloud.Size](fx.Small.ID),
	})
	require.NoError(t, err)

	var onBackdoor int
	for _, p := range fx.Cloud.Ports(fx.Project.ID) {
		if p.NetworkID == backdoor.ID && p.DeviceID == machine.ID {
			onBackdoor++
		}
	}
	assert.Equal(t, 1, onBackdoor, "a non-empty private_if attaches the backdoor network")
}

func TestPickZoneIsStableForSeededSource(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	zones := map[string]string{"az1": "n1", "az2": "n2", "az3": "n3"}

	pick := func() (string, string) {
		s := newSession(t, fx, WithBackdoorNetworks(zones), WithRand(mathrand.New(mathrand.NewPCG(7, 7))))
		return s.pickZone()
	}
	zone, network := pick()
	assert.Equal(t, zones[zone], network)
	for range 5 {
		again, _ := pick()
		assert.Equal(t, zone, again)
	}
}

func TestMachinePowerActions(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	tenant := fx.AddTenantNetwork("tenant")
	srv := fx.AddServer("app", tenant)
	s := newSession(t, fx)
	ctx := cbtest.TestContext(t)
	ref := cloud.ByID[cloud.Machine](srv.ID)

	stopped, err := s.StopMachine(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, cloud.MachineStatusShutoff, stopped.Status.Type)
	assert.Equal(t, cloud.PowerStateShutDown, stopped.PowerState)

	started, err := s.StartMachine(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, cloud.MachineStatusActive, started.Status.Type)
	assert.Equal(t, cloud.PowerStateRunning, started.PowerState)

	_, err = s.RestartMachine(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.Cloud.CallCount("compute.RebootServer:SOFT"))

	_, err = s.StartMachine(ctx, cloud.ByID[cloud.Machine]("missing"))
	requireKind(t, err, cloud.KindObjectNotFound)
	assert.Equal(t, "Machine missing could not be found.", err.Error())
}

func TestMachines(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)

	machines, err := s.Machines(cbtest.TestContext(t))
	require.NoError(t, err)
	assert.Empty(t, machines)
	assert.Zero(t, fx.Cloud.CallCount("network.Networks"), "no network lookup without servers")

	tenant := fx.AddTenantNetwork("tenant")
	fx.AddServer("a", tenant)
	fx.AddServer("b", tenant)
	machines, err = s.Machines(cbtest.TestContext(t))
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "a", machines[0].Name)
	assert.Equal(t, 1, fx.Cloud.CallCount("network.Networks"))
}

func TestMachineLogs(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	srv := fx.AddServer("app", fx.AddTenantNetwork("tenant"))
	fx.Cloud.SetConsoleLog(srv.ID, "booting\r\nlogin: \n")
	s := newSession(t, fx)

	lines, err := s.MachineLogs(cbtest.TestContext(t), cloud.ByID[cloud.Machine](srv.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"booting", "login: "}, lines)
}

func TestSplitLines(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{}, splitLines(""))
	assert.Equal(t, []string{"a"}, splitLines("a\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
}

func TestDeleteMachine(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	srv := fx.AddServer("app", fx.AddTenantNetwork("tenant"))
	s := newSession(t, fx)

	deleted, err := s.DeleteMachine(cbtest.TestContext(t), cloud.ByID[cloud.Machine](srv.ID))
	require.NoError(t, err)
	assert.Nil(t, deleted)
	assert.Empty(t, fx.Cloud.Servers(fx.Project.ID))
	assert.Empty(t, fx.Cloud.Ports(fx.Project.ID))
	assert.Equal(t, 1, fx.Cloud.CallCount("network.DeletePort"))

	_, err = s.DeleteMachine(cbtest.TestContext(t), cloud.ByID[cloud.Machine](srv.ID))
	requireKind(t, err, cloud.KindObjectNotFound)
}

func TestRefetch(t *testing.T) {
	t.Parallel()

	v, err := refetch(1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, *v)

	v, err = refetch(0, cloudapi.NotFound("gone"))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = refetch(0, cloud.ObjectNotFoundError("gone"))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = refetch(0, cloudapi.NewError(500, "boom"))
	require.Error(t, err)
}
