package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/config"
	"github.com/imamik/cloudbroker/internal/keystore"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

// useFixture routes handlers to a fixture cloud and captures their output.
// Tests using it replace package variables and must not run in parallel.
func useFixture(t *testing.T) (*cbtest.CloudFixture, *bytes.Buffer) {
	t.Helper()
	fx := cbtest.NewCloudFixture()
	var out bytes.Buffer

	origStdout, origStderr := stdout, stderr
	origTTY, origAuth, origPrompt := isInteractiveTTY, newAuthenticator, promptPassword
	t.Cleanup(func() {
		stdout, stderr = origStdout, origStderr
		isInteractiveTTY, newAuthenticator, promptPassword = origTTY, origAuth, origPrompt
	})

	stdout = &out
	stderr = io.Discard
	isInteractiveTTY = func() bool { return false }
	newAuthenticator = func(*config.Config) (cloudapi.Authenticator, error) { return fx.Cloud, nil }
	promptPassword = func(context.Context, string) (string, error) {
		return "", errors.New("unexpected prompt")
	}
	return fx, &out
}

func fixtureOptions(fx *cbtest.CloudFixture) *Options {
	return &Options{Username: fx.Username, Password: fx.Password, Output: OutputJSON}
}

func decode[T any](t *testing.T, out *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(out.Bytes(), &v), "output: %s", out.String())
	out.Reset()
	return v
}

func TestTenancies(t *testing.T) {
	fx, out := useFixture(t)

	require.NoError(t, Tenancies(cbtest.TestContext(t), fixtureOptions(fx)))

	tenancies := decode[[]cloud.Tenancy](t, out)
	assert.Equal(t, []cloud.Tenancy{{ID: fx.Project.ID, Name: "research"}}, tenancies)
}

func TestTenancies_WrongPassword(t *testing.T) {
	fx, _ := useFixture(t)
	opts := fixtureOptions(fx)
	opts.Password = "wrong"

	err := Tenancies(cbtest.TestContext(t), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrAuthentication)
}

func TestCapabilities(t *testing.T) {
	fx, out := useFixture(t)

	require.NoError(t, Capabilities(cbtest.TestContext(t), fixtureOptions(fx)))

	caps := decode[cloud.Capabilities](t, out)
	assert.True(t, caps.SupportsVolumes)
	assert.True(t, caps.SupportsKubernetes)
	assert.False(t, caps.SupportsClusters)
}

func TestCapabilities_Unreachable(t *testing.T) {
	fx, out := useFixture(t)
	fx.Cloud.FailOn("identity.Projects", &cloudapi.TransportError{Op: "GET /projects", Err: errors.New("connection refused")})

	err := Capabilities(cbtest.TestContext(t), fixtureOptions(fx))
	require.ErrorIs(t, err, cloud.ErrCommunication)
	assert.Empty(t, out.String())
}

func TestQuotas_Table(t *testing.T) {
	fx, out := useFixture(t)
	opts := fixtureOptions(fx)
	opts.Output = OutputTable

	require.NoError(t, Quotas(cbtest.TestContext(t), opts))

	assert.Contains(t, out.String(), "RESOURCE")
	assert.Contains(t, out.String(), "cpus")
	assert.Contains(t, out.String(), "external_ips")
}

func TestSelectTenancyFlag(t *testing.T) {
	fx, out := useFixture(t)

	t.Run("by name", func(t *testing.T) {
		opts := fixtureOptions(fx)
		opts.Tenancy = "research"
		require.NoError(t, Sizes(cbtest.TestContext(t), opts))
		sizes := decode[[]cloud.Size](t, out)
		assert.Len(t, sizes, 2)
	})

	t.Run("unknown", func(t *testing.T) {
		opts := fixtureOptions(fx)
		opts.Tenancy = "archived"
		err := Sizes(cbtest.TestContext(t), opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `tenancy "archived" not found`)
	})
}

func TestImages(t *testing.T) {
	fx, out := useFixture(t)

	require.NoError(t, Images(cbtest.TestContext(t), fixtureOptions(fx)))

	images := decode[[]cloud.Image](t, out)
	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, img.Name)
	}
	assert.Contains(t, names, "ubuntu-22.04")
}

func TestMachineLifecycle(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)

	require.NoError(t, CreateMachine(ctx, opts, MachineCreateOptions{
		Name:     "web-1",
		Image:    fx.Image.ID,
		Size:     fx.Small.ID,
		SSHKey:   cbtest.SSHPublicKey(t),
		Metadata: map[string]string{"owner": "ops"},
	}))
	machine := decode[cloud.Machine](t, out)
	assert.Equal(t, "web-1", machine.Name)
	assert.Equal(t, "ops", machine.Metadata["owner"])

	require.NoError(t, Machines(ctx, opts))
	machines := decode[[]cloud.Machine](t, out)
	require.Len(t, machines, 1)
	assert.Equal(t, machine.ID, machines[0].ID)

	require.NoError(t, StopMachine(ctx, opts, machine.ID))
	_ = decode[cloud.Machine](t, out)

	require.NoError(t, MachineLogs(ctx, opts, machine.ID))
	_ = decode[[]string](t, out)

	opts.Output = OutputTable
	require.NoError(t, DeleteMachine(ctx, opts, machine.ID))
	assert.NotEmpty(t, out.String())
}

func TestCreateMachine_UserDataFile(t *testing.T) {
	fx, out := useFixture(t)
	path := filepath.Join(t.TempDir(), "user-data")
	require.NoError(t, os.WriteFile(path, []byte("#cloud-config\n"), 0o600))

	require.NoError(t, CreateMachine(cbtest.TestContext(t), fixtureOptions(fx), MachineCreateOptions{
		Name:         "web-2",
		Image:        fx.Image.ID,
		Size:         fx.Small.ID,
		UserDataFile: path,
	}))
	assert.Equal(t, "web-2", decode[cloud.Machine](t, out).Name)
}

func TestCreateMachine_MissingUserDataFile(t *testing.T) {
	fx, _ := useFixture(t)

	err := CreateMachine(cbtest.TestContext(t), fixtureOptions(fx), MachineCreateOptions{
		Name:         "web-3",
		Image:        fx.Image.ID,
		Size:         fx.Small.ID,
		UserDataFile: filepath.Join(t.TempDir(), "missing"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read user data")
}

func TestSSHKey_SetThenUsedForMachines(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)
	key := cbtest.SSHPublicKey(t)

	err := GetSSHKey(ctx, opts)
	require.ErrorIs(t, err, keystore.ErrKeyNotFound)

	path := filepath.Join(t.TempDir(), "id_rsa.pub")
	require.NoError(t, os.WriteFile(path, []byte(key+"\n"), 0o600))
	require.NoError(t, SetSSHKey(ctx, opts, path))
	out.Reset()

	require.NoError(t, GetSSHKey(ctx, opts))
	assert.Equal(t, key+"\n", out.String())
	out.Reset()

	require.NoError(t, CreateMachine(ctx, opts, MachineCreateOptions{
		Name:  "keyed",
		Image: fx.Image.ID,
		Size:  fx.Small.ID,
	}))
	servers := fx.Cloud.Servers(fx.Project.ID)
	require.Len(t, servers, 1)
	keypair, err := naming.Keypair(fx.Username, key)
	require.NoError(t, err)
	assert.Equal(t, keypair, servers[0].KeyName)
}

func TestSetSSHKey_Invalid(t *testing.T) {
	fx, _ := useFixture(t)
	path := filepath.Join(t.TempDir(), "bad.pub")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	err := SetSSHKey(cbtest.TestContext(t), fixtureOptions(fx), path)
	require.ErrorIs(t, err, keystore.ErrInvalidKey)
}

func TestVolumeLifecycle(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)

	require.NoError(t, CreateVolume(ctx, opts, "data", 10))
	vol := decode[cloud.Volume](t, out)
	assert.Equal(t, "data", vol.Name)
	assert.Equal(t, 10, vol.SizeGB)

	require.NoError(t, Volumes(ctx, opts))
	volumes := decode[[]cloud.Volume](t, out)
	require.Len(t, volumes, 1)

	require.NoError(t, DeleteVolume(ctx, opts, vol.ID))
}

func TestExternalIPs(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)

	require.NoError(t, AllocateExternalIP(ctx, opts))
	ip := decode[cloud.ExternalIP](t, out)
	assert.NotEmpty(t, ip.Address)
	assert.Empty(t, ip.AttachedMachineID)

	require.NoError(t, ExternalIPs(ctx, opts))
	ips := decode[[]cloud.ExternalIP](t, out)
	require.Len(t, ips, 1)
	assert.Equal(t, ip.ID, ips[0].ID)
}

func TestKubernetes(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)

	require.NoError(t, KubernetesTemplates(ctx, opts))
	templates := decode[[]cloud.KubernetesClusterTemplate](t, out)
	assert.Len(t, templates, 2)

	require.NoError(t, CreateKubernetesCluster(ctx, opts, KubernetesCreateOptions{
		Name:        "k1",
		Template:    fx.Template.UUID,
		MasterSize:  fx.Small.ID,
		WorkerSize:  fx.Large.ID,
		WorkerCount: 2,
		SSHKey:      cbtest.SSHPublicKey(t),
	}))
	cluster := decode[cloud.KubernetesCluster](t, out)
	assert.Equal(t, "k1", cluster.Name)
	assert.Equal(t, 2, cluster.WorkerCount)

	require.NoError(t, KubernetesClusters(ctx, opts))
	clusters := decode[[]cloud.KubernetesCluster](t, out)
	require.Len(t, clusters, 1)

	require.NoError(t, DeleteKubernetesCluster(ctx, opts, cluster.ID))
	deleted := decode[*cloud.KubernetesCluster](t, out)
	if deleted != nil {
		assert.Equal(t, cloud.ClusterDeleteInProgress, deleted.Status)
	}
}

func TestCreateKubernetesCluster_InvalidWorkers(t *testing.T) {
	fx, _ := useFixture(t)

	err := CreateKubernetesCluster(cbtest.TestContext(t), fixtureOptions(fx), KubernetesCreateOptions{
		Name:        "k2",
		Template:    fx.Template.UUID,
		MasterSize:  fx.Small.ID,
		WorkerSize:  fx.Small.ID,
		Autoscaling: true,
		MinWorkers:  3,
		MaxWorkers:  1,
		SSHKey:      cbtest.SSHPublicKey(t),
	})
	require.ErrorIs(t, err, cloud.ErrBadInput)
}

func TestKubeconfig(t *testing.T) {
	fx, out := useFixture(t)
	ctx := cbtest.TestContext(t)
	opts := fixtureOptions(fx)
	origPoll, origMax := kubeconfigPollInterval, kubeconfigMaxPollInterval
	t.Cleanup(func() { kubeconfigPollInterval, kubeconfigMaxPollInterval = origPoll, origMax })
	kubeconfigPollInterval, kubeconfigMaxPollInterval = time.Millisecond, 5*time.Millisecond

	pending := fx.Cloud.AddCluster(fx.Project.ID, cloudapi.Cluster{
		Name:              "pending",
		ClusterTemplateID: fx.Template.UUID,
		Status:            "CREATE_IN_PROGRESS",
	})
	ready := fx.Cloud.AddCluster(fx.Project.ID, cloudapi.Cluster{
		Name:              "ready",
		ClusterTemplateID: fx.Template.UUID,
		Status:            "CREATE_COMPLETE",
		APIAddress:        "https://10.0.0.5:6443",
	})

	t.Run("address not yet known", func(t *testing.T) {
		err := Kubeconfig(ctx, opts, pending.UUID, 0)
		require.ErrorIs(t, err, cloud.ErrInvalidOperation)
	})

	t.Run("wait gives up at the deadline", func(t *testing.T) {
		err := Kubeconfig(ctx, opts, pending.UUID, 20*time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("wait does not retry other errors", func(t *testing.T) {
		err := Kubeconfig(ctx, opts, "missing", time.Minute)
		require.ErrorIs(t, err, cloud.ErrObjectNotFound)
	})

	t.Run("ready", func(t *testing.T) {
		out.Reset()
		require.NoError(t, Kubeconfig(ctx, opts, ready.UUID, time.Minute))
		assert.Contains(t, out.String(), "server: https://10.0.0.5:6443")
	})
}

func TestMetricsFile(t *testing.T) {
	fx, _ := useFixture(t)
	opts := fixtureOptions(fx)
	opts.MetricsFile = filepath.Join(t.TempDir(), "cloudbroker.prom")

	require.NoError(t, Tenancies(cbtest.TestContext(t), opts))

	data, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cloudbroker_provider_operations_total{operation="tenancies",outcome="success"}`)
}
