package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

func TestToVolumeStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]cloud.VolumeStatus{
		"creating":         cloud.VolumeStatusCreating,
		"available":        cloud.VolumeStatusAvailable,
		"AVAILABLE":        cloud.VolumeStatusAvailable,
		"reserved":         cloud.VolumeStatusAttaching,
		"attaching":        cloud.VolumeStatusAttaching,
		"detaching":        cloud.VolumeStatusDetaching,
		"in-use":           cloud.VolumeStatusInUse,
		"deleting":         cloud.VolumeStatusDeleting,
		"error":            cloud.VolumeStatusError,
		"error_deleting":   cloud.VolumeStatusError,
		"error_backing-up": cloud.VolumeStatusError,
		"error_restoring":  cloud.VolumeStatusError,
		"error_extending":  cloud.VolumeStatusError,
		"maintenance":      cloud.VolumeStatusOther,
		"":                 cloud.VolumeStatusOther,
	}

	for raw, expected := range tests {
		assert.Equal(t, expected, toVolume(cloudapi.Volume{ID: "v", Status: raw}).Status, "status %q", raw)
	}
}

func TestToVolumeAttachment(t *testing.T) {
	t.Parallel()

	attachments := []cloudapi.VolumeAttachment{{ID: "a", ServerID: "srv", VolumeID: "0123456789abcdef", Device: "/dev/vdb"}}

	inUse := toVolume(cloudapi.Volume{ID: "0123456789abcdef", Status: "in-use", Size: 10, Attachments: attachments})
	assert.Equal(t, "srv", inUse.AttachedMachineID)
	assert.Equal(t, "/dev/vdb", inUse.Device)
	assert.Equal(t, "0123456789abc", inUse.Name, "unnamed volumes use a prefix of the id")
	assert.Equal(t, 10, inUse.SizeGB)

	stale := toVolume(cloudapi.Volume{ID: "v", Name: "data", Status: "available", Attachments: attachments})
	assert.Empty(t, stale.AttachedMachineID, "attachments are ignored unless the status implies one")
	assert.Empty(t, stale.Device)
	assert.Equal(t, "data", stale.Name)
}

func TestToMachine(t *testing.T) {
	t.Parallel()

	s := &ScopedSession{settings: newSettings()}
	tenant := &cloudapi.Network{ID: "n1", Name: "tenant"}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	srv := cloudapi.Server{
		ID:         "srv",
		Name:       "web",
		ImageID:    "img",
		FlavorID:   "flv",
		Status:     "ERROR",
		PowerState: 4,
		TaskState:  "REBOOTING_HARD",
		Fault:      "No valid host was found. Instance could not be scheduled on flavor m1.",
		Addresses: map[string][]cloudapi.Address{
			"a-other": {{Addr: "10.9.0.5", Version: 4, Type: "fixed"}},
			"tenant": {
				{Addr: "fd00::5", Version: 6, Type: "fixed"},
				{Addr: "192.168.3.5", Version: 4, Type: "fixed"},
				{Addr: "203.0.113.7", Version: 4, Type: "floating"},
			},
		},
		AttachedVolumes: []string{"v2", "v1"},
		Metadata:        map[string]string{"portal_tenant_name": "research", "hostname": "web"},
		UserID:          "u1",
		Created:         created,
	}

	m := s.toMachine(srv, tenant)
	assert.Equal(t, cloud.MachineStatusError, m.Status.Type)
	assert.Equal(t, "ERROR", m.Status.RawText)
	assert.Equal(t, "No valid host was found. Machine could not be scheduled on size m1.", m.Status.FaultMessage)
	assert.Equal(t, cloud.PowerStateShutDown, m.PowerState)
	assert.Equal(t, "Rebooting_hard", m.Task)
	assert.Equal(t, "192.168.3.5", m.InternalIP, "the tenant network is preferred")
	assert.Equal(t, "203.0.113.7", m.ExternalIP)
	assert.Equal(t, []string{"v1", "v2"}, m.VolumeIDs())
	assert.Equal(t, map[string]string{"tenant_name": "research"}, m.Metadata)
	assert.Equal(t, "u1", m.OwnerID)
	assert.Equal(t, created, m.CreatedAt)
}

func TestToMachineFallbacks(t *testing.T) {
	t.Parallel()

	s := &ScopedSession{settings: newSettings()}
	srv := cloudapi.Server{
		ID:         "srv",
		Status:     "RESCUE",
		PowerState: 9,
		Addresses: map[string][]cloudapi.Address{
			"b-net": {{Addr: "10.2.0.2", Version: 4, Type: "fixed"}},
			"a-net": {{Addr: "10.1.0.2", Version: 4, Type: "fixed"}},
		},
	}

	m := s.toMachine(srv, &cloudapi.Network{Name: "not-attached"})
	assert.Equal(t, cloud.MachineStatusOther, m.Status.Type)
	assert.Equal(t, "RESCUE", m.Status.RawText)
	assert.Equal(t, cloud.PowerStateUnknown, m.PowerState)
	assert.Empty(t, m.Task)
	assert.Empty(t, m.Status.FaultMessage)
	assert.Equal(t, "10.1.0.2", m.InternalIP, "networks are searched in name order")
	assert.Empty(t, m.ExternalIP)

	assert.Equal(t, "10.1.0.2", s.toMachine(srv, nil).InternalIP)
}

func TestToKubernetesCluster(t *testing.T) {
	t.Parallel()

	template := cloudapi.ClusterTemplate{UUID: "t1", Labels: map[string]string{"monitoring_enabled": "true"}}
	cl := cloudapi.Cluster{
		UUID:              "c1",
		Name:              "kube",
		ClusterTemplateID: "t1",
		COEVersion:        "v1.28.4",
		Status:            "CREATE_COMPLETE",
		APIAddress:        "https://10.0.0.1:6443",
		MasterCount:       1,
		NodeCount:         3,
		MasterFlavorID:    "small",
		FlavorID:          "flv-large",
		Labels: map[string]string{
			"auto_scaling_enabled":   "True",
			"min_node_count":         "2",
			"max_node_count":         "5",
			"grafana_admin_password": "pw",
		},
	}

	k := toKubernetesCluster(cl, template, map[string]string{"small": "flv-small"})
	assert.Equal(t, cloud.ClusterCreateComplete, k.Status)
	assert.Equal(t, "flv-small", k.MasterSize, "flavor names are mapped to ids")
	assert.Equal(t, "flv-large", k.WorkerSize)
	assert.True(t, k.AutoscalingEnabled)
	if assert.NotNil(t, k.MinWorkerCount) && assert.NotNil(t, k.MaxWorkerCount) {
		assert.Equal(t, 2, *k.MinWorkerCount)
		assert.Equal(t, 5, *k.MaxWorkerCount)
	}
	assert.True(t, k.MonitoringEnabled, "monitoring is inherited from the template")
	assert.Equal(t, "pw", k.GrafanaAdminPassword)

	cl.Status = "SOMETHING_NEW"
	cl.Labels = nil
	k = toKubernetesCluster(cl, cloudapi.ClusterTemplate{}, nil)
	assert.Equal(t, cloud.ClusterStatusUnknown, k.Status)
	assert.False(t, k.AutoscalingEnabled)
	assert.Nil(t, k.MinWorkerCount)
	assert.False(t, k.MonitoringEnabled)
}

func TestToTemplate(t *testing.T) {
	t.Parallel()

	tpl := toTemplate(cloudapi.ClusterTemplate{UUID: "t", Name: "kube", Labels: map[string]string{"monitoring_enabled": "False"}})
	assert.Equal(t, "default", tpl.KubernetesVersion)
	assert.False(t, tpl.MonitoringEnabled)
}
