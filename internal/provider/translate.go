package provider

import (
	"maps"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/labels"
)

const (
	addressFixed    = "fixed"
	addressFloating = "floating"

	coeKubernetes = "kubernetes"
)

var powerStates = map[int]cloud.PowerState{
	0: cloud.PowerStateUnknown,
	1: cloud.PowerStateRunning,
	3: cloud.PowerStatePaused,
	4: cloud.PowerStateShutDown,
	6: cloud.PowerStateCrashed,
	7: cloud.PowerStateSuspended,
}

var machineStatuses = sets.New(
	cloud.MachineStatusBuild,
	cloud.MachineStatusActive,
	cloud.MachineStatusShutoff,
	cloud.MachineStatusPaused,
	cloud.MachineStatusSuspended,
	cloud.MachineStatusError,
)

var volumeStatuses = map[string]cloud.VolumeStatus{
	"creating":         cloud.VolumeStatusCreating,
	"available":        cloud.VolumeStatusAvailable,
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
}

// volumeNameLen is how much of the id names a volume without a name.
const volumeNameLen = 13

func (s *ScopedSession) toImage(img cloudapi.Image) cloud.Image {
	return cloud.Image{
		ID:       img.ID,
		Name:     img.Name,
		IsPublic: img.Visibility == "public",
		SizeMB:   float64(img.Size) / 1024 / 1024,
		Metadata: labels.StripPrefix(s.settings.metadataPrefix, img.Properties),
	}
}

func toSize(f cloudapi.Flavor) cloud.Size {
	return cloud.Size{
		ID:     f.ID,
		Name:   f.Name,
		CPUs:   f.VCPUs,
		RAMMB:  f.RAM,
		DiskGB: f.Disk,
	}
}

// toMachine converts a server. tenant may be nil when no tenant network is known.
func (s *ScopedSession) toMachine(srv cloudapi.Server, tenant *cloudapi.Network) cloud.Machine {
	statusType := cloud.MachineStatusType(srv.Status)
	if !machineStatuses.Has(statusType) {
		statusType = cloud.MachineStatusOther
	}
	fault := ""
	if srv.Fault != "" {
		fault = resourceNames.Replace(srv.Fault)
	}
	power, ok := powerStates[srv.PowerState]
	if !ok {
		power = cloud.PowerStateUnknown
	}
	return cloud.Machine{
		ID:      srv.ID,
		Name:    srv.Name,
		ImageID: srv.ImageID,
		SizeID:  srv.FlavorID,
		Status: cloud.MachineStatus{
			Type:         statusType,
			RawText:      srv.Status,
			FaultMessage: fault,
		},
		PowerState:        power,
		Task:              capitalizeTask(srv.TaskState),
		InternalIP:        addressOfType(srv, tenant, addressFixed),
		ExternalIP:        addressOfType(srv, tenant, addressFloating),
		AttachedVolumeIDs: sets.New(srv.AttachedVolumes...),
		Metadata:          labels.StripPrefix(s.settings.metadataPrefix, srv.Metadata),
		OwnerID:           srv.UserID,
		CreatedAt:         srv.Created,
	}
}

func capitalizeTask(task string) string {
	if task == "" {
		return ""
	}
	return strings.ToUpper(task[:1]) + strings.ToLower(task[1:])
}

// addressOfType returns the first IPv4 address of the given type, preferring
// the addresses on the tenant network when the server is attached to it.
func addressOfType(srv cloudapi.Server, tenant *cloudapi.Network, addrType string) string {
	var candidates []cloudapi.Address
	onTenant := false
	if tenant != nil {
		candidates, onTenant = srv.Addresses[tenant.Name]
	}
	if !onTenant {
		for _, name := range slices.Sorted(maps.Keys(srv.Addresses)) {
			candidates = append(candidates, srv.Addresses[name]...)
		}
	}
	for _, a := range candidates {
		if a.Version == 4 && a.Type == addrType {
			return a.Addr
		}
	}
	return ""
}

func toVolume(v cloudapi.Volume) cloud.Volume {
	status, ok := volumeStatuses[strings.ToLower(v.Status)]
	if !ok {
		status = cloud.VolumeStatusOther
	}
	name := v.Name
	if name == "" {
		name = v.ID[:min(len(v.ID), volumeNameLen)]
	}
	vol := cloud.Volume{
		ID:     v.ID,
		Name:   name,
		Status: status,
		SizeGB: v.Size,
	}
	if status.ImpliesAttachment() && len(v.Attachments) > 0 {
		vol.AttachedMachineID = v.Attachments[0].ServerID
		vol.Device = v.Attachments[0].Device
	}
	return vol
}

func toExternalIP(fip cloudapi.FloatingIP, machineID string) cloud.ExternalIP {
	return cloud.ExternalIP{
		ID:                fip.ID,
		Address:           fip.FloatingIPAddress,
		AttachedMachineID: machineID,
	}
}

func toTemplate(t cloudapi.ClusterTemplate) cloud.KubernetesClusterTemplate {
	return cloud.KubernetesClusterTemplate{
		ID:                t.UUID,
		Name:              t.Name,
		KubernetesVersion: labels.KubeTag(t.Labels),
		MasterLBEnabled:   t.MasterLBEnabled,
		MonitoringEnabled: labels.IsTrue(t.Labels[labels.KeyMonitoringEnabled]),
		Public:            t.Public,
		Hidden:            t.Hidden,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// toKubernetesCluster converts a COE cluster. flavors maps flavor names to
// ids, since clusters may report sizes by name.
func toKubernetesCluster(cl cloudapi.Cluster, template cloudapi.ClusterTemplate, flavors map[string]string) cloud.KubernetesCluster {
	flavorID := func(ref string) string {
		if id, ok := flavors[ref]; ok {
			return id
		}
		return ref
	}
	return cloud.KubernetesCluster{
		ID:                   cl.UUID,
		Name:                 cl.Name,
		TemplateID:           cl.ClusterTemplateID,
		KubernetesVersion:    cl.COEVersion,
		Status:               cloud.ParseKubernetesClusterStatus(cl.Status),
		StatusReason:         cl.StatusReason,
		HealthStatus:         cl.HealthStatus,
		HealthReason:         maps.Clone(cl.HealthStatusReason),
		APIAddress:           cl.APIAddress,
		MasterCount:          cl.MasterCount,
		WorkerCount:          cl.NodeCount,
		MasterSize:           flavorID(cl.MasterFlavorID),
		WorkerSize:           flavorID(cl.FlavorID),
		AutoscalingEnabled:   labels.IsTrue(cl.Labels[labels.KeyAutoScalingEnabled]),
		MinWorkerCount:       labels.Int(cl.Labels, labels.KeyMinNodeCount),
		MaxWorkerCount:       labels.Int(cl.Labels, labels.KeyMaxNodeCount),
		MonitoringEnabled:    labels.IsTrue(cl.Labels[labels.KeyMonitoringEnabled]) || labels.IsTrue(template.Labels[labels.KeyMonitoringEnabled]),
		GrafanaAdminPassword: cl.Labels[labels.KeyGrafanaAdminPassword],
		CreatedAt:            cl.CreatedAt,
		UpdatedAt:            cl.UpdatedAt,
	}
}
