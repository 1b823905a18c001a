// Package cloud holds the normalized resource model returned by provider
// sessions, independent of any vendor API.
package cloud

import (
	"encoding/json"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Tenancy is an isolated project boundary within the cloud.
type Tenancy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (t Tenancy) ResourceID() string { return t.ID }

// Image is a bootable machine image.
type Image struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	IsPublic bool              `json:"is_public"`
	SizeMB   float64           `json:"size_mb"`
	Metadata map[string]string `json:"metadata"`
}

func (i Image) ResourceID() string { return i.ID }

// Size is a machine flavor.
type Size struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	CPUs   int    `json:"cpus"`
	RAMMB  int    `json:"ram_mb"`
	DiskGB int    `json:"disk_gb"`
}

func (s Size) ResourceID() string { return s.ID }

// MachineStatusType is the normalized machine lifecycle state.
type MachineStatusType string

const (
	MachineStatusBuild     MachineStatusType = "BUILD"
	MachineStatusActive    MachineStatusType = "ACTIVE"
	MachineStatusShutoff   MachineStatusType = "SHUTOFF"
	MachineStatusPaused    MachineStatusType = "PAUSED"
	MachineStatusSuspended MachineStatusType = "SUSPENDED"
	MachineStatusError     MachineStatusType = "ERROR"
	MachineStatusOther     MachineStatusType = "OTHER"
)

// MachineStatus carries the normalized state plus the vendor text it came from.
type MachineStatus struct {
	Type         MachineStatusType `json:"type"`
	RawText      string            `json:"raw_text"`
	FaultMessage string            `json:"fault_message,omitempty"`
}

// PowerState is the hypervisor power state of a machine.
type PowerState string

const (
	PowerStateUnknown   PowerState = "Unknown"
	PowerStateRunning   PowerState = "Running"
	PowerStatePaused    PowerState = "Paused"
	PowerStateShutDown  PowerState = "Shut down"
	PowerStateCrashed   PowerState = "Crashed"
	PowerStateSuspended PowerState = "Suspended"
)

// Machine is a compute instance.
type Machine struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	ImageID           string            `json:"image_id,omitempty"`
	SizeID            string            `json:"size_id,omitempty"`
	Status            MachineStatus     `json:"status"`
	PowerState        PowerState        `json:"power_state"`
	Task              string            `json:"task,omitempty"`
	InternalIP        string            `json:"internal_ip,omitempty"`
	ExternalIP        string            `json:"external_ip,omitempty"`
	AttachedVolumeIDs sets.Set[string]  `json:"-"`
	Metadata          map[string]string `json:"metadata"`
	OwnerID           string            `json:"owner_id"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (m Machine) ResourceID() string { return m.ID }

// VolumeIDs returns the attached volume ids in sorted order.
func (m Machine) VolumeIDs() []string {
	return sets.List(m.AttachedVolumeIDs)
}

type machineJSON struct {
	machineFields
	AttachedVolumeIDs []string `json:"attached_volume_ids"`
}

type machineFields Machine

// MarshalJSON encodes the attached volumes as a sorted list.
func (m Machine) MarshalJSON() ([]byte, error) {
	return json.Marshal(machineJSON{machineFields: machineFields(m), AttachedVolumeIDs: m.VolumeIDs()})
}

func (m *Machine) UnmarshalJSON(data []byte) error {
	var decoded machineJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = Machine(decoded.machineFields)
	m.AttachedVolumeIDs = sets.New(decoded.AttachedVolumeIDs...)
	return nil
}

// VolumeStatus is the normalized volume lifecycle state.
type VolumeStatus string

const (
	VolumeStatusCreating  VolumeStatus = "CREATING"
	VolumeStatusAvailable VolumeStatus = "AVAILABLE"
	VolumeStatusAttaching VolumeStatus = "ATTACHING"
	VolumeStatusDetaching VolumeStatus = "DETACHING"
	VolumeStatusInUse     VolumeStatus = "IN_USE"
	VolumeStatusDeleting  VolumeStatus = "DELETING"
	VolumeStatusError     VolumeStatus = "ERROR"
	VolumeStatusOther     VolumeStatus = "OTHER"
)

// ImpliesAttachment reports whether a volume in this state is bound to a machine.
func (s VolumeStatus) ImpliesAttachment() bool {
	switch s {
	case VolumeStatusAttaching, VolumeStatusInUse, VolumeStatusDetaching:
		return true
	default:
		return false
	}
}

// Volume is a block storage volume.
type Volume struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Status            VolumeStatus `json:"status"`
	SizeGB            int          `json:"size_gb"`
	AttachedMachineID string       `json:"attached_machine_id,omitempty"`
	Device            string       `json:"device,omitempty"`
}

func (v Volume) ResourceID() string { return v.ID }

// ExternalIP is a floating address that can be bound to one machine.
type ExternalIP struct {
	ID                string `json:"id"`
	Address           string `json:"external_ip"`
	AttachedMachineID string `json:"machine_id,omitempty"`
}

func (e ExternalIP) ResourceID() string { return e.ID }

// Quota is the allocation and usage of one resource in a tenancy.
// Allocated is -1 when the resource is unlimited.
type Quota struct {
	Resource  string `json:"resource"`
	Unit      string `json:"units,omitempty"`
	Allocated int    `json:"allocated"`
	Used      int    `json:"used"`
}

// Capabilities describes which optional services a deployment offers.
type Capabilities struct {
	SupportsVolumes    bool `json:"supports_volumes"`
	SupportsKubernetes bool `json:"supports_kubernetes"`
	SupportsClusters   bool `json:"supports_clusters"`
}

// KubernetesClusterTemplate is a preset for Kubernetes clusters.
type KubernetesClusterTemplate struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	KubernetesVersion string     `json:"kubernetes_version"`
	MasterLBEnabled   bool       `json:"master_lb_enabled"`
	MonitoringEnabled bool       `json:"monitoring_enabled"`
	Public            bool       `json:"is_public"`
	Hidden            bool       `json:"is_hidden"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func (t KubernetesClusterTemplate) ResourceID() string { return t.ID }

// KubernetesClusterStatus follows the vendor lifecycle vocabulary.
type KubernetesClusterStatus string

const (
	ClusterCreateInProgress   KubernetesClusterStatus = "CREATE_IN_PROGRESS"
	ClusterCreateFailed       KubernetesClusterStatus = "CREATE_FAILED"
	ClusterCreateComplete     KubernetesClusterStatus = "CREATE_COMPLETE"
	ClusterUpdateInProgress   KubernetesClusterStatus = "UPDATE_IN_PROGRESS"
	ClusterUpdateFailed       KubernetesClusterStatus = "UPDATE_FAILED"
	ClusterUpdateComplete     KubernetesClusterStatus = "UPDATE_COMPLETE"
	ClusterDeleteInProgress   KubernetesClusterStatus = "DELETE_IN_PROGRESS"
	ClusterDeleteFailed       KubernetesClusterStatus = "DELETE_FAILED"
	ClusterDeleteComplete     KubernetesClusterStatus = "DELETE_COMPLETE"
	ClusterResumeComplete     KubernetesClusterStatus = "RESUME_COMPLETE"
	ClusterResumeFailed       KubernetesClusterStatus = "RESUME_FAILED"
	ClusterRestoreComplete    KubernetesClusterStatus = "RESTORE_COMPLETE"
	ClusterRollbackInProgress KubernetesClusterStatus = "ROLLBACK_IN_PROGRESS"
	ClusterRollbackFailed     KubernetesClusterStatus = "ROLLBACK_FAILED"
	ClusterRollbackComplete   KubernetesClusterStatus = "ROLLBACK_COMPLETE"
	ClusterSnapshotComplete   KubernetesClusterStatus = "SNAPSHOT_COMPLETE"
	ClusterCheckComplete      KubernetesClusterStatus = "CHECK_COMPLETE"
	ClusterAdoptComplete      KubernetesClusterStatus = "ADOPT_COMPLETE"
	ClusterStatusUnknown      KubernetesClusterStatus = "UNKNOWN"
)

var knownClusterStatuses = sets.New(
	ClusterCreateInProgress, ClusterCreateFailed, ClusterCreateComplete,
	ClusterUpdateInProgress, ClusterUpdateFailed, ClusterUpdateComplete,
	ClusterDeleteInProgress, ClusterDeleteFailed, ClusterDeleteComplete,
	ClusterResumeComplete, ClusterResumeFailed, ClusterRestoreComplete,
	ClusterRollbackInProgress, ClusterRollbackFailed, ClusterRollbackComplete,
	ClusterSnapshotComplete, ClusterCheckComplete, ClusterAdoptComplete,
)

// ParseKubernetesClusterStatus maps vendor text to a status, UNKNOWN if unrecognized.
func ParseKubernetesClusterStatus(s string) KubernetesClusterStatus {
	status := KubernetesClusterStatus(s)
	if knownClusterStatuses.Has(status) {
		return status
	}
	return ClusterStatusUnknown
}

// KubernetesCluster is a managed Kubernetes cluster.
type KubernetesCluster struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	TemplateID           string                  `json:"template_id"`
	KubernetesVersion    string                  `json:"kubernetes_version"`
	Status               KubernetesClusterStatus `json:"status"`
	StatusReason         string                  `json:"status_reason,omitempty"`
	HealthStatus         string                  `json:"health_status,omitempty"`
	HealthReason         map[string]string       `json:"health_status_reason,omitempty"`
	APIAddress           string                  `json:"api_address,omitempty"`
	MasterCount          int                     `json:"master_count"`
	WorkerCount          int                     `json:"worker_count"`
	MasterSize           string                  `json:"master_size"`
	WorkerSize           string                  `json:"worker_size"`
	AutoscalingEnabled   bool                    `json:"auto_scaling_enabled"`
	MinWorkerCount       *int                    `json:"min_worker_count,omitempty"`
	MaxWorkerCount       *int                    `json:"max_worker_count,omitempty"`
	MonitoringEnabled    bool                    `json:"monitoring_enabled"`
	GrafanaAdminPassword string                  `json:"grafana_admin_password,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            *time.Time              `json:"updated_at,omitempty"`
}

func (c KubernetesCluster) ResourceID() string { return c.ID }
