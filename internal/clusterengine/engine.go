// Package clusterengine defines the contract of the external engine that
// provisions application clusters, and validates cluster parameters against
// the type definitions the engine publishes.
package clusterengine

import (
	"context"
	"time"

	"github.com/imamik/cloudbroker/internal/cloud"
)

// CredentialTypeCloudToken marks credentials carrying a scoped cloud token.
const CredentialTypeCloudToken = "cloud_token"

// Credential is an opaque bearer handed to the engine so it can create cloud
// resources on behalf of the current session.
type Credential struct {
	Type string
	Data map[string]string
}

// ParameterKind is the value type of a cluster type parameter.
type ParameterKind string

const (
	KindString  ParameterKind = "string"
	KindInteger ParameterKind = "integer"
	KindNumber  ParameterKind = "number"
	KindBoolean ParameterKind = "boolean"
	KindChoice  ParameterKind = "choice"
)

// Parameter describes one input of a cluster type.
type Parameter struct {
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
	Kind        ParameterKind `json:"kind"`
	Options     []string      `json:"options,omitempty"`
	Required    bool          `json:"required"`
	Immutable   bool          `json:"immutable"`
	Default     any           `json:"default,omitempty"`
}

// ClusterType is a kind of application cluster offered by the engine.
type ClusterType struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Logo        string      `json:"logo,omitempty"`
	Parameters  []Parameter `json:"parameters"`
}

func (t ClusterType) ResourceID() string { return t.Name }

// Parameter returns the named parameter definition.
func (t ClusterType) Parameter(name string) (Parameter, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ClusterStatus is the lifecycle state reported by the engine.
type ClusterStatus string

const (
	ClusterConfiguring ClusterStatus = "CONFIGURING"
	ClusterReady       ClusterStatus = "READY"
	ClusterDeleting    ClusterStatus = "DELETING"
	ClusterError       ClusterStatus = "ERROR"
)

// Cluster is an application cluster managed by the engine.
type Cluster struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	ClusterType     string         `json:"cluster_type"`
	Status          ClusterStatus  `json:"status"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	ParameterValues map[string]any `json:"parameter_values"`
	Tags            []string       `json:"tags"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
	PatchedAt       *time.Time     `json:"patched_at,omitempty"`
}

func (c Cluster) ResourceID() string { return c.ID }

// Engine creates cluster managers for a user and tenancy.
type Engine interface {
	// CreateManager returns nil when clusters are not available for the tenancy.
	CreateManager(ctx context.Context, username string, tenancy cloud.Tenancy) (Manager, error)
}

// Manager manages the clusters of one tenancy. DeleteCluster may return nil
// when the cluster is already gone.
type Manager interface {
	ClusterTypes(ctx context.Context) ([]ClusterType, error)
	FindClusterType(ctx context.Context, name string) (ClusterType, error)
	Clusters(ctx context.Context) ([]Cluster, error)
	FindCluster(ctx context.Context, id string) (Cluster, error)
	CreateCluster(ctx context.Context, name string, clusterType ClusterType, params map[string]any, sshKey string, credential Credential) (Cluster, error)
	UpdateCluster(ctx context.Context, cluster Cluster, params map[string]any, credential Credential) (Cluster, error)
	PatchCluster(ctx context.Context, cluster Cluster, credential Credential) (Cluster, error)
	DeleteCluster(ctx context.Context, cluster Cluster, credential Credential) (*Cluster, error)
	Close() error
}
