// Package labels provides consistent labeling utilities for vendor resources.
//
// It covers three kinds of key/value annotations:
//   - network role tags used to discover the internal and external networks
//   - prefixed metadata carried on images and machines
//   - the label vocabulary of container-orchestration templates and clusters
package labels

import (
	"maps"
	"strconv"
	"strings"
)

// Network roles resolved by the broker.
const (
	RoleInternal = "internal"
	RoleExternal = "external"
)

// networkTagPrefix prefixes the role in network discovery tags.
const networkTagPrefix = "portal-"

// Cluster label keys understood by the container-orchestration service.
const (
	KeyKubeTag              = "kube_tag"
	KeyMonitoringEnabled    = "monitoring_enabled"
	KeyAutoScalingEnabled   = "auto_scaling_enabled"
	KeyMinNodeCount         = "min_node_count"
	KeyMaxNodeCount         = "max_node_count"
	KeyGrafanaAdminPassword = "grafana_admin_password"
)

// Metadata keys, relative to the configured metadata prefix.
const (
	MetaTenantName   = "tenant_name"
	MetaPrivateIf    = "private_if"
	MetaClusterImage = "cluster_image"
)

// KeyManagedBy marks resources created by the broker on backends that support labels.
const (
	KeyManagedBy         = "cloudbroker.io/managed-by"
	ManagedByCloudbroker = "cloudbroker"
)

// NetworkTag returns the discovery tag for a network role, e.g. "portal-internal".
func NetworkTag(role string) string {
	return networkTagPrefix + role
}

// Prefixed returns a copy of metadata with every key prefixed.
func Prefixed(prefix string, metadata map[string]string) map[string]string {
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		result[prefix+k] = v
	}
	return result
}

// StripPrefix returns the entries of metadata whose key carries prefix, with
// the prefix removed. Entries without the prefix are dropped.
func StripPrefix(prefix string, metadata map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range metadata {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			result[rest] = v
		}
	}
	return result
}

// IsTrue reports whether a label value spells true.
func IsTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// Truthy reports whether a metadata flag is set. Any non-empty value counts,
// including "false" and "0".
func Truthy(value string) bool {
	return value != ""
}

// Int parses an integer label. Missing or malformed values yield nil.
func Int(labels map[string]string, key string) *int {
	v, ok := labels[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

// KubeTag returns the Kubernetes version label, "default" when unset.
func KubeTag(labels map[string]string) string {
	if v := labels[KeyKubeTag]; v != "" {
		return v
	}
	return "default"
}

// LabelBuilder provides a fluent interface for building cluster creation labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with autoscaling disabled.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyAutoScalingEnabled: "false",
		},
	}
}

// WithAutoscaling enables autoscaling within the given worker bounds.
func (lb *LabelBuilder) WithAutoscaling(minNodes, maxNodes int) *LabelBuilder {
	lb.labels[KeyAutoScalingEnabled] = "true"
	lb.labels[KeyMinNodeCount] = strconv.Itoa(minNodes)
	lb.labels[KeyMaxNodeCount] = strconv.Itoa(maxNodes)
	return lb
}

// WithGrafanaAdminPassword sets the monitoring admin password, if non-empty.
func (lb *LabelBuilder) WithGrafanaAdminPassword(password string) *LabelBuilder {
	if password != "" {
		lb.labels[KeyGrafanaAdminPassword] = password
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}
