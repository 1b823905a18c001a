package provider

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/clusterengine"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// Parameters injected into every cluster the engine creates.
const (
	paramFloatingNetwork = "cluster_floating_network"
	paramClusterNetwork  = "cluster_network"
)

const (
	msgClusterExternalIP = "Could not find an external IP for deployment. Please ensure an external IP is available and try again."
	msgClusterQuota      = "Requested resources exceed at least one quota. Please check your tenancy quotas and try again."
	msgClusterFailed     = "Error during cluster configuration. Please contact support."
)

// classifyClusterError rewrites an engine error message for users. Quota
// failures are recognized from the vendor text; anything else is generic.
func classifyClusterError(message string) string {
	if message == "" {
		return ""
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "quota exceeded") || strings.Contains(lower, "exceedsavailablequota") {
		if strings.Contains(lower, "floatingip") {
			return msgClusterExternalIP
		}
		return msgClusterQuota
	}
	return msgClusterFailed
}

// clusterManager returns the cluster manager or reports clusters unsupported.
func (s *ScopedSession) clusterManager() (clusterengine.Manager, error) {
	if s.clusters == nil {
		return nil, cloud.UnsupportedOperationError("Clusters are not supported for this tenancy.")
	}
	return s.clusters, nil
}

// credential lets the engine act on the cloud with the session token.
func (s *ScopedSession) credential() clusterengine.Credential {
	return clusterengine.Credential{
		Type: clusterengine.CredentialTypeCloudToken,
		Data: map[string]string{
			"auth_url":   s.conn.AuthURL(),
			"project_id": s.conn.ProjectID(),
			"token":      s.conn.Token(),
		},
	}
}

// fixupCluster hides injected parameters, appends the tags of the
// orchestration stack named like the cluster and rewrites the error message.
func (s *ScopedSession) fixupCluster(ctx context.Context, cluster clusterengine.Cluster) (clusterengine.Cluster, error) {
	params := maps.Clone(cluster.ParameterValues)
	delete(params, paramClusterNetwork)
	cluster.ParameterValues = params

	stackTags, err := s.stackTags(ctx, cluster.Name)
	if err != nil {
		return clusterengine.Cluster{}, err
	}
	cluster.Tags = slices.Concat(cluster.Tags, stackTags)
	cluster.ErrorMessage = classifyClusterError(cluster.ErrorMessage)
	return cluster, nil
}

func (s *ScopedSession) stackTags(ctx context.Context, name string) ([]string, error) {
	orchestration, err := s.conn.Orchestration()
	if cloudapi.IsServiceNotSupported(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stack, err := orchestration.StackByName(ctx, name)
	if cloudapi.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stack.Tags, nil
}

// ClusterTypes lists the cluster types offered by the cluster engine.
func (s *ScopedSession) ClusterTypes(ctx context.Context) ([]clusterengine.ClusterType, error) {
	return do(ctx, s.log, "cluster_types", func() ([]clusterengine.ClusterType, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return nil, err
		}
		return manager.ClusterTypes(ctx)
	})
}

// FindClusterType returns one cluster type.
func (s *ScopedSession) FindClusterType(ctx context.Context, name string) (clusterengine.ClusterType, error) {
	return do(ctx, s.log, "find_cluster_type", func() (clusterengine.ClusterType, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return clusterengine.ClusterType{}, err
		}
		return manager.FindClusterType(ctx, name)
	})
}

// Clusters lists the application clusters of the tenancy.
func (s *ScopedSession) Clusters(ctx context.Context) ([]clusterengine.Cluster, error) {
	return do(ctx, s.log, "clusters", func() ([]clusterengine.Cluster, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return nil, err
		}
		all, err := manager.Clusters(ctx)
		if err != nil {
			return nil, err
		}
		clusters := make([]clusterengine.Cluster, 0, len(all))
		for _, c := range all {
			fixed, err := s.fixupCluster(ctx, c)
			if err != nil {
				return nil, err
			}
			clusters = append(clusters, fixed)
		}
		return clusters, nil
	})
}

// FindCluster returns one application cluster.
func (s *ScopedSession) FindCluster(ctx context.Context, id string) (clusterengine.Cluster, error) {
	return do(ctx, s.log, "find_cluster", func() (clusterengine.Cluster, error) {
		return s.findCluster(ctx, id)
	})
}

func (s *ScopedSession) findCluster(ctx context.Context, id string) (clusterengine.Cluster, error) {
	manager, err := s.clusterManager()
	if err != nil {
		return clusterengine.Cluster{}, err
	}
	cluster, err := manager.FindCluster(ctx, id)
	if err != nil {
		return clusterengine.Cluster{}, err
	}
	return s.fixupCluster(ctx, cluster)
}

func (s *ScopedSession) resolveCluster(ctx context.Context, ref cloud.Ref[clusterengine.Cluster]) (clusterengine.Cluster, error) {
	if c, ok := ref.Value(); ok {
		return c, nil
	}
	return s.findCluster(ctx, ref.ID())
}

// CreateCluster validates params against the cluster type and creates a
// cluster attached to the external and tenant networks.
func (s *ScopedSession) CreateCluster(
	ctx context.Context,
	name string,
	clusterType cloud.Ref[clusterengine.ClusterType],
	params map[string]any,
	sshKey string,
) (clusterengine.Cluster, error) {
	return do(ctx, s.log, "create_cluster", func() (clusterengine.Cluster, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		ct, ok := clusterType.Value()
		if !ok {
			if ct, err = manager.FindClusterType(ctx, clusterType.ID()); err != nil {
				return clusterengine.Cluster{}, err
			}
		}
		values, err := clusterengine.ValidateParams(ct, params, nil)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		external, err := s.externalNetwork(ctx)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		tenant, err := s.tenantNetwork(ctx, true)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		values[paramFloatingNetwork] = external.Name
		values[paramClusterNetwork] = tenant.Name

		s.log.Info("Creating cluster", "cluster", name, "type", ct.Name)
		cluster, err := manager.CreateCluster(ctx, name, ct, values, sshKey, s.credential())
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		return s.fixupCluster(ctx, cluster)
	})
}

// UpdateCluster validates params against the previous values of the cluster
// and applies them.
func (s *ScopedSession) UpdateCluster(ctx context.Context, ref cloud.Ref[clusterengine.Cluster], params map[string]any) (clusterengine.Cluster, error) {
	return do(ctx, s.log, "update_cluster", func() (clusterengine.Cluster, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		cluster, err := s.resolveCluster(ctx, ref)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		ct, err := manager.FindClusterType(ctx, cluster.ClusterType)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		values, err := clusterengine.ValidateParams(ct, params, cluster.ParameterValues)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		s.log.Info("Updating cluster", "cluster", cluster.ID)
		updated, err := manager.UpdateCluster(ctx, cluster, values, s.credential())
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		return s.fixupCluster(ctx, updated)
	})
}

// PatchCluster applies the latest patches of the cluster type to a cluster.
func (s *ScopedSession) PatchCluster(ctx context.Context, ref cloud.Ref[clusterengine.Cluster]) (clusterengine.Cluster, error) {
	return do(ctx, s.log, "patch_cluster", func() (clusterengine.Cluster, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		cluster, err := s.resolveCluster(ctx, ref)
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		s.log.Info("Patching cluster", "cluster", cluster.ID)
		patched, err := manager.PatchCluster(ctx, cluster, s.credential())
		if err != nil {
			return clusterengine.Cluster{}, err
		}
		return s.fixupCluster(ctx, patched)
	})
}

// DeleteCluster deletes a cluster. It returns nil once the cluster is gone.
func (s *ScopedSession) DeleteCluster(ctx context.Context, ref cloud.Ref[clusterengine.Cluster]) (*clusterengine.Cluster, error) {
	return do(ctx, s.log, "delete_cluster", func() (*clusterengine.Cluster, error) {
		manager, err := s.clusterManager()
		if err != nil {
			return nil, err
		}
		cluster, err := s.resolveCluster(ctx, ref)
		if err != nil {
			return nil, err
		}
		s.log.Info("Deleting cluster", "cluster", cluster.ID)
		deleted, err := manager.DeleteCluster(ctx, cluster, s.credential())
		if err != nil || deleted == nil {
			return nil, err
		}
		fixed, err := s.fixupCluster(ctx, *deleted)
		if err != nil {
			return nil, err
		}
		return &fixed, nil
	})
}
