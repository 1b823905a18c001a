package provider

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"strings"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/labels"
)

const (
	grafanaPasswordLen   = 32
	grafanaPasswordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// KubernetesClusterCreateRequest holds the parameters of CreateKubernetesCluster.
// With autoscaling, MinWorkerCount and MaxWorkerCount bound the workers;
// otherwise WorkerCount is fixed.
type KubernetesClusterCreateRequest struct {
	Name               string
	Template           cloud.Ref[cloud.KubernetesClusterTemplate]
	MasterSize         cloud.Ref[cloud.Size]
	WorkerSize         cloud.Ref[cloud.Size]
	WorkerCount        int
	AutoscalingEnabled bool
	MinWorkerCount     int
	MaxWorkerCount     int
	SSHKey             string
}

func (r KubernetesClusterCreateRequest) validate() error {
	if r.AutoscalingEnabled {
		if r.MinWorkerCount < 1 || r.MaxWorkerCount < r.MinWorkerCount {
			return cloud.BadInputError("Autoscaling requires 1 <= minimum worker count <= maximum worker count.")
		}
		return nil
	}
	if r.WorkerCount < 1 {
		return cloud.BadInputError("Worker count must be at least 1.")
	}
	return nil
}

// nodeCount is the initial number of workers.
func (r KubernetesClusterCreateRequest) nodeCount() int {
	if r.AutoscalingEnabled {
		return r.MinWorkerCount
	}
	return r.WorkerCount
}

// KubernetesClusterTemplates lists the visible Kubernetes templates.
func (s *ScopedSession) KubernetesClusterTemplates(ctx context.Context) ([]cloud.KubernetesClusterTemplate, error) {
	return do(ctx, s.log, "kubernetes_cluster_templates", func() ([]cloud.KubernetesClusterTemplate, error) {
		s.log.Info("Fetching available COE cluster templates")
		coe, err := s.conn.COE()
		if err != nil {
			return nil, err
		}
		all, err := coe.ClusterTemplates(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info("Found COE cluster templates", "count", len(all))
		templates := make([]cloud.KubernetesClusterTemplate, 0, len(all))
		for _, t := range all {
			if t.COE == coeKubernetes && !t.Hidden {
				templates = append(templates, toTemplate(t))
			}
		}
		return templates, nil
	})
}

// FindKubernetesClusterTemplate returns one Kubernetes template.
func (s *ScopedSession) FindKubernetesClusterTemplate(ctx context.Context, id string) (cloud.KubernetesClusterTemplate, error) {
	return do(ctx, s.log, "find_kubernetes_cluster_template", func() (cloud.KubernetesClusterTemplate, error) {
		t, err := s.findTemplate(ctx, id)
		if err != nil {
			return cloud.KubernetesClusterTemplate{}, err
		}
		return toTemplate(t), nil
	})
}

// findTemplate fetches a template, hiding templates of other engines.
func (s *ScopedSession) findTemplate(ctx context.Context, id string) (cloudapi.ClusterTemplate, error) {
	s.log.Info("Fetching COE cluster template", "template", id)
	coe, err := s.conn.COE()
	if err != nil {
		return cloudapi.ClusterTemplate{}, err
	}
	t, err := coe.ClusterTemplate(ctx, id)
	if err != nil {
		return cloudapi.ClusterTemplate{}, err
	}
	if t.COE != coeKubernetes {
		return cloudapi.ClusterTemplate{}, cloud.ObjectNotFoundError("ClusterTemplate %s could not be found.", id)
	}
	return t, nil
}

// flavorIndex maps flavor names to ids.
func (s *ScopedSession) flavorIndex(ctx context.Context) (map[string]string, error) {
	compute, err := s.conn.Compute()
	if err != nil {
		return nil, err
	}
	flavors, err := compute.Flavors(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(flavors))
	for _, f := range flavors {
		index[f.Name] = f.ID
	}
	return index, nil
}

// KubernetesClusters lists the Kubernetes clusters of the tenancy. Templates
// and flavors are fetched once for all clusters, and only if there are any.
func (s *ScopedSession) KubernetesClusters(ctx context.Context) ([]cloud.KubernetesCluster, error) {
	return do(ctx, s.log, "kubernetes_clusters", func() ([]cloud.KubernetesCluster, error) {
		s.log.Info("Fetching available COE clusters")
		coe, err := s.conn.COE()
		if err != nil {
			return nil, err
		}
		all, err := coe.Clusters(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info("Found COE clusters", "count", len(all))
		clusters := make([]cloud.KubernetesCluster, 0, len(all))
		if len(all) == 0 {
			return clusters, nil
		}
		templateList, err := coe.ClusterTemplates(ctx)
		if err != nil {
			return nil, err
		}
		templates := make(map[string]cloudapi.ClusterTemplate, len(templateList))
		for _, t := range templateList {
			templates[t.UUID] = t
		}
		flavors, err := s.flavorIndex(ctx)
		if err != nil {
			return nil, err
		}
		for _, cl := range all {
			t, ok := templates[cl.ClusterTemplateID]
			if !ok || t.COE != coeKubernetes {
				continue
			}
			clusters = append(clusters, toKubernetesCluster(cl, t, flavors))
		}
		return clusters, nil
	})
}

// FindKubernetesCluster returns one Kubernetes cluster.
func (s *ScopedSession) FindKubernetesCluster(ctx context.Context, id string) (cloud.KubernetesCluster, error) {
	return do(ctx, s.log, "find_kubernetes_cluster", func() (cloud.KubernetesCluster, error) {
		return s.findKubernetesCluster(ctx, id)
	})
}

func (s *ScopedSession) findKubernetesCluster(ctx context.Context, id string) (cloud.KubernetesCluster, error) {
	s.log.Info("Fetching COE cluster", "cluster", id)
	coe, err := s.conn.COE()
	if err != nil {
		return cloud.KubernetesCluster{}, err
	}
	cl, err := coe.Cluster(ctx, id)
	if err != nil {
		return cloud.KubernetesCluster{}, err
	}
	t, err := coe.ClusterTemplate(ctx, cl.ClusterTemplateID)
	if err != nil {
		return cloud.KubernetesCluster{}, err
	}
	if t.COE != coeKubernetes {
		return cloud.KubernetesCluster{}, cloud.ObjectNotFoundError("Cluster %s could not be found.", id)
	}
	flavors, err := s.flavorIndex(ctx)
	if err != nil {
		return cloud.KubernetesCluster{}, err
	}
	return toKubernetesCluster(cl, t, flavors), nil
}

func (s *ScopedSession) resolveKubernetesCluster(ctx context.Context, ref cloud.Ref[cloud.KubernetesCluster]) (cloud.KubernetesCluster, error) {
	if cl, ok := ref.Value(); ok {
		return cl, nil
	}
	return s.findKubernetesCluster(ctx, ref.ID())
}

// CreateKubernetesCluster creates a cluster from a template. Templates with
// monitoring get a generated Grafana admin password.
func (s *ScopedSession) CreateKubernetesCluster(ctx context.Context, req KubernetesClusterCreateRequest) (cloud.KubernetesCluster, error) {
	return do(ctx, s.log, "create_kubernetes_cluster", func() (cloud.KubernetesCluster, error) {
		if err := req.validate(); err != nil {
			return cloud.KubernetesCluster{}, err
		}
		template, err := s.findTemplate(ctx, req.Template.ID())
		if err != nil {
			return cloud.KubernetesCluster{}, err
		}
		s.log.Info("Creating Kubernetes cluster", "cluster", req.Name, "template", template.Name)

		lb := labels.NewLabelBuilder()
		if req.AutoscalingEnabled {
			lb.WithAutoscaling(req.MinWorkerCount, req.MaxWorkerCount)
		}
		if labels.IsTrue(template.Labels[labels.KeyMonitoringEnabled]) {
			password, err := randomPassword(s.settings.entropy, grafanaPasswordLen)
			if err != nil {
				return cloud.KubernetesCluster{}, err
			}
			lb.WithGrafanaAdminPassword(password)
		}
		opts := cloudapi.ClusterCreateOpts{
			Name:              req.Name,
			ClusterTemplateID: template.UUID,
			MasterFlavorID:    req.MasterSize.ID(),
			FlavorID:          req.WorkerSize.ID(),
			NodeCount:         req.nodeCount(),
			Labels:            lb.Build(),
		}
		if req.SSHKey != "" {
			kp, err := s.keypair(ctx, req.SSHKey)
			if err != nil {
				return cloud.KubernetesCluster{}, err
			}
			opts.Keypair = kp.Name
		}

		coe, err := s.conn.COE()
		if err != nil {
			return cloud.KubernetesCluster{}, err
		}
		cl, err := coe.CreateCluster(ctx, opts)
		if err != nil {
			return cloud.KubernetesCluster{}, err
		}
		return s.findKubernetesCluster(ctx, cl.UUID)
	})
}

// UpgradeKubernetesCluster moves a cluster onto another Kubernetes template.
func (s *ScopedSession) UpgradeKubernetesCluster(
	ctx context.Context,
	cluster cloud.Ref[cloud.KubernetesCluster],
	template cloud.Ref[cloud.KubernetesClusterTemplate],
) (cloud.KubernetesCluster, error) {
	return do(ctx, s.log, "upgrade_kubernetes_cluster", func() (cloud.KubernetesCluster, error) {
		t, err := s.findTemplate(ctx, template.ID())
		if err != nil {
			return cloud.KubernetesCluster{}, err
		}
		s.log.Info("Upgrading Kubernetes cluster", "cluster", cluster.ID(), "template", t.Name)
		coe, err := s.conn.COE()
		if err != nil {
			return cloud.KubernetesCluster{}, err
		}
		if _, err := coe.UpgradeCluster(ctx, cluster.ID(), t.UUID); err != nil {
			return cloud.KubernetesCluster{}, err
		}
		return s.findKubernetesCluster(ctx, cluster.ID())
	})
}

// DeleteKubernetesCluster requests deletion of a cluster. The vendor status
// lags behind the request, so a still visible cluster is reported as
// DELETE_IN_PROGRESS; nil means it is already gone.
func (s *ScopedSession) DeleteKubernetesCluster(ctx context.Context, cluster cloud.Ref[cloud.KubernetesCluster]) (*cloud.KubernetesCluster, error) {
	return do(ctx, s.log, "delete_kubernetes_cluster", func() (*cloud.KubernetesCluster, error) {
		s.log.Info("Deleting Kubernetes cluster", "cluster", cluster.ID())
		coe, err := s.conn.COE()
		if err != nil {
			return nil, err
		}
		if err := coe.DeleteCluster(ctx, cluster.ID()); err != nil {
			return nil, err
		}
		cl, err := refetch(s.findKubernetesCluster(ctx, cluster.ID()))
		if cl != nil {
			cl.Status = cloud.ClusterDeleteInProgress
		}
		return cl, err
	})
}

// randomPassword draws n characters uniformly from grafanaPasswordChars.
func randomPassword(entropy io.Reader, n int) (string, error) {
	limit := big.NewInt(int64(len(grafanaPasswordChars)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(entropy, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(grafanaPasswordChars[i.Int64()])
	}
	return b.String(), nil
}
