package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
	"github.com/imamik/cloudbroker/internal/util/retry"
)

// Polling of the cluster API address by Kubeconfig.
var (
	kubeconfigPollInterval    = 5 * time.Second
	kubeconfigMaxPollInterval = 30 * time.Second
)

// KubernetesCreateOptions holds the flags of the kubernetes create command.
type KubernetesCreateOptions struct {
	Name        string
	Template    string
	MasterSize  string
	WorkerSize  string
	WorkerCount int
	Autoscaling bool
	MinWorkers  int
	MaxWorkers  int
	SSHKey      string
}

// KubernetesTemplates lists the Kubernetes cluster templates.
func KubernetesTemplates(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		templates, err := session.KubernetesClusterTemplates(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(templates, func() view {
			v := view{headers: []string{"ID", "NAME", "VERSION", "MASTER LB", "MONITORING"}}
			for _, t := range templates {
				v.rows = append(v.rows, []string{
					t.ID,
					t.Name,
					t.KubernetesVersion,
					yesNo(t.MasterLBEnabled),
					yesNo(t.MonitoringEnabled),
				})
			}
			return v
		})
	})
}

// KubernetesClusters lists the Kubernetes clusters of the tenancy.
func KubernetesClusters(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		clusters, err := session.KubernetesClusters(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(clusters, func() view { return clusterView(clusters...) })
	})
}

func clusterView(clusters ...cloud.KubernetesCluster) view {
	v := view{headers: []string{"ID", "NAME", "STATUS", "VERSION", "MASTERS", "WORKERS", "API"}}
	for _, c := range clusters {
		workers := strconv.Itoa(c.WorkerCount)
		if c.AutoscalingEnabled && c.MinWorkerCount != nil && c.MaxWorkerCount != nil {
			workers = fmt.Sprintf("%d (%d-%d)", c.WorkerCount, *c.MinWorkerCount, *c.MaxWorkerCount)
		}
		v.rows = append(v.rows, []string{
			c.ID,
			c.Name,
			string(c.Status),
			c.KubernetesVersion,
			strconv.Itoa(c.MasterCount),
			workers,
			c.APIAddress,
		})
	}
	return v
}

// CreateKubernetesCluster creates a Kubernetes cluster from a template.
func CreateKubernetesCluster(ctx context.Context, opts *Options, create KubernetesCreateOptions) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		sshKey := create.SSHKey
		if sshKey == "" {
			var err error
			if sshKey, err = env.userKey(ctx); err != nil {
				return err
			}
		}
		cluster, err := session.CreateKubernetesCluster(ctx, provider.KubernetesClusterCreateRequest{
			Name:               create.Name,
			Template:           cloud.ByID[cloud.KubernetesClusterTemplate](create.Template),
			MasterSize:         cloud.ByID[cloud.Size](create.MasterSize),
			WorkerSize:         cloud.ByID[cloud.Size](create.WorkerSize),
			WorkerCount:        create.WorkerCount,
			AutoscalingEnabled: create.Autoscaling,
			MinWorkerCount:     create.MinWorkers,
			MaxWorkerCount:     create.MaxWorkers,
			SSHKey:             sshKey,
		})
		if err != nil {
			return err
		}
		return env.printer.print(cluster, func() view { return clusterView(cluster) })
	})
}

// DeleteKubernetesCluster requests deletion of a Kubernetes cluster.
func DeleteKubernetesCluster(ctx context.Context, opts *Options, id string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		cluster, err := session.DeleteKubernetesCluster(ctx, cloud.ByID[cloud.KubernetesCluster](id))
		if err != nil {
			return err
		}
		if cluster == nil {
			if env.printer.format != OutputTable {
				return env.printer.print(nil, nil)
			}
			return env.printer.message(true, "Kubernetes cluster %s deleted.", id)
		}
		return env.printer.print(cluster, func() view { return clusterView(*cluster) })
	})
}

// Kubeconfig prints an admin kubeconfig for a Kubernetes cluster. With a
// positive wait it polls until the cluster API address is known.
func Kubeconfig(ctx context.Context, opts *Options, id string, wait time.Duration) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		ref := cloud.ByID[cloud.KubernetesCluster](id)
		if wait <= 0 {
			kubeconfig, err := session.GenerateKubeconfig(ctx, ref)
			if err != nil {
				return err
			}
			return env.printer.raw(kubeconfig)
		}

		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		var kubeconfig string
		err := retry.Do(waitCtx, func(ctx context.Context) error {
			var err error
			kubeconfig, err = session.GenerateKubeconfig(ctx, ref)
			if errors.Is(err, cloud.ErrInvalidOperation) {
				env.log.V(1).Info("Waiting for Kubernetes API address", "cluster", id)
			}
			return err
		},
			retry.WithMaxRetries(-1),
			retry.WithInitialDelay(kubeconfigPollInterval),
			retry.WithMaxDelay(kubeconfigMaxPollInterval),
			retry.If(func(err error) bool { return errors.Is(err, cloud.ErrInvalidOperation) }),
		)
		if err != nil {
			return err
		}
		return env.printer.raw(kubeconfig)
	})
}
