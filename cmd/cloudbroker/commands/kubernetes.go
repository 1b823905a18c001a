package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// Kubernetes returns the Kubernetes cluster command group.
func Kubernetes(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kubernetes",
		Aliases: []string{"k8s"},
		Short:   "Manage Kubernetes clusters",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "templates",
			Short: "List Kubernetes cluster templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.KubernetesTemplates(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List Kubernetes clusters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.KubernetesClusters(cmd.Context(), opts)
			},
		},
		kubernetesCreate(opts),
		&cobra.Command{
			Use:   "delete CLUSTER_ID",
			Short: "Delete a Kubernetes cluster",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.DeleteKubernetesCluster(cmd.Context(), opts, args[0])
			},
		},
		kubeconfig(opts),
	)
	return cmd
}

func kubernetesCreate(opts *handlers.Options) *cobra.Command {
	var create handlers.KubernetesCreateOptions

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a Kubernetes cluster from a template",
		Long: `Create a Kubernetes cluster from a template.

With --autoscaling the cluster starts with --min-workers workers and may grow
to --max-workers; otherwise --workers is fixed. Templates with monitoring get
a generated Grafana admin password.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create.Name = args[0]
			return handlers.CreateKubernetesCluster(cmd.Context(), opts, create)
		},
	}

	cmd.Flags().StringVar(&create.Template, "template", "", "Cluster template id")
	cmd.Flags().StringVar(&create.MasterSize, "master-size", "", "Size id of master nodes")
	cmd.Flags().StringVar(&create.WorkerSize, "worker-size", "", "Size id of worker nodes")
	cmd.Flags().IntVar(&create.WorkerCount, "workers", 1, "Number of workers")
	cmd.Flags().BoolVar(&create.Autoscaling, "autoscaling", false, "Enable worker autoscaling")
	cmd.Flags().IntVar(&create.MinWorkers, "min-workers", 1, "Minimum number of workers with autoscaling")
	cmd.Flags().IntVar(&create.MaxWorkers, "max-workers", 3, "Maximum number of workers with autoscaling")
	cmd.Flags().StringVar(&create.SSHKey, "ssh-key", "", "SSH public key (default: key from the key store)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("master-size")
	_ = cmd.MarkFlagRequired("worker-size")

	return cmd
}

func kubeconfig(opts *handlers.Options) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "kubeconfig CLUSTER_ID",
		Short: "Print an admin kubeconfig for a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Kubeconfig(cmd.Context(), opts, args[0], wait)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the cluster API address (e.g. 10m)")

	return cmd
}
