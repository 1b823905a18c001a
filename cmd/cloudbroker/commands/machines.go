package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// Machines returns the machine command group.
func Machines(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machines",
		Aliases: []string{"machine"},
		Short:   "Manage machines of the tenancy",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List machines",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.Machines(cmd.Context(), opts)
			},
		},
		machineCreate(opts),
		machineAction(opts, "start", "Power a machine on", handlers.StartMachine),
		machineAction(opts, "stop", "Power a machine off", handlers.StopMachine),
		machineAction(opts, "restart", "Reboot a machine", handlers.RestartMachine),
		machineAction(opts, "delete", "Delete a machine", handlers.DeleteMachine),
		machineAction(opts, "logs", "Print the console log of a machine", handlers.MachineLogs),
	)
	return cmd
}

func machineCreate(opts *handlers.Options) *cobra.Command {
	var create handlers.MachineCreateOptions

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a machine",
		Long: `Create a machine attached to the internal network of the tenancy.

The machine gets the SSH key stored for your user unless --ssh-key is given.
Metadata is stored under the broker metadata prefix.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			create.Name = args[0]
			return handlers.CreateMachine(cmd.Context(), opts, create)
		},
	}

	cmd.Flags().StringVar(&create.Image, "image", "", "Image id")
	cmd.Flags().StringVar(&create.Size, "size", "", "Size id")
	cmd.Flags().StringVar(&create.SSHKey, "ssh-key", "", "SSH public key (default: key from the key store)")
	cmd.Flags().StringToStringVar(&create.Metadata, "metadata", nil, "Metadata as key=value pairs")
	cmd.Flags().StringVar(&create.UserDataFile, "user-data", "", "Path to a cloud-init user data file")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("size")

	return cmd
}

func machineAction(
	opts *handlers.Options,
	name, short string,
	run func(ctx context.Context, opts *handlers.Options, id string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   name + " MACHINE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0])
		},
	}
}
