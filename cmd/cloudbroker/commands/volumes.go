package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// Volumes returns the volume command group.
func Volumes(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "volumes",
		Aliases: []string{"volume"},
		Short:   "Manage block storage volumes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List volumes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.Volumes(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "create NAME SIZE_GB",
			Short: "Create a volume",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				size, err := strconv.Atoi(args[1])
				if err != nil {
					return err
				}
				return handlers.CreateVolume(cmd.Context(), opts, args[0], size)
			},
		},
		&cobra.Command{
			Use:   "delete VOLUME_ID",
			Short: "Delete a volume",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.DeleteVolume(cmd.Context(), opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "attach VOLUME_ID MACHINE_ID",
			Short: "Attach a volume to a machine",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.AttachVolume(cmd.Context(), opts, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "detach VOLUME_ID",
			Short: "Detach a volume from its machine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.DetachVolume(cmd.Context(), opts, args[0])
			},
		},
	)
	return cmd
}
