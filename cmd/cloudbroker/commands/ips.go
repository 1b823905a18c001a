package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// ExternalIPs returns the external IP command group.
func ExternalIPs(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ips",
		Aliases: []string{"ip"},
		Short:   "Manage external IPs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List external IPs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.ExternalIPs(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "allocate",
			Short: "Allocate an external IP",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.AllocateExternalIP(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "attach IP_ID MACHINE_ID",
			Short: "Attach an external IP to a machine",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.AttachExternalIP(cmd.Context(), opts, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "detach IP_ID",
			Short: "Detach an external IP from its machine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.DetachExternalIP(cmd.Context(), opts, args[0])
			},
		},
	)
	return cmd
}
