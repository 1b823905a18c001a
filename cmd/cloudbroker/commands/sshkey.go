package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// SSHKey returns the command group for the SSH key of the user.
func SSHKey(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh-key",
		Short: "Show or replace your SSH public key",
		Long: `Show or replace your SSH public key.

The key is kept in the configured key store: as a cloud keypair named after
your user, or as an object in an S3-compatible bucket. New machines and
clusters get this key unless another one is given.
`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print your SSH public key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handlers.GetSSHKey(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "set KEY_FILE",
			Short: "Replace your SSH public key with the key in KEY_FILE",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return handlers.SetSSHKey(cmd.Context(), opts, args[0])
			},
		},
	)
	return cmd
}
