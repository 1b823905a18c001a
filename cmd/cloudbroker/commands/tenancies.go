package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// Tenancies returns the command listing the tenancies of the user.
func Tenancies(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "tenancies",
		Short: "List the tenancies you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Tenancies(cmd.Context(), opts)
		},
	}
}

// Capabilities returns the command showing the optional services.
func Capabilities(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show which optional services the cloud offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Capabilities(cmd.Context(), opts)
		},
	}
}

// Quotas returns the command showing tenancy quotas.
func Quotas(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "quotas",
		Short: "Show quota allocation and usage of the tenancy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Quotas(cmd.Context(), opts)
		},
	}
}

// Images returns the command listing machine images.
func Images(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List machine images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Images(cmd.Context(), opts)
		},
	}
}

// Sizes returns the command listing machine sizes.
func Sizes(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List machine sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Sizes(cmd.Context(), opts)
		},
	}
}
