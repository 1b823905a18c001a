// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/handlers"
)

// Root returns the root command for the cloudbroker CLI.
//
// The root command owns the global flags for configuration, credentials,
// tenancy selection and output format, and organizes the command hierarchy.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "cloudbroker",
		Short:         "Manage tenancy resources through the cloud broker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	flags.StringVarP(&opts.Username, "username", "u", "", "Username to authenticate with")
	flags.StringVar(&opts.Password, "password", "", "Password to authenticate with (prompted when omitted on a terminal)")
	flags.StringVar(&opts.Token, "token", "", "Token of an existing session")
	flags.StringVarP(&opts.Tenancy, "tenancy", "t", "", "Tenancy id or name (default: first tenancy)")
	flags.StringVarP(&opts.Output, "output", "o", handlers.OutputTable, "Output format: table, json or yaml")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level override: debug, info, warn or error")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write provider metrics to this file on exit")

	// Tenancy commands
	cmd.AddCommand(Tenancies(opts))
	cmd.AddCommand(Capabilities(opts))
	cmd.AddCommand(Quotas(opts))

	// Resource commands
	cmd.AddCommand(Images(opts))
	cmd.AddCommand(Sizes(opts))
	cmd.AddCommand(Machines(opts))
	cmd.AddCommand(Volumes(opts))
	cmd.AddCommand(ExternalIPs(opts))
	cmd.AddCommand(Kubernetes(opts))
	cmd.AddCommand(SSHKey(opts))

	cmd.AddCommand(Version())

	return cmd
}
