// Package main is the entry point for the cloudbroker CLI.
//
// cloudbroker talks to an OpenStack-style cloud through the provider
// sessions of the broker: it lists and manages machines, volumes, external
// IPs and Kubernetes clusters of a tenancy, and the SSH key of the user.
//
// For detailed usage information, run:
//
//	cloudbroker --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/cloudbroker/cmd/cloudbroker/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
