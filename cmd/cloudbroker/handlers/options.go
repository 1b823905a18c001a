// Package handlers implements the business logic of the cloudbroker CLI
// commands.
//
// Each handler loads the configuration, opens a provider session against
// the configured backend and renders the result in the requested output
// format. The commands package only binds flags and delegates here.
package handlers

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Options holds the global flags shared by every command.
type Options struct {
	ConfigPath string
	Username   string
	Password   string
	Token      string
	// Tenancy selects the tenancy by id or name; empty means the first one.
	Tenancy string
	Output  string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// MetricsFile receives the provider metrics in text format on exit.
	MetricsFile string
}
