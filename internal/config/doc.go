// Package config loads the broker configuration.
//
// Values are layered with viper: built-in defaults, then an optional YAML
// file, then CLOUDBROKER_* environment variables (nested keys joined with
// underscores, e.g. CLOUDBROKER_HCLOUD_TOKEN), then any flags bound by the
// CLI. Load validates the merged result.
package config
