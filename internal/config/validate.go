package config

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/imamik/cloudbroker/internal/util/naming"
)

// ValidLocations contains all valid Hetzner Cloud datacenter locations.
// https://docs.hetzner.com/cloud/general/locations/
var ValidLocations = map[string]bool{
	"nbg1": true, // Nuremberg, Germany
	"fsn1": true, // Falkenstein, Germany
	"hel1": true, // Helsinki, Finland
	"ash":  true, // Ashburn, USA
	"hil":  true, // Hillsboro, USA
	"sin":  true, // Singapore
}

// ValidNetworkZones contains all valid Hetzner Cloud network zones.
// https://docs.hetzner.com/cloud/networks/overview/
var ValidNetworkZones = map[string]bool{
	"eu-central":   true,
	"us-east":      true,
	"us-west":      true,
	"ap-southeast": true,
}

var (
	validLogFormats = []string{"json", "text"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendHCloud:
		if err := c.HCloud.validate(); err != nil {
			return fmt.Errorf("hcloud validation failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend %q (valid: %s, %s)", c.Backend, BackendMemory, BackendHCloud)
	}

	if err := c.Network.validate(); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}
	if err := c.KeyStore.validate(); err != nil {
		return fmt.Errorf("key store validation failed: %w", err)
	}

	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func (n *NetworkConfig) validate() error {
	prefix, err := netip.ParsePrefix(n.InternalCIDR)
	if err != nil {
		return fmt.Errorf("invalid internal_cidr %q: %w", n.InternalCIDR, err)
	}
	if !prefix.Addr().Is4() {
		return fmt.Errorf("internal_cidr must be IPv4, got %s", n.InternalCIDR)
	}
	if prefix.Masked() != prefix {
		return fmt.Errorf("internal_cidr %s has host bits set", n.InternalCIDR)
	}
	for name, template := range map[string]string{
		"internal_template": n.InternalTemplate,
		"external_template": n.ExternalTemplate,
	} {
		if rest := strings.ReplaceAll(template, naming.TenantNamePlaceholder, ""); strings.ContainsAny(rest, "{}") {
			return fmt.Errorf("%s %q has an unknown placeholder (only %s is supported)", name, template, naming.TenantNamePlaceholder)
		}
	}
	for zone, network := range n.BackdoorNetworks {
		if network == "" {
			return fmt.Errorf("backdoor network for zone %q is empty", zone)
		}
	}
	return nil
}

func (h *HCloudConfig) validate() error {
	if h.Token == "" {
		return fmt.Errorf("hcloud token is required (set %s_HCLOUD_TOKEN)", EnvPrefix)
	}
	if h.ProjectID == "" {
		return fmt.Errorf("hcloud project_id is required")
	}
	if h.Location != "" && !ValidLocations[h.Location] {
		return fmt.Errorf("invalid location %q", h.Location)
	}
	if !ValidNetworkZones[h.NetworkZone] {
		return fmt.Errorf("invalid network zone %q", h.NetworkZone)
	}
	if h.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if h.CacheTTL < 0 || h.RequestTimeout < 0 {
		return fmt.Errorf("cache_ttl and request_timeout must not be negative")
	}
	return nil
}

func (k *KeyStoreConfig) validate() error {
	switch k.Kind {
	case KeyStoreProvider:
		return nil
	case KeyStoreS3:
		if k.S3.Bucket == "" {
			return fmt.Errorf("s3 key store requires a bucket")
		}
		return nil
	default:
		return fmt.Errorf("unknown key store kind %q (valid: %s, %s)", k.Kind, KeyStoreProvider, KeyStoreS3)
	}
}
