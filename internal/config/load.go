package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the broker.
const EnvPrefix = "CLOUDBROKER"

// defaults lists every key with its default. Keys must be known to viper
// for AutomaticEnv to reach them during Unmarshal.
var defaults = map[string]any{
	"backend":                    BackendMemory,
	"auth_url":                   "",
	"domain":                     "Default",
	"interface":                  "public",
	"verify_ssl":                 true,
	"metadata_prefix":            "portal_",
	"network.internal_template":  "",
	"network.external_template":  "",
	"network.internal_cidr":      "192.168.3.0/24",
	"network.backdoor_networks":  map[string]string{},
	"network.backdoor_vnic_type": "direct",
	"hcloud.token":               "",
	"hcloud.endpoint":            "",
	"hcloud.project_id":          "default",
	"hcloud.project_name":        "default",
	"hcloud.network_zone":        "eu-central",
	"hcloud.location":            "",
	"hcloud.cache_size":          256,
	"hcloud.cache_ttl":           30 * time.Second,
	"hcloud.request_timeout":     30 * time.Second,
	"key_store.kind":             KeyStoreProvider,
	"key_store.s3.endpoint":      "",
	"key_store.s3.region":        "",
	"key_store.s3.bucket":        "",
	"key_store.s3.prefix":        "ssh-keys/",
	"key_store.s3.access_key":    "",
	"key_store.s3.secret_key":    "",
	"key_store.s3.path_style":    false,
	"key_store.s3.read_only":     false,
	"log.format":                 "text",
	"log.level":                  "info",
}

// NewViper returns a viper instance with defaults and environment binding
// set up. Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional file at path into v, then decodes and validates
// the merged configuration.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Network.BackdoorNetworks == nil {
		cfg.Network.BackdoorNetworks = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads a configuration file on top of defaults and environment.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}
	return Load(NewViper(), path)
}
