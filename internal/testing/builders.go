package testing

import (
	"maps"
	"time"

	"github.com/imamik/cloudbroker/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with the loader's defaults
// for the memory backend.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Backend:        config.BackendMemory,
			Domain:         "Default",
			Interface:      "public",
			VerifySSL:      true,
			MetadataPrefix: "portal_",
			Network: config.NetworkConfig{
				InternalCIDR:     "192.168.3.0/24",
				BackdoorNetworks: map[string]string{},
				BackdoorVNICType: "direct",
			},
			HCloud: config.HCloudConfig{
				ProjectID:      "default",
				ProjectName:    "default",
				NetworkZone:    "eu-central",
				CacheSize:      256,
				CacheTTL:       30 * time.Second,
				RequestTimeout: 30 * time.Second,
			},
			KeyStore: config.KeyStoreConfig{
				Kind: config.KeyStoreProvider,
				S3:   config.S3Config{Prefix: "ssh-keys/"},
			},
			Log: config.LogConfig{Format: "text", Level: "info"},
		},
	}
}

// WithHCloud selects the Hetzner backend with token.
func (b *ConfigBuilder) WithHCloud(token, endpoint string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Backend = config.BackendHCloud
	newBuilder.cfg.HCloud.Token = token
	newBuilder.cfg.HCloud.Endpoint = endpoint
	return newBuilder
}

// WithMetadataPrefix sets the metadata prefix.
func (b *ConfigBuilder) WithMetadataPrefix(prefix string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.MetadataPrefix = prefix
	return newBuilder
}

// WithNetworkTemplates sets the internal and external network name templates.
func (b *ConfigBuilder) WithNetworkTemplates(internal, external string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Network.InternalTemplate = internal
	newBuilder.cfg.Network.ExternalTemplate = external
	return newBuilder
}

// WithInternalCIDR sets the subnet of auto-created tenant networks.
func (b *ConfigBuilder) WithInternalCIDR(cidr string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Network.InternalCIDR = cidr
	return newBuilder
}

// WithBackdoorNetwork maps an availability zone to a backdoor network.
func (b *ConfigBuilder) WithBackdoorNetwork(zone, networkID string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Network.BackdoorNetworks[zone] = networkID
	return newBuilder
}

// WithS3KeyStore keeps SSH keys in bucket at endpoint.
func (b *ConfigBuilder) WithS3KeyStore(endpoint, bucket string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.KeyStore.Kind = config.KeyStoreS3
	newBuilder.cfg.KeyStore.S3.Endpoint = endpoint
	newBuilder.cfg.KeyStore.S3.Bucket = bucket
	newBuilder.cfg.KeyStore.S3.Region = "fsn1"
	newBuilder.cfg.KeyStore.S3.AccessKey = "test-key"
	newBuilder.cfg.KeyStore.S3.SecretKey = "test-secret"
	newBuilder.cfg.KeyStore.S3.PathStyle = true
	return newBuilder
}

// WithLog sets the log format and level.
func (b *ConfigBuilder) WithLog(format, level string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Log = config.LogConfig{Format: format, Level: level}
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	return &b.clone().cfg
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Network.BackdoorNetworks = maps.Clone(b.cfg.Network.BackdoorNetworks)
	if cfg.Network.BackdoorNetworks == nil {
		cfg.Network.BackdoorNetworks = map[string]string{}
	}
	return &ConfigBuilder{cfg: cfg}
}

// MinimalConfig returns a valid memory backend configuration.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}
