package config

import "time"

// Backends.
const (
	BackendMemory = "memory"
	BackendHCloud = "hcloud"
)

// Key store kinds.
const (
	KeyStoreProvider = "provider"
	KeyStoreS3       = "s3"
)

// Config is the complete broker configuration.
type Config struct {
	// Backend selects the cloud API implementation.
	Backend   string `mapstructure:"backend"`
	AuthURL   string `mapstructure:"auth_url"`
	Domain    string `mapstructure:"domain"`
	Interface string `mapstructure:"interface"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
	// MetadataPrefix marks metadata keys owned by the broker.
	MetadataPrefix string `mapstructure:"metadata_prefix"`

	Network  NetworkConfig  `mapstructure:"network"`
	HCloud   HCloudConfig   `mapstructure:"hcloud"`
	KeyStore KeyStoreConfig `mapstructure:"key_store"`
	Log      LogConfig      `mapstructure:"log"`
}

// NetworkConfig controls how tenant and external networks are resolved.
type NetworkConfig struct {
	// InternalTemplate and ExternalTemplate are network name templates;
	// {tenant_name} is replaced with the tenancy name.
	InternalTemplate string `mapstructure:"internal_template"`
	ExternalTemplate string `mapstructure:"external_template"`
	// InternalCIDR is the subnet of auto-created tenant networks.
	InternalCIDR string `mapstructure:"internal_cidr"`
	// BackdoorNetworks maps availability zone to backdoor network id. Keys read
	// from a config file arrive lower-cased.
	BackdoorNetworks map[string]string `mapstructure:"backdoor_networks"`
	BackdoorVNICType string            `mapstructure:"backdoor_vnic_type"`
}

// HCloudConfig configures the Hetzner Cloud backend.
type HCloudConfig struct {
	Token    string `mapstructure:"token"`
	Endpoint string `mapstructure:"endpoint"`
	// ProjectID and ProjectName describe the single tenancy a token grants.
	ProjectID      string        `mapstructure:"project_id"`
	ProjectName    string        `mapstructure:"project_name"`
	NetworkZone    string        `mapstructure:"network_zone"`
	Location       string        `mapstructure:"location"`
	CacheSize      int           `mapstructure:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// KeyStoreConfig selects where user SSH keys are kept.
type KeyStoreConfig struct {
	Kind string   `mapstructure:"kind"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config configures the object key store.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
	ReadOnly  bool   `mapstructure:"read_only"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}
