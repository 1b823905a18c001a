// Package hcloud implements the cloud API on top of the Hetzner Cloud API.
//
// # Architecture
//
// The package is organized into domain-specific modules:
//
//   - client.go: Backend (authenticator), connections and service accessors
//   - compute.go: Servers, server types, SSH keys and volume attachments
//   - network.go: Private networks, synthetic ports and floating IPs
//   - storage.go: Volumes and storage usage
//   - image.go: System images and snapshots
//   - convert.go: Conversion of hcloud records into cloud API records
//   - cache.go: Expiring read cache for volumes and SSH keys
//   - errors.go: Translation of hcloud errors into cloud API errors
//
// # Object mapping
//
// A token grants access to exactly one Hetzner project, which is exposed as
// the single tenancy of the connection. Servers map to servers, server types
// to flavors, SSH keys to keypairs. Every server has a port per attached
// private network (id "<server>:<network>") and a port on the synthetic
// shared external network "public" (id "<server>:public"). Floating IPs are
// assigned to servers; a floating IP bound to any port of a server is
// reported on that server's public port.
//
// Hetzner has no quotas API, so limits are reported as unlimited together
// with the current usage. Container orchestration and orchestration stacks
// are not offered.
package hcloud
