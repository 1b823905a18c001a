package hcloud

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// readCache keeps recently read volumes and SSH keys of one scoped
// connection. A nil *readCache caches nothing.
type readCache struct {
	volumes  *expirable.LRU[string, cloudapi.Volume]
	keypairs *expirable.LRU[string, cloudapi.Keypair]
}

func newReadCache(size int, ttl time.Duration) *readCache {
	if size <= 0 {
		return nil
	}
	return &readCache{
		volumes:  expirable.NewLRU[string, cloudapi.Volume](size, nil, ttl),
		keypairs: expirable.NewLRU[string, cloudapi.Keypair](size, nil, ttl),
	}
}

func (c *readCache) volume(id string) (cloudapi.Volume, bool) {
	if c == nil {
		return cloudapi.Volume{}, false
	}
	return c.volumes.Get(id)
}

func (c *readCache) putVolume(v cloudapi.Volume) {
	if c != nil {
		c.volumes.Add(v.ID, v)
	}
}

func (c *readCache) forgetVolume(id string) {
	if c != nil {
		c.volumes.Remove(id)
	}
}

func (c *readCache) keypair(name string) (cloudapi.Keypair, bool) {
	if c == nil {
		return cloudapi.Keypair{}, false
	}
	return c.keypairs.Get(name)
}

func (c *readCache) putKeypair(kp cloudapi.Keypair) {
	if c != nil {
		c.keypairs.Add(kp.Name, kp)
	}
}

func (c *readCache) forgetKeypair(name string) {
	if c != nil {
		c.keypairs.Remove(name)
	}
}

func (c *readCache) purge() {
	if c != nil {
		c.volumes.Purge()
		c.keypairs.Purge()
	}
}
