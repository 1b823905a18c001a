package provider

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

// keypair returns the keypair holding sshKey, creating it when missing.
// Keypairs are immutable; the name encodes the key fingerprint so a changed
// key yields a new keypair.
func (s *ScopedSession) keypair(ctx context.Context, sshKey string) (cloudapi.Keypair, error) {
	name, err := naming.Keypair(s.username, sshKey)
	if err != nil {
		return cloudapi.Keypair{}, cloud.WrapError(cloud.KindBadInput, err, "Invalid SSH public key provided.")
	}
	compute, err := s.conn.Compute()
	if err != nil {
		return cloudapi.Keypair{}, err
	}
	kp, err := compute.Keypair(ctx, name, cloudapi.Force())
	if cloudapi.IsNotFound(err) {
		s.log.Info("Creating keypair", "keypair", name)
		return compute.CreateKeypair(ctx, name, sshKey)
	}
	return kp, err
}
