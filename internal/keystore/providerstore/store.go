// Package providerstore keeps SSH public keys as cloud keypairs.
package providerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/keystore"
)

// Session is the part of an unscoped provider session the store uses.
type Session interface {
	SSHPublicKey(ctx context.Context, keyName string) (string, error)
	UpdateSSHPublicKey(ctx context.Context, keyName, publicKey string) (string, error)
}

// Store reads and writes the keypair named after the user.
type Store struct {
	session Session
}

var _ keystore.KeyStore = (*Store)(nil)

// New creates a store acting through session.
func New(session Session) *Store {
	return &Store{session: session}
}

// GetKey returns the public key of the user's keypair.
func (s *Store) GetKey(ctx context.Context, username string) (string, error) {
	key, err := s.session.SSHPublicKey(ctx, username)
	if errors.Is(err, cloud.ErrObjectNotFound) {
		return "", fmt.Errorf("keypair of %s: %w", username, keystore.ErrKeyNotFound)
	}
	return key, err
}

// UpdateKey replaces the user's keypair.
func (s *Store) UpdateKey(ctx context.Context, username, key string) (string, error) {
	key, err := keystore.NormalizeKey(key)
	if err != nil {
		return "", err
	}
	return s.session.UpdateSSHPublicKey(ctx, username, key)
}

// SupportsKeyUpdate reports true; keypairs can always be replaced.
func (s *Store) SupportsKeyUpdate() bool {
	return true
}
