// Package keystore defines where the SSH public keys of users are kept.
//
// The broker reads a user's key when machines or clusters are created and
// lets users replace it when the store allows. Two stores are provided:
// providerstore keeps keys as cloud keypairs, objectstore keeps them as
// objects in an S3-compatible bucket.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

var (
	ErrKeyNotFound          = errors.New("ssh key not found")
	ErrUnsupportedOperation = errors.New("operation not supported by key store")
	ErrInvalidKey           = errors.New("invalid ssh public key")
)

// KeyStore holds one SSH public key per user.
type KeyStore interface {
	// GetKey returns the key of username, or ErrKeyNotFound.
	GetKey(ctx context.Context, username string) (string, error)
	// UpdateKey replaces the key of username and returns the stored key.
	UpdateKey(ctx context.Context, username, key string) (string, error)
	SupportsKeyUpdate() bool
}

// NormalizeKey checks that key is a single authorized_keys line and returns
// it without surrounding whitespace.
func NormalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, "\r\n") {
		return "", ErrInvalidKey
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}
