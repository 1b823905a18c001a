// Package objectstore keeps SSH public keys as objects in an S3-compatible
// bucket, one object per user named <prefix><sanitized username>.pub.
package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/cloudbroker/internal/keystore"
	"github.com/imamik/cloudbroker/internal/platform/s3"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

const contentType = "text/plain; charset=utf-8"

// ObjectClient is the bucket access the store needs; *s3.Client implements it.
type ObjectClient interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix of stored objects, e.g. "ssh-keys/".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// ReadOnly disables key updates.
func ReadOnly() Option {
	return func(s *Store) { s.readOnly = true }
}

// Store reads and writes key objects through an ObjectClient.
type Store struct {
	client   ObjectClient
	prefix   string
	readOnly bool
}

var _ keystore.KeyStore = (*Store)(nil)

// New creates a store on client.
func New(client ObjectClient, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ObjectKey returns the object key holding the key of username.
func (s *Store) ObjectKey(username string) string {
	return s.prefix + naming.SanitizeUsername(username) + ".pub"
}

// GetKey returns the stored key of username.
func (s *Store) GetKey(ctx context.Context, username string) (string, error) {
	data, err := s.client.GetObject(ctx, s.ObjectKey(username))
	if errors.Is(err, s3.ErrNotFound) {
		return "", fmt.Errorf("key of %s: %w", username, keystore.ErrKeyNotFound)
	}
	if err != nil {
		return "", err
	}
	return keystore.NormalizeKey(string(data))
}

// UpdateKey validates and uploads the key of username.
func (s *Store) UpdateKey(ctx context.Context, username, key string) (string, error) {
	if s.readOnly {
		return "", keystore.ErrUnsupportedOperation
	}
	key, err := keystore.NormalizeKey(key)
	if err != nil {
		return "", err
	}
	if err := s.client.PutObject(ctx, s.ObjectKey(username), contentType, []byte(key+"\n")); err != nil {
		return "", err
	}
	return key, nil
}

// SupportsKeyUpdate reports whether UpdateKey may be called.
func (s *Store) SupportsKeyUpdate() bool {
	return !s.readOnly
}
