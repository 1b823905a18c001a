package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/imamik/cloudbroker/internal/keystore"
	"github.com/imamik/cloudbroker/internal/provider"
)

// GetSSHKey prints the stored SSH public key of the user.
func GetSSHKey(ctx context.Context, opts *Options) error {
	return withUnscoped(ctx, opts, func(env *environment, session *provider.UnscopedSession) error {
		store, err := env.keyStore(ctx, session)
		if err != nil {
			return err
		}
		key, err := store.GetKey(ctx, session.Username())
		if err != nil {
			return err
		}
		return env.printer.raw(key + "\n")
	})
}

// SetSSHKey replaces the stored SSH public key of the user with the key in
// the file at keyPath.
func SetSSHKey(ctx context.Context, opts *Options, keyPath string) error {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	return withUnscoped(ctx, opts, func(env *environment, session *provider.UnscopedSession) error {
		store, err := env.keyStore(ctx, session)
		if err != nil {
			return err
		}
		if !store.SupportsKeyUpdate() {
			return keystore.ErrUnsupportedOperation
		}
		key, err := store.UpdateKey(ctx, session.Username(), strings.TrimSpace(string(data)))
		if err != nil {
			return err
		}
		return env.printer.message(true, "Stored SSH key for %s: %s", session.Username(), key)
	})
}
