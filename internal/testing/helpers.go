package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/cloudbroker/internal/util/keygen"
)

// TB is the subset of testing.TB the helpers need; GinkgoT() satisfies it too.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SSHPublicKey generates a fresh authorized_keys line.
func SSHPublicKey(t TB) string {
	t.Helper()
	kp, err := keygen.GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("failed to generate SSH key: %v", err)
	}
	return string(kp.PublicKey)
}
