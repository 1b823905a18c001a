package keystore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/imamik/cloudbroker/internal/testing"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	key := strings.TrimSpace(testutil.SSHPublicKey(t))

	got, err := NormalizeKey("  " + key + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	for _, bad := range []string{"", "not a key", key + "\n" + key} {
		_, err := NormalizeKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", bad)
	}
}
