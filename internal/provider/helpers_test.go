package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

// newSession opens a scoped session on the fixture tenancy.
func newSession(t *testing.T, fx *cbtest.CloudFixture, opts ...Option) *ScopedSession {
	t.Helper()
	ctx := cbtest.TestContext(t)
	unscoped, err := New(fx.Cloud, opts...).Authenticate(ctx, fx.Username, fx.Password)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unscoped.Close() })

	session, err := unscoped.ScopedSession(ctx, cloud.ByID[cloud.Tenancy](fx.Project.ID))
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// requireKind asserts that err is a domain error of the given kind.
func requireKind(t *testing.T, err error, kind cloud.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), cloud.KindOf(err).String(), "unexpected error: %v", err)
}
