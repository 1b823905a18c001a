package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/config"
	"github.com/imamik/cloudbroker/internal/keystore"
	"github.com/imamik/cloudbroker/internal/keystore/objectstore"
	"github.com/imamik/cloudbroker/internal/platform/s3"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

func TestSelectTenancy(t *testing.T) {
	t.Parallel()
	tenancies := []cloud.Tenancy{{ID: "p-1", Name: "research"}, {ID: "p-2", Name: "teaching"}}

	tests := []struct {
		name    string
		want    string
		wantID  string
		wantErr string
	}{
		{name: "empty picks first", want: "", wantID: "p-1"},
		{name: "by id", want: "p-2", wantID: "p-2"},
		{name: "by name", want: "teaching", wantID: "p-2"},
		{name: "unknown", want: "other", wantErr: `tenancy "other" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := selectTenancy(tenancies, tt.want)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, err := selectTenancy(nil, "")
	require.Error(t, err)
}

func TestUnscoped_DemoCloud(t *testing.T) {
	origStderr := stderr
	t.Cleanup(func() { stderr = origStderr })
	stderr = io.Discard

	env, err := newEnvironment(&Options{})
	require.NoError(t, err)

	session, err := env.unscoped(cbtest.TestContext(t))
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	assert.Equal(t, demoUsername, session.Username())
	tenancies, err := session.Tenancies(cbtest.TestContext(t))
	require.NoError(t, err)
	require.Len(t, tenancies, 1)
	assert.Equal(t, "demo", tenancies[0].Name)
}

func TestUnscoped_PromptsForPassword(t *testing.T) {
	fx, _ := useFixture(t)
	isInteractiveTTY = func() bool { return true }
	var prompted string
	promptPassword = func(_ context.Context, username string) (string, error) {
		prompted = username
		return fx.Password, nil
	}

	env, err := newEnvironment(&Options{Username: fx.Username})
	require.NoError(t, err)
	session, err := env.unscoped(cbtest.TestContext(t))
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	assert.Equal(t, fx.Username, prompted)
}

func TestUnscoped_NoPasswordWithoutTerminal(t *testing.T) {
	fx, _ := useFixture(t)

	env, err := newEnvironment(&Options{Username: fx.Username})
	require.NoError(t, err)
	_, err = env.unscoped(cbtest.TestContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password required")
}

func TestUnscoped_Token(t *testing.T) {
	fx, out := useFixture(t)
	token := fx.Cloud.IssueToken(fx.Username)

	require.NoError(t, Tenancies(cbtest.TestContext(t), &Options{Token: token, Output: OutputJSON}))
	tenancies := decode[[]cloud.Tenancy](t, out)
	assert.Len(t, tenancies, 1)
}

func TestNewEnvironment_InvalidOutput(t *testing.T) {
	_, _ = useFixture(t)

	_, err := newEnvironment(&Options{Output: "xml"})
	require.Error(t, err)
}

func TestNewEnvironment_MissingConfigFile(t *testing.T) {
	_, _ = useFixture(t)

	_, err := newEnvironment(&Options{ConfigPath: "/nonexistent/cloudbroker.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDefaultAuthenticator(t *testing.T) {
	t.Parallel()

	auth, err := defaultAuthenticator(&config.Config{Backend: config.BackendMemory})
	require.NoError(t, err)
	_, err = auth.WithPassword(context.Background(), demoUsername, demoPassword)
	require.NoError(t, err)

	auth, err = defaultAuthenticator(&config.Config{Backend: config.BackendHCloud})
	require.NoError(t, err)
	assert.NotNil(t, auth)

	_, err = defaultAuthenticator(&config.Config{Backend: "vsphere"})
	require.Error(t, err)
}

type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return data, nil
}

func (f *fakeObjects) PutObject(_ context.Context, key, _ string, data []byte) error {
	f.objects[key] = data
	return nil
}

func TestKeyStore_ObjectStore(t *testing.T) {
	fx, _ := useFixture(t)
	objects := &fakeObjects{objects: map[string][]byte{}}
	origClient := newObjectClient
	t.Cleanup(func() { newObjectClient = origClient })
	var bucket string
	newObjectClient = func(_ context.Context, cfg config.S3Config) (objectstore.ObjectClient, error) {
		bucket = cfg.Bucket
		return objects, nil
	}

	env, err := newEnvironment(&Options{Username: fx.Username, Password: fx.Password})
	require.NoError(t, err)
	env.cfg.KeyStore = config.KeyStoreConfig{
		Kind: config.KeyStoreS3,
		S3:   config.S3Config{Bucket: "keys", Prefix: "ssh-keys/", ReadOnly: true},
	}

	store, err := env.keyStore(cbtest.TestContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "keys", bucket)
	assert.False(t, store.SupportsKeyUpdate())

	_, err = store.UpdateKey(cbtest.TestContext(t), fx.Username, cbtest.SSHPublicKey(t))
	require.ErrorIs(t, err, keystore.ErrUnsupportedOperation)
}
