package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/config"
	"github.com/imamik/cloudbroker/internal/keystore"
	"github.com/imamik/cloudbroker/internal/keystore/objectstore"
	"github.com/imamik/cloudbroker/internal/keystore/providerstore"
	"github.com/imamik/cloudbroker/internal/logging"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/platform/hcloud"
	"github.com/imamik/cloudbroker/internal/platform/s3"
	"github.com/imamik/cloudbroker/internal/provider"
)

// Factory function variables - can be replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	isInteractiveTTY = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// promptPassword asks for the password of username.
	promptPassword = askPassword

	// newAuthenticator builds the cloud API backend selected by cfg.
	newAuthenticator = defaultAuthenticator

	// newObjectClient opens the bucket of the object key store.
	newObjectClient = func(ctx context.Context, cfg config.S3Config) (objectstore.ObjectClient, error) {
		return s3.NewClient(ctx, cfg.Bucket, s3.Options{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			PathStyle: cfg.PathStyle,
		})
	}
)

// environment is the wiring of one CLI invocation.
type environment struct {
	opts     *Options
	cfg      *config.Config
	log      logr.Logger
	provider *provider.Provider
	registry *prometheus.Registry
	printer  *printer
	// session is the unscoped session of the invocation, once opened.
	session *provider.UnscopedSession
}

func newEnvironment(opts *Options) (*environment, error) {
	cfg, err := config.Load(config.NewViper(), opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logging.New(stderr, cfg.Log.Format, level)

	p, err := newPrinter(stdout, opts.Output, isInteractiveTTY())
	if err != nil {
		return nil, err
	}

	auth, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	if err := provider.RegisterMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &environment{
		opts:     opts,
		cfg:      cfg,
		log:      log,
		provider: provider.New(auth, providerOptions(cfg, log)...),
		registry: registry,
		printer:  p,
	}, nil
}

func providerOptions(cfg *config.Config, log logr.Logger) []provider.Option {
	return []provider.Option{
		provider.WithLogger(log),
		provider.WithMetadataPrefix(cfg.MetadataPrefix),
		provider.WithInternalNetworkTemplate(cfg.Network.InternalTemplate),
		provider.WithExternalNetworkTemplate(cfg.Network.ExternalTemplate),
		provider.WithInternalNetworkCIDR(cfg.Network.InternalCIDR),
		provider.WithBackdoorNetworks(cfg.Network.BackdoorNetworks),
		provider.WithBackdoorVNICType(cfg.Network.BackdoorVNICType),
	}
}

func defaultAuthenticator(cfg *config.Config) (cloudapi.Authenticator, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return newDemoCloud(), nil
	case config.BackendHCloud:
		h := cfg.HCloud
		return hcloud.New(
			hcloud.WithEndpoint(h.Endpoint),
			hcloud.WithProject(h.ProjectID, h.ProjectName),
			hcloud.WithNetworkZone(h.NetworkZone),
			hcloud.WithLocation(h.Location),
			hcloud.WithNetworkRange(cfg.Network.InternalCIDR),
			hcloud.WithCache(h.CacheSize, h.CacheTTL),
			hcloud.WithRequestTimeout(h.RequestTimeout),
		), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func askPassword(ctx context.Context, username string) (string, error) {
	var password string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("Password for %s", username)).
			EchoMode(huh.EchoModePassword).
			Value(&password),
	)).RunWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}
	return password, nil
}

// finish writes the collected metrics when a metrics file is set.
func (e *environment) finish() error {
	if e.opts.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(e.opts.MetricsFile, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// unscoped authenticates with a token when one is given, otherwise with
// username and password. The memory backend falls back to the demo user.
func (e *environment) unscoped(ctx context.Context) (*provider.UnscopedSession, error) {
	token := e.opts.Token
	if token == "" && e.opts.Username == "" && e.cfg.Backend == config.BackendHCloud {
		token = e.cfg.HCloud.Token
	}
	if token != "" {
		return e.provider.FromToken(ctx, token)
	}

	username, password := e.opts.Username, e.opts.Password
	if username == "" {
		if e.cfg.Backend != config.BackendMemory {
			return nil, errors.New("credentials required: set --token or --username")
		}
		username, password = demoUsername, demoPassword
	}
	if password == "" {
		if !isInteractiveTTY() {
			return nil, fmt.Errorf("password required for %s: set --password or run in a terminal", username)
		}
		var err error
		if password, err = promptPassword(ctx, username); err != nil {
			return nil, err
		}
	}
	return e.provider.Authenticate(ctx, username, password)
}

// keyStore returns the SSH key store selected by the configuration.
func (e *environment) keyStore(ctx context.Context, session *provider.UnscopedSession) (keystore.KeyStore, error) {
	if e.cfg.KeyStore.Kind != config.KeyStoreS3 {
		return providerstore.New(session), nil
	}
	s3cfg := e.cfg.KeyStore.S3
	client, err := newObjectClient(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	opts := []objectstore.Option{objectstore.WithPrefix(s3cfg.Prefix)}
	if s3cfg.ReadOnly {
		opts = append(opts, objectstore.ReadOnly())
	}
	return objectstore.New(client, opts...), nil
}

// userKey returns the stored SSH key of the session user, or "" when the
// user has none.
func (e *environment) userKey(ctx context.Context) (string, error) {
	store, err := e.keyStore(ctx, e.session)
	if err != nil {
		return "", err
	}
	key, err := store.GetKey(ctx, e.session.Username())
	if errors.Is(err, keystore.ErrKeyNotFound) {
		e.log.V(1).Info("No SSH key stored for user", "user", e.session.Username())
		return "", nil
	}
	return key, err
}

// selectTenancy picks the tenancy matching want by id or name, or the first
// tenancy when want is empty.
func selectTenancy(tenancies []cloud.Tenancy, want string) (cloud.Tenancy, error) {
	if len(tenancies) == 0 {
		return cloud.Tenancy{}, errors.New("user does not belong to any tenancy")
	}
	if want == "" {
		return tenancies[0], nil
	}
	for _, t := range tenancies {
		if t.ID == want || t.Name == want {
			return t, nil
		}
	}
	return cloud.Tenancy{}, fmt.Errorf("tenancy %q not found", want)
}

// withUnscoped runs fn with an unscoped session and releases it afterwards.
func withUnscoped(ctx context.Context, opts *Options, fn func(*environment, *provider.UnscopedSession) error) (err error) {
	env, err := newEnvironment(opts)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.finish()) }()

	session, err := env.unscoped(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	env.session = session
	return fn(env, session)
}

// withScoped runs fn with a session bound to the selected tenancy.
func withScoped(ctx context.Context, opts *Options, fn func(*environment, *provider.ScopedSession) error) error {
	return withUnscoped(ctx, opts, func(env *environment, session *provider.UnscopedSession) error {
		tenancies, err := session.Tenancies(ctx)
		if err != nil {
			return err
		}
		tenancy, err := selectTenancy(tenancies, opts.Tenancy)
		if err != nil {
			return err
		}
		scoped, err := session.ScopedSession(ctx, cloud.ByValue(tenancy))
		if err != nil {
			return err
		}
		defer func() { _ = scoped.Close() }()
		return fn(env, scoped)
	})
}
