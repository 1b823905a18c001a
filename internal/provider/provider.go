// Package provider adapts the cloud API to the normalized resource model.
//
// A Provider authenticates users and yields an UnscopedSession, which lists
// tenancies and exchanges one for a ScopedSession. Every resource operation
// is a method on the scoped session; it issues sequential remote calls,
// translates failures into cloud.Error values and re-reads authoritative
// state after mutations.
//
// Sessions are owned by one logical request and are not safe for
// concurrent use.
package provider

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/go-logr/logr"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/clusterengine"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/naming"
)

// Provider creates sessions against one cloud.
type Provider struct {
	auth     cloudapi.Authenticator
	settings *settings
}

// New creates a Provider that authenticates through auth.
func New(auth cloudapi.Authenticator, opts ...Option) *Provider {
	return &Provider{auth: auth, settings: newSettings(opts...)}
}

// Authenticate opens an unscoped session with username and password.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (*UnscopedSession, error) {
	log := p.settings.logger.WithValues("user", username)
	return do(ctx, log, "authenticate", func() (*UnscopedSession, error) {
		log.Info("Authenticating user")
		conn, err := p.auth.WithPassword(ctx, username, password)
		if cloudapi.StatusCode(err) == http.StatusUnauthorized {
			log.Info("Authentication failed")
			return nil, cloud.WrapError(cloud.KindAuthentication, err, "Invalid username or password.")
		}
		if err != nil {
			return nil, err
		}
		log.Info("Successfully authenticated user")
		return newUnscopedSession(conn, p.settings), nil
	})
}

// FromToken resumes an unscoped session from a token.
func (p *Provider) FromToken(ctx context.Context, token string) (*UnscopedSession, error) {
	log := p.settings.logger
	return do(ctx, log, "from_token", func() (*UnscopedSession, error) {
		conn, err := p.auth.WithToken(ctx, token)
		// Failing to validate a token is a 404 on some identity services.
		if code := cloudapi.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusNotFound {
			log.Info("Token authentication failed")
			return nil, cloud.WrapError(cloud.KindAuthentication, err, msgSessionExpired)
		}
		if err != nil {
			return nil, err
		}
		log.Info("Successfully authenticated user", "user", conn.Username())
		return newUnscopedSession(conn, p.settings), nil
	})
}

// UnscopedSession is an authenticated session not yet bound to a tenancy.
type UnscopedSession struct {
	conn     cloudapi.Connection
	settings *settings
	log      logr.Logger
}

func newUnscopedSession(conn cloudapi.Connection, s *settings) *UnscopedSession {
	return &UnscopedSession{
		conn:     conn,
		settings: s,
		log:      s.logger.WithValues("user", conn.Username()),
	}
}

// Token returns the session token, usable with Provider.FromToken.
func (u *UnscopedSession) Token() string {
	return u.conn.Token()
}

// Username returns the authenticated username.
func (u *UnscopedSession) Username() string {
	return u.conn.Username()
}

// Tenancies lists the enabled tenancies of the user.
func (u *UnscopedSession) Tenancies(ctx context.Context) ([]cloud.Tenancy, error) {
	return do(ctx, u.log, "tenancies", func() ([]cloud.Tenancy, error) {
		return u.tenancies(ctx)
	})
}

func (u *UnscopedSession) tenancies(ctx context.Context) ([]cloud.Tenancy, error) {
	u.log.Info("Fetching available tenancies")
	projects, err := u.conn.Projects(ctx)
	if err != nil {
		return nil, err
	}
	u.log.Info("Found projects", "count", len(projects))
	tenancies := make([]cloud.Tenancy, 0, len(projects))
	for _, p := range projects {
		if p.Enabled {
			tenancies = append(tenancies, cloud.Tenancy{ID: p.ID, Name: p.Name})
		}
	}
	return tenancies, nil
}

// ScopedSession binds the session to a tenancy. A tenancy given by id is
// looked up in the tenancy list.
func (u *UnscopedSession) ScopedSession(ctx context.Context, ref cloud.Ref[cloud.Tenancy]) (*ScopedSession, error) {
	return do(ctx, u.log, "scoped_session", func() (*ScopedSession, error) {
		tenancy, ok := ref.Value()
		if !ok {
			tenancies, err := u.tenancies(ctx)
			if err != nil {
				return nil, err
			}
			idx := slices.IndexFunc(tenancies, func(t cloud.Tenancy) bool { return t.ID == ref.ID() })
			if idx < 0 {
				return nil, cloud.ObjectNotFoundError("Could not find tenancy with ID %s.", ref.ID())
			}
			tenancy = tenancies[idx]
		}
		u.log.Info("Creating scoped session", "tenancy", tenancy.Name)
		conn, err := u.conn.Scoped(ctx, tenancy.ID)
		if code := cloudapi.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return nil, cloud.WrapError(cloud.KindObjectNotFound, err, "Could not find tenancy with ID "+tenancy.ID+".")
		}
		if err != nil {
			return nil, err
		}
		return newScopedSession(ctx, u.Username(), tenancy, conn, u.settings)
	})
}

// firstProject returns a scoped connection for the first project of the
// user. Keypairs are shared between projects, so any project will do.
func (u *UnscopedSession) firstProject(ctx context.Context) (cloudapi.ScopedConnection, error) {
	projects, err := u.conn.Projects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, cloud.InvalidOperationError("User does not belong to any projects.")
	}
	return u.conn.Scoped(ctx, projects[0].ID)
}

// Capabilities reports the optional services of the deployment, probed
// through the first project of the user. A user without projects gets
// the default, all false.
func (u *UnscopedSession) Capabilities(ctx context.Context) (cloud.Capabilities, error) {
	return do(ctx, u.log, "capabilities", func() (cloud.Capabilities, error) {
		conn, err := u.firstProject(ctx)
		if errors.Is(err, cloud.ErrInvalidOperation) {
			u.log.Info("Using default capabilities", "reason", err.Error())
			return cloud.Capabilities{}, nil
		}
		if err != nil {
			return cloud.Capabilities{}, err
		}
		defer func() { _ = conn.Close() }()

		volumes, err := offered(conn.BlockStore())
		if err != nil {
			return cloud.Capabilities{}, err
		}
		kubernetes, err := offered(conn.COE())
		if err != nil {
			return cloud.Capabilities{}, err
		}
		return cloud.Capabilities{
			SupportsVolumes:    volumes,
			SupportsKubernetes: kubernetes,
			SupportsClusters:   u.settings.clusterEngine != nil,
		}, nil
	})
}

// offered reports whether a service handle is available. Only a missing
// service counts as not offered; any other failure is returned.
func offered[S any](_ S, err error) (bool, error) {
	if cloudapi.IsServiceNotSupported(err) {
		return false, nil
	}
	return err == nil, err
}

// SSHPublicKey returns the public key stored in the keypair named after keyName.
func (u *UnscopedSession) SSHPublicKey(ctx context.Context, keyName string) (string, error) {
	return do(ctx, u.log, "ssh_public_key", func() (string, error) {
		name := naming.SanitizeUsername(keyName)
		u.log.Info("Attempting to locate keypair", "keypair", name)
		compute, closeConn, err := u.firstProjectCompute(ctx)
		if err != nil {
			return "", err
		}
		defer closeConn()
		kp, err := compute.Keypair(ctx, name)
		if err != nil {
			return "", err
		}
		return kp.PublicKey, nil
	})
}

// UpdateSSHPublicKey replaces the keypair named after keyName. Keypairs are
// immutable, so any existing one is deleted first.
func (u *UnscopedSession) UpdateSSHPublicKey(ctx context.Context, keyName, publicKey string) (string, error) {
	return do(ctx, u.log, "update_ssh_public_key", func() (string, error) {
		name := naming.SanitizeUsername(keyName)
		compute, closeConn, err := u.firstProjectCompute(ctx)
		if err != nil {
			return "", err
		}
		defer closeConn()
		switch err := compute.DeleteKeypair(ctx, name); {
		case err == nil:
			u.log.Info("Deleted previous keypair", "keypair", name)
		case !cloudapi.IsNotFound(err):
			return "", err
		}
		u.log.Info("Creating keypair", "keypair", name)
		kp, err := compute.CreateKeypair(ctx, name, publicKey)
		if err != nil {
			return "", err
		}
		return kp.PublicKey, nil
	})
}

func (u *UnscopedSession) firstProjectCompute(ctx context.Context) (cloudapi.ComputeService, func(), error) {
	conn, err := u.firstProject(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeConn := func() { _ = conn.Close() }
	compute, err := conn.Compute()
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	return compute, closeConn, nil
}

// Close releases the underlying connection.
func (u *UnscopedSession) Close() error {
	return u.conn.Close()
}

// ScopedSession is a session bound to one tenancy.
type ScopedSession struct {
	username string
	tenancy  cloud.Tenancy
	conn     cloudapi.ScopedConnection
	settings *settings
	log      logr.Logger
	// clusters is nil when application clusters are unsupported.
	clusters clusterengine.Manager
}

func newScopedSession(
	ctx context.Context,
	username string,
	tenancy cloud.Tenancy,
	conn cloudapi.ScopedConnection,
	s *settings,
) (*ScopedSession, error) {
	session := &ScopedSession{
		username: username,
		tenancy:  tenancy,
		conn:     conn,
		settings: s,
		log:      s.logger.WithValues("user", username, "tenancy", tenancy.Name),
	}
	if s.clusterEngine != nil {
		manager, err := s.clusterEngine.CreateManager(ctx, username, tenancy)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		session.clusters = manager
	}
	return session, nil
}

// Tenancy returns the tenancy the session is bound to.
func (s *ScopedSession) Tenancy() cloud.Tenancy {
	return s.tenancy
}

// Username returns the user the session acts for.
func (s *ScopedSession) Username() string {
	return s.username
}

// Close releases the connection and the cluster manager, if any.
func (s *ScopedSession) Close() error {
	err := s.conn.Close()
	if s.clusters != nil {
		err = errors.Join(err, s.clusters.Close())
	}
	return err
}
