package memory

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"maps"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type coe struct {
	s *scoped
}

type clusterCA struct {
	key     *ecdsa.PrivateKey
	cert    *x509.Certificate
	certPEM string
	serial  int64
}

func (c *Cloud) findTemplate(id string) (cloudapi.ClusterTemplate, bool) {
	for _, t := range c.templates {
		if t.UUID == id {
			return t, true
		}
	}
	return cloudapi.ClusterTemplate{}, false
}

func findCluster(st *projectState, id string) *cloudapi.Cluster {
	for _, cl := range st.clusters {
		if cl.UUID == id {
			return cl
		}
	}
	return nil
}

func clusterView(cl *cloudapi.Cluster) cloudapi.Cluster {
	out := *cl
	out.Labels = maps.Clone(cl.Labels)
	out.HealthStatusReason = maps.Clone(cl.HealthStatusReason)
	return out
}

func (cs *coe) ClusterTemplates(ctx context.Context) ([]cloudapi.ClusterTemplate, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.ClusterTemplates"); err != nil {
		return nil, err
	}
	return slices.Clone(c.templates), nil
}

func (cs *coe) ClusterTemplate(ctx context.Context, id string) (cloudapi.ClusterTemplate, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.ClusterTemplate"); err != nil {
		return cloudapi.ClusterTemplate{}, err
	}
	t, ok := c.findTemplate(id)
	if !ok {
		return cloudapi.ClusterTemplate{}, cloudapi.NotFound("ClusterTemplate %s could not be found.", id)
	}
	return t, nil
}

func (cs *coe) Clusters(ctx context.Context) ([]cloudapi.Cluster, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.Clusters"); err != nil {
		return nil, err
	}
	st := cs.s.state()
	out := make([]cloudapi.Cluster, 0, len(st.clusters))
	for _, cl := range st.clusters {
		out = append(out, clusterView(cl))
	}
	return out, nil
}

func (cs *coe) Cluster(ctx context.Context, id string) (cloudapi.Cluster, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.Cluster"); err != nil {
		return cloudapi.Cluster{}, err
	}
	cl := findCluster(cs.s.state(), id)
	if cl == nil {
		return cloudapi.Cluster{}, cloudapi.NotFound("Cluster %s could not be found.", id)
	}
	return clusterView(cl), nil
}

func (cs *coe) CreateCluster(ctx context.Context, opts cloudapi.ClusterCreateOpts) (cloudapi.Cluster, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.CreateCluster"); err != nil {
		return cloudapi.Cluster{}, err
	}
	t, ok := c.findTemplate(opts.ClusterTemplateID)
	if !ok {
		return cloudapi.Cluster{}, cloudapi.NewError(http.StatusBadRequest, "ClusterTemplate %s could not be found.", opts.ClusterTemplateID)
	}
	if opts.NodeCount < 1 {
		return cloudapi.Cluster{}, cloudapi.NewError(http.StatusBadRequest, "Invalid node_count %d.", opts.NodeCount)
	}
	cl := &cloudapi.Cluster{
		UUID:              uuid.NewString(),
		Name:              opts.Name,
		ClusterTemplateID: t.UUID,
		COEVersion:        t.Labels["kube_tag"],
		Status:            "CREATE_IN_PROGRESS",
		MasterCount:       1,
		NodeCount:         opts.NodeCount,
		MasterFlavorID:    opts.MasterFlavorID,
		FlavorID:          opts.FlavorID,
		Keypair:           opts.Keypair,
		Labels:            maps.Clone(opts.Labels),
		CreatedAt:         c.now(),
	}
	st := cs.s.state()
	st.clusters = append(st.clusters, cl)
	return clusterView(cl), nil
}

func (cs *coe) UpgradeCluster(ctx context.Context, id, templateID string) (cloudapi.Cluster, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.UpgradeCluster"); err != nil {
		return cloudapi.Cluster{}, err
	}
	cl := findCluster(cs.s.state(), id)
	if cl == nil {
		return cloudapi.Cluster{}, cloudapi.NotFound("Cluster %s could not be found.", id)
	}
	t, ok := c.findTemplate(templateID)
	if !ok {
		return cloudapi.Cluster{}, cloudapi.NewError(http.StatusBadRequest, "ClusterTemplate %s could not be found.", templateID)
	}
	cl.ClusterTemplateID = t.UUID
	cl.COEVersion = t.Labels["kube_tag"]
	cl.Status = "UPDATE_IN_PROGRESS"
	now := c.now()
	cl.UpdatedAt = &now
	return clusterView(cl), nil
}

func (cs *coe) DeleteCluster(ctx context.Context, id string) error {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.DeleteCluster"); err != nil {
		return err
	}
	st := cs.s.state()
	if findCluster(st, id) == nil {
		return cloudapi.NotFound("Cluster %s could not be found.", id)
	}
	if c.immediateClusterDelete {
		st.clusters = slices.DeleteFunc(st.clusters, func(cl *cloudapi.Cluster) bool { return cl.UUID == id })
		return nil
	}
	st.deleting[id] = true
	return nil
}

func (c *Cloud) clusterCA(clusterID string) (*clusterCA, error) {
	if ca, ok := c.cas[clusterID]; ok {
		return ca, nil
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: clusterID},
		NotBefore:             c.now().Add(-time.Hour),
		NotAfter:              c.now().Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}
	ca := &clusterCA{
		key:     key,
		cert:    cert,
		certPEM: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
		serial:  1,
	}
	c.cas[clusterID] = ca
	return ca, nil
}

func (cs *coe) SignCertificate(ctx context.Context, clusterID, csrPEM string) (cloudapi.Certificate, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.SignCertificate"); err != nil {
		return cloudapi.Certificate{}, err
	}
	if findCluster(cs.s.state(), clusterID) == nil {
		return cloudapi.Certificate{}, cloudapi.NotFound("Cluster %s could not be found.", clusterID)
	}
	block, _ := pem.Decode([]byte(csrPEM))
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return cloudapi.Certificate{}, cloudapi.NewError(http.StatusBadRequest, "Invalid CSR.")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return cloudapi.Certificate{}, cloudapi.NewError(http.StatusBadRequest, "Invalid CSR: %v", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return cloudapi.Certificate{}, cloudapi.NewError(http.StatusBadRequest, "Invalid CSR signature: %v", err)
	}
	ca, err := c.clusterCA(clusterID)
	if err != nil {
		return cloudapi.Certificate{}, &cloudapi.TransportError{Op: "coe.SignCertificate", Err: err}
	}
	ca.serial++
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(ca.serial),
		Subject:      csr.Subject,
		NotBefore:    c.now().Add(-time.Hour),
		NotAfter:     c.now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, csr.PublicKey, ca.key)
	if err != nil {
		return cloudapi.Certificate{}, &cloudapi.TransportError{Op: "coe.SignCertificate", Err: err}
	}
	return cloudapi.Certificate{
		ClusterUUID: clusterID,
		PEM:         string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}, nil
}

func (cs *coe) CACertificate(ctx context.Context, clusterID string) (cloudapi.Certificate, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "coe.CACertificate"); err != nil {
		return cloudapi.Certificate{}, err
	}
	if findCluster(cs.s.state(), clusterID) == nil {
		return cloudapi.Certificate{}, cloudapi.NotFound("Cluster %s could not be found.", clusterID)
	}
	ca, err := c.clusterCA(clusterID)
	if err != nil {
		return cloudapi.Certificate{}, &cloudapi.TransportError{Op: "coe.CACertificate", Err: err}
	}
	return cloudapi.Certificate{ClusterUUID: clusterID, PEM: ca.certPEM}, nil
}
