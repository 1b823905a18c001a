package provider

import (
	"context"
	"encoding/base64"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/util/keygen"
)

const (
	kubeconfigUser    = "admin"
	kubeconfigContext = "default"
	// base64BlockWidth is the line width of embedded certificate data.
	base64BlockWidth = 64
)

var adminSubject = keygen.Subject{CommonName: "admin", Organization: "system:masters"}

// GenerateKubeconfig issues an admin client certificate for a cluster and
// returns a kubeconfig document that embeds it.
func (s *ScopedSession) GenerateKubeconfig(ctx context.Context, ref cloud.Ref[cloud.KubernetesCluster]) (string, error) {
	return do(ctx, s.log, "generate_kubeconfig", func() (string, error) {
		cluster, err := s.resolveKubernetesCluster(ctx, ref)
		if err != nil {
			return "", err
		}
		if cluster.APIAddress == "" {
			return "", cloud.InvalidOperationError("Kubernetes API address is not yet known.")
		}
		s.log.Info("Generating kubeconfig for Kubernetes cluster", "cluster", cluster.ID)
		csr, err := keygen.GenerateClientCSR(nil, keygen.MinClientKeyBits, adminSubject)
		if err != nil {
			return "", err
		}
		coe, err := s.conn.COE()
		if err != nil {
			return "", err
		}
		s.log.Info("Signing generated CSR with cluster CA", "cluster", cluster.ID)
		cert, err := coe.SignCertificate(ctx, cluster.ID, string(csr.CSR))
		if err != nil {
			return "", err
		}
		s.log.Info("Fetching CA for cluster", "cluster", cluster.ID)
		ca, err := coe.CACertificate(ctx, cluster.ID)
		if err != nil {
			return "", err
		}
		return renderKubeconfig(cluster, ca.PEM, cert.PEM, string(csr.PrivateKey))
	})
}

// renderKubeconfig builds the kubeconfig document and checks that client-go
// accepts it.
func renderKubeconfig(cluster cloud.KubernetesCluster, caPEM, certPEM, keyPEM string) (string, error) {
	doc := mapping(
		"apiVersion", str("v1"),
		"kind", str("Config"),
		"preferences", &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle},
		"clusters", sequence(mapping(
			"name", str(cluster.Name),
			"cluster", mapping(
				"server", str(cluster.APIAddress),
				"certificate-authority-data", base64Block(caPEM),
			),
		)),
		"users", sequence(mapping(
			"name", str(kubeconfigUser),
			"user", mapping(
				"client-certificate-data", base64Block(certPEM),
				"client-key-data", base64Block(keyPEM),
			),
		)),
		"contexts", sequence(mapping(
			"name", str(kubeconfigContext),
			"context", mapping(
				"cluster", str(cluster.Name),
				"user", str(kubeconfigUser),
			),
		)),
		"current-context", str(kubeconfigContext),
	)
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}

	config, err := clientcmd.Load(out)
	if err != nil {
		return "", cloud.WrapError(cloud.KindCommunication, err, msgUnknownAPIError)
	}
	if err := clientcmd.Validate(*config); err != nil {
		return "", cloud.WrapError(cloud.KindCommunication, err, msgUnknownAPIError)
	}
	return string(out), nil
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// base64Block encodes data as a literal block wrapped at base64BlockWidth.
func base64Block(data string) *yaml.Node {
	encoded := base64.StdEncoding.EncodeToString([]byte(data))
	var lines []string
	for len(encoded) > base64BlockWidth {
		lines = append(lines, encoded[:base64BlockWidth])
		encoded = encoded[base64BlockWidth:]
	}
	lines = append(lines, encoded)
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.LiteralStyle, Value: strings.Join(lines, "\n")}
}

// mapping builds a mapping node from alternating string keys and value nodes.
func mapping(pairs ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		n.Content = append(n.Content, str(pairs[i].(string)), pairs[i+1].(*yaml.Node))
	}
	return n
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}
