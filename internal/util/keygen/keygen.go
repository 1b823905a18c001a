// Package keygen generates key material for SSH access and Kubernetes
// client certificates.
//
// Private keys are emitted as PEM-encoded PKCS#1 ("RSA PRIVATE KEY"), public
// SSH keys in OpenSSH authorized_keys format and signing requests as PEM
// "CERTIFICATE REQUEST" blocks.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// MinClientKeyBits is the smallest modulus accepted for client certificate keys.
const MinClientKeyBits = 3072

// KeyPair holds an RSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the RSA private key in PEM-encoded PKCS#1 format.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	privateKey, err := newRSAKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}

	publicRsaKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: encodePrivateKey(privateKey),
		PublicKey:  ssh.MarshalAuthorizedKey(publicRsaKey),
	}, nil
}

// ClientCSR is a certificate signing request together with its private key.
type ClientCSR struct {
	// CSR is the PEM-encoded certificate signing request.
	CSR []byte
	// PrivateKey is the RSA private key in PEM-encoded PKCS#1 format.
	PrivateKey []byte
}

// Subject names the identity requested by a client certificate.
type Subject struct {
	CommonName   string
	Organization string
}

// GenerateClientCSR creates an RSA key of at least MinClientKeyBits and a
// SHA-256 signed CSR for the subject. A nil random reader uses crypto/rand.
func GenerateClientCSR(random io.Reader, bits int, subject Subject) (*ClientCSR, error) {
	if bits < MinClientKeyBits {
		return nil, fmt.Errorf("client key size %d is below the minimum of %d bits", bits, MinClientKeyBits)
	}
	if random == nil {
		random = rand.Reader
	}
	privateKey, err := newRSAKey(random, bits)
	if err != nil {
		return nil, err
	}

	name := pkix.Name{CommonName: subject.CommonName}
	if subject.Organization != "" {
		name.Organization = []string{subject.Organization}
	}
	der, err := x509.CreateCertificateRequest(random, &x509.CertificateRequest{
		Subject:            name,
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}

	return &ClientCSR{
		CSR:        pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}),
		PrivateKey: encodePrivateKey(privateKey),
	}, nil
}

func newRSAKey(random io.Reader, bits int) (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}
	return privateKey, nil
}

func encodePrivateKey(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}
