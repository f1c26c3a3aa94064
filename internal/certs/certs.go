// Package certs generates the local TLS material for the development
// domain: a throwaway CA and a leaf certificate covering the domain, its
// wildcard, and localhost.
//
// There is no rotation or versioning. If the files already exist they are
// left alone; delete the directory to force regeneration.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Validity of generated certificates. Long enough that a dev environment
// never hits expiry mid-project.
const validity = 2 * 365 * 24 * time.Hour

// Pair is a certificate/key file pair on disk.
type Pair struct {
	CertPath string
	KeyPath  string
}

// Result reports what Generate produced.
type Result struct {
	CA   Pair
	Leaf Pair

	// Generated is false when existing files were found and kept.
	Generated bool
}

// Generate writes a CA and leaf pair for domain into dir. Existing files
// short-circuit generation.
func Generate(dir, domain string) (Result, error) {
	res := Result{
		CA:   Pair{CertPath: filepath.Join(dir, "ca.crt"), KeyPath: filepath.Join(dir, "ca.key")},
		Leaf: Pair{CertPath: filepath.Join(dir, "tls.crt"), KeyPath: filepath.Join(dir, "tls.key")},
	}

	if allExist(res.CA.CertPath, res.CA.KeyPath, res.Leaf.CertPath, res.Leaf.KeyPath) {
		return res, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return res, fmt.Errorf("failed to create cert dir: %w", err)
	}

	caKey, caCert, caDER, err := newCA(domain)
	if err != nil {
		return res, err
	}

	leafKey, leafDER, err := newLeaf(domain, caCert, caKey)
	if err != nil {
		return res, err
	}

	if err := writePair(res.CA, caDER, caKey); err != nil {
		return res, err
	}
	if err := writePair(res.Leaf, leafDER, leafKey); err != nil {
		return res, err
	}

	res.Generated = true
	return res, nil
}

func allExist(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func newCA(domain string) (*ecdsa.PrivateKey, *x509.Certificate, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, nil, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   fmt.Sprintf("devstack local CA (%s)", domain),
			Organization: []string{"devstack"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		MaxPathLenZero:        true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}
	return key, cert, der, nil
}

func newLeaf(domain string, caCert *x509.Certificate, caKey *ecdsa.PrivateKey) (*ecdsa.PrivateKey, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate leaf key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{domain, "*." + domain, "localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create leaf certificate: %w", err)
	}
	return key, der, nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}

func writePair(p Pair, certDER []byte, key *ecdsa.PrivateKey) error {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(p.CertPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.CertPath, err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(p.KeyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.KeyPath, err)
	}
	return nil
}
