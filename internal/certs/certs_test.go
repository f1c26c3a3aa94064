package certs

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	block, _ := pem.Decode(data)
	require.NotNil(t, block, "expected PEM data in %s", path)
	require.Equal(t, "CERTIFICATE", block.Type)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()

	res, err := Generate(dir, "raidhelper.localhost")
	require.NoError(t, err)
	assert.True(t, res.Generated)

	ca := loadCert(t, res.CA.CertPath)
	assert.True(t, ca.IsCA)
	assert.Contains(t, ca.Subject.CommonName, "raidhelper.localhost")

	leaf := loadCert(t, res.Leaf.CertPath)
	assert.False(t, leaf.IsCA)
	assert.Contains(t, leaf.DNSNames, "raidhelper.localhost")
	assert.Contains(t, leaf.DNSNames, "*.raidhelper.localhost")
	assert.Contains(t, leaf.DNSNames, "localhost")

	// Leaf chains to the CA.
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err = leaf.Verify(x509.VerifyOptions{DNSName: "raidhelper.localhost", Roots: roots})
	require.NoError(t, err)
	_, err = leaf.Verify(x509.VerifyOptions{DNSName: "argocd.raidhelper.localhost", Roots: roots})
	require.NoError(t, err)
}

func TestGenerateKeyPermissions(t *testing.T) {
	dir := t.TempDir()
	res, err := Generate(dir, "dev.localhost")
	require.NoError(t, err)

	for _, keyPath := range []string{res.CA.KeyPath, res.Leaf.KeyPath} {
		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestGenerateShortCircuitsWhenFilesExist(t *testing.T) {
	dir := t.TempDir()

	first, err := Generate(dir, "dev.localhost")
	require.NoError(t, err)
	require.True(t, first.Generated)

	before, err := os.ReadFile(first.Leaf.CertPath)
	require.NoError(t, err)

	second, err := Generate(dir, "dev.localhost")
	require.NoError(t, err)
	assert.False(t, second.Generated)

	after, err := os.ReadFile(second.Leaf.CertPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing certs must not be rewritten")
}

func TestGenerateRegeneratesWhenFileMissing(t *testing.T) {
	dir := t.TempDir()

	first, err := Generate(dir, "dev.localhost")
	require.NoError(t, err)
	require.NoError(t, os.Remove(first.Leaf.KeyPath))

	second, err := Generate(dir, "dev.localhost")
	require.NoError(t, err)
	assert.True(t, second.Generated)

	_, err = os.Stat(second.Leaf.KeyPath)
	require.NoError(t, err)
}
