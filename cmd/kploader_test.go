package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestCert(t *testing.T, priv *ecdsa.PrivateKey, serial int64, certPath string) []byte {
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return der
}

func TestKeypairLoader(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	first := writeTestCert(t, priv, 1, certPath)

	kpl, err := newKeypairLoader(certPath, keyPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kpl.watcher.Close() })
	get := kpl.GetCertificateFunc()
	cert, err := get(nil)
	require.NoError(t, err)
	require.Equal(t, first, cert.Certificate[0])

	second := writeTestCert(t, priv, 2, certPath)
	require.Eventually(t, func() bool {
		cert, err := get(nil)
		return err == nil && bytes.Equal(second, cert.Certificate[0])
	}, 5*time.Second, 20*time.Millisecond)
}

func TestKeypairLoaderMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := newKeypairLoader(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"))
	require.Error(t, err)
}
