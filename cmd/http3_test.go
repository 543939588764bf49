package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramnodes/ramnodes/pkg/api"
)

func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: priv, Leaf: leaf}},
	}, pool
}

func TestHTTP3Server(t *testing.T) {
	config, err := parseServerConfig([]byte(`{}`))
	require.NoError(t, err)
	handler, _, err := newServerHandler(config, &serverObserver{})
	require.NoError(t, err)
	tlsConfig, pool := selfSignedTLS(t)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	h3 := newHTTP3Server("", handler, tlsConfig)
	go func() { _ = h3.Serve(conn) }()
	t.Cleanup(func() { _ = h3.Close() })

	rt := &http3.RoundTripper{TLSClientConfig: &tls.Config{RootCAs: pool}}
	t.Cleanup(func() { _ = rt.Close() })
	client := &http.Client{Transport: rt, Timeout: 10 * time.Second}
	resp, err := client.Get("https://" + conn.LocalAddr().String() + api.NodesPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, resp.ProtoMajor)

	rec := httptest.NewRecorder()
	altSvc(h3, handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, api.NodesPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Alt-Svc"), "h3=")
}

func TestQUICListenNeedsTLS(t *testing.T) {
	_, err := parseServerConfig([]byte(`{"quic_listen": ":8189"}`))
	var ce configError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "quic_listen", ce.Field)

	c, err := parseServerConfig([]byte(`{"quic_listen": ":8189", "cert": "c.pem", "key": "k.pem"}`))
	require.NoError(t, err)
	assert.Equal(t, ":8189", c.QUICListen)
}
