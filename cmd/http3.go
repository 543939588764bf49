package main

import (
	"crypto/tls"
	"net/http"

	"github.com/quic-go/quic-go/http3"
)

// newHTTP3Server serves handler over QUIC, sharing the TLS config of the
// TCP listener.
func newHTTP3Server(listen string, handler http.Handler, tlsConfig *tls.Config) *http3.Server {
	return &http3.Server{
		Addr:      listen,
		Handler:   handler,
		TLSConfig: tlsConfig,
	}
}

// altSvc advertises the HTTP/3 listener on every TCP response so browsers
// can switch over.
func altSvc(h3 *http3.Server, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h3.SetQUICHeaders(w.Header())
		next.ServeHTTP(w, r)
	})
}
