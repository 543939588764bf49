package main

import (
	"context"
	"crypto/tls"

	"github.com/caddyserver/certmagic"
)

func acmeTLSConfig(config *serverConfig) (*tls.Config, error) {
	acme := config.ACME
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = acme.Email
	certmagic.DefaultACME.DisableHTTPChallenge = acme.DisableHTTPChallenge
	certmagic.DefaultACME.DisableTLSALPNChallenge = acme.DisableTLSALPNChallenge
	certmagic.DefaultACME.AltHTTPPort = acme.AltHTTPPort
	certmagic.DefaultACME.AltTLSALPNPort = acme.AltTLSALPNPort
	cfg := certmagic.NewDefault()
	tc := cfg.TLSConfig()
	// certmagic only advertises the ACME challenge protocol
	tc.NextProtos = append([]string{"h2", "http/1.1"}, tc.NextProtos...)
	return tc, cfg.ManageSync(context.Background(), acme.Domains)
}
