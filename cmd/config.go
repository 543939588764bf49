package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DefaultListen = "127.0.0.1:8189"
)

type serverConfig struct {
	Listen string `json:"listen"`
	ACME   struct {
		Domains                 []string `json:"domains"`
		Email                   string   `json:"email"`
		DisableHTTPChallenge    bool     `json:"disable_http"`
		DisableTLSALPNChallenge bool     `json:"disable_tlsalpn"`
		AltHTTPPort             int      `json:"alt_http_port"`
		AltTLSALPNPort          int      `json:"alt_tlsalpn_port"`
	} `json:"acme"`
	CertFile string `json:"cert"`
	KeyFile  string `json:"key"`
	// Optional below
	CORS struct {
		AllowedOrigins []string `json:"allowed_origins"`
	} `json:"cors"`
	Registry struct {
		MaxClients int    `json:"max_clients"`
		TTL        string `json:"ttl"`
	} `json:"registry"`
	Preview struct {
		Format  string `json:"format"`
		Quality int    `json:"quality"`
	} `json:"preview"`
	QUICListen       string `json:"quic_listen"`
	PrometheusListen string `json:"prometheus_listen"`
}

func (c *serverConfig) Check() error {
	if len(c.ACME.Domains) > 0 && (len(c.CertFile) > 0 || len(c.KeyFile) > 0) {
		return configError{Field: "acme", Err: errors.New("cannot use both ACME and cert/key files, they are mutually exclusive")}
	}
	if (len(c.CertFile) == 0) != (len(c.KeyFile) == 0) {
		return configError{Field: "cert", Err: errors.New("cert and key must be provided together")}
	}
	if len(c.QUICListen) > 0 && !c.TLS() {
		return configError{Field: "quic_listen", Err: errors.New("HTTP/3 needs ACME or cert/key files")}
	}
	if c.Registry.MaxClients < 0 {
		return configError{Field: "registry.max_clients", Err: errors.New("must not be negative")}
	}
	if _, err := c.TTL(); err != nil {
		return configError{Field: "registry.ttl", Err: err}
	}
	switch strings.ToLower(c.Preview.Format) {
	case "", "png", "jpeg", "jpg":
	default:
		return configError{Field: "preview.format", Err: fmt.Errorf("unsupported format %q", c.Preview.Format)}
	}
	if c.Preview.Quality < 0 || c.Preview.Quality > 100 {
		return configError{Field: "preview.quality", Err: errors.New("must be between 1 and 100")}
	}
	return nil
}

func (c *serverConfig) Fill() {
	if len(c.Listen) == 0 {
		c.Listen = DefaultListen
	}
}

// TTL returns the registry entry lifetime, zero when entries never expire.
func (c *serverConfig) TTL() (time.Duration, error) {
	if len(c.Registry.TTL) == 0 {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Registry.TTL)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

// TLS reports whether the listener serves HTTPS.
func (c *serverConfig) TLS() bool {
	return len(c.ACME.Domains) > 0 || len(c.CertFile) > 0
}

func (c *serverConfig) String() string {
	return fmt.Sprintf("%+v", *c)
}

func parseServerConfig(cb []byte) (*serverConfig, error) {
	var c serverConfig
	err := json5.Unmarshal(cb, &c)
	if err != nil {
		return nil, err
	}
	c.Fill()
	return &c, c.Check()
}

func loadServerConfig(path string) (*serverConfig, error) {
	cb, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseServerConfig(cb)
}
