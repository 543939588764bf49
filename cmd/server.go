package main

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ramnodes/ramnodes/pkg/adapters"
	"github.com/ramnodes/ramnodes/pkg/api"
	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/keyexchange"
	"github.com/ramnodes/ramnodes/pkg/keyring"
	"github.com/ramnodes/ramnodes/pkg/node"
)

func server(config *serverConfig) {
	logrus.WithField("config", config.String()).Info("Server configuration loaded")
	// Prometheus
	var metrics *prometheusMetrics
	var promReg *prometheus.Registry
	if len(config.PrometheusListen) > 0 {
		promReg = prometheus.NewRegistry()
		metrics = newPrometheusMetrics(promReg)
		go servePrometheus(config.PrometheusListen, promReg)
	}
	handler, keys, err := newServerHandler(config, &serverObserver{metrics: metrics})
	if err != nil {
		logrus.WithField("error", err).Fatal("Failed to initialize server")
	}
	if metrics != nil {
		metrics.watchRegistry(keys)
	}
	// TLS
	var tlsConfig *tls.Config
	if len(config.ACME.Domains) > 0 {
		tc, err := acmeTLSConfig(config)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error": err,
			}).Fatal("Failed to get a certificate with ACME")
		}
		tlsConfig = tc
	} else if len(config.CertFile) > 0 {
		kpl, err := newKeypairLoader(config.CertFile, config.KeyFile)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error": err,
				"cert":  config.CertFile,
				"key":   config.KeyFile,
			}).Fatal("Failed to load the certificate")
		}
		tlsConfig = &tls.Config{
			GetCertificate: kpl.GetCertificateFunc(),
			MinVersion:     tls.VersionTLS12,
		}
	}
	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if len(config.QUICListen) > 0 {
		h3 := newHTTP3Server(config.QUICListen, handler, tlsConfig)
		srv.Handler = altSvc(h3, handler)
		go func() {
			logrus.WithField("addr", config.QUICListen).Info("HTTP/3 server up and running")
			err := h3.ListenAndServe()
			logrus.WithField("error", err).Fatal("HTTP/3 server error")
		}()
	}
	logrus.WithFields(logrus.Fields{
		"addr": config.Listen,
		"url":  keyexchange.Path,
	}).Info("Server up and running")
	if tlsConfig != nil {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	logrus.WithField("error", err).Fatal("Server shutdown")
}

// newServerHandler builds the session key registry and the HTTP surface
// around it.
func newServerHandler(config *serverConfig, obs *serverObserver) (http.Handler, *keyring.Registry, error) {
	ttl, err := config.TTL()
	if err != nil {
		return nil, nil, configError{Field: "registry.ttl", Err: err}
	}
	keys, err := keyring.New(keyring.Options{
		MaxClients: config.Registry.MaxClients,
		TTL:        ttl,
		OnEvict:    obs.KeyEvicted,
	})
	if err != nil {
		return nil, nil, err
	}
	c, err := codec.New(config.Preview.Format, config.Preview.Quality)
	if err != nil {
		return nil, nil, configError{Field: "preview", Err: err}
	}
	nodes := node.NewRegistry(obs)
	if err := nodes.Register(adapters.Nodes(keys, c)...); err != nil {
		return nil, nil, err
	}
	return api.NewRouter(api.Config{
		KeyExchange:    keyexchange.NewHandler(keys, obs),
		Nodes:          nodes,
		Codec:          c,
		AllowedOrigins: config.CORS.AllowedOrigins,
		PanicFunc:      obs.Panic,
	}), keys, nil
}

// serverObserver logs request outcomes and feeds the optional metrics.
// Key material never reaches it.
type serverObserver struct {
	metrics *prometheusMetrics
}

func (o *serverObserver) KeyIssued(remoteAddr string) {
	logrus.WithField("src", defaultIPMasker.Mask(remoteAddr)).Debug("Session key issued")
	if o.metrics != nil {
		o.metrics.keyIssued()
	}
}

func (o *serverObserver) KeyRequestFailed(remoteAddr string, status int, err error) {
	logrus.WithFields(logrus.Fields{
		"src":    defaultIPMasker.Mask(remoteAddr),
		"status": status,
		"error":  err,
	}).Info("Key request rejected")
	if o.metrics != nil {
		o.metrics.keyRequestFailed(status)
	}
}

// KeyEvicted runs with the registry lock held.
func (o *serverObserver) KeyEvicted(clientID string) {
	logrus.WithField("client", clientID).Debug("Session key evicted")
	if o.metrics != nil {
		o.metrics.keyEvicted()
	}
}

func (o *serverObserver) NodeExecuted(name string, d time.Duration, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"node":     name,
		"duration": d,
	})
	if err != nil {
		entry.WithField("error", err).Info("Node execution failed")
	} else {
		entry.Debug("Node executed")
	}
	if o.metrics != nil {
		o.metrics.nodeExecuted(name, d, err)
	}
}

func (o *serverObserver) Panic(r *http.Request, v interface{}) {
	logrus.WithFields(logrus.Fields{
		"src":   defaultIPMasker.Mask(r.RemoteAddr),
		"url":   r.URL.Path,
		"error": v,
	}).Error("Handler panic")
}
