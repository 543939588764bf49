package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ramnodes/ramnodes/pkg/keyring"
)

type prometheusMetrics struct {
	reg             *prometheus.Registry
	keysIssued      prometheus.Counter
	keyFailureVec   *prometheus.CounterVec
	keysEvicted     prometheus.Counter
	nodeExecVec     *prometheus.CounterVec
	nodeDurationVec *prometheus.HistogramVec
	activeClients   prometheus.GaugeFunc
}

func newPrometheusMetrics(reg *prometheus.Registry) *prometheusMetrics {
	m := &prometheusMetrics{
		reg: reg,
		keysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ramnodes_keys_issued_total",
		}),
		keyFailureVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramnodes_key_request_failures_total",
		}, []string{"status"}),
		keysEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ramnodes_keys_evicted_total",
		}),
		nodeExecVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramnodes_node_executions_total",
		}, []string{"node", "result"}),
		nodeDurationVec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ramnodes_node_duration_seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"node"}),
	}
	reg.MustRegister(m.keysIssued, m.keyFailureVec, m.keysEvicted, m.nodeExecVec, m.nodeDurationVec)
	return m
}

// watchRegistry exports the number of live session keys.
func (m *prometheusMetrics) watchRegistry(keys *keyring.Registry) {
	m.activeClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ramnodes_active_clients",
	}, func() float64 {
		return float64(keys.Len())
	})
	m.reg.MustRegister(m.activeClients)
}

func (m *prometheusMetrics) keyIssued() {
	m.keysIssued.Inc()
}

func (m *prometheusMetrics) keyRequestFailed(status int) {
	m.keyFailureVec.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *prometheusMetrics) keyEvicted() {
	m.keysEvicted.Inc()
}

func (m *prometheusMetrics) nodeExecuted(name string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.nodeExecVec.WithLabelValues(name, result).Inc()
	m.nodeDurationVec.WithLabelValues(name).Observe(d.Seconds())
}

func servePrometheus(listen string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	err := http.ListenAndServe(listen, mux)
	logrus.WithField("error", err).Fatal("Prometheus HTTP server error")
}
