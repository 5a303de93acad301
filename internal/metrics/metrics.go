// Package metrics exposes the Prometheus registry for the CCG server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	attemptsTotal *prometheus.CounterVec
	attemptMs     *prometheus.HistogramVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccg_requests_total",
			Help: "Total number of generation requests processed.",
		}, []string{"mode", "status"}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccg_provider_attempts_total",
			Help: "Provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		attemptMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ccg_provider_attempt_latency_ms",
			Help:    "Provider attempt latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		}, []string{"provider", "outcome"}),
	}
	r.MustRegister(m.requestsTotal, m.attemptsTotal, m.attemptMs)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(mode string, status int) {
	m.requestsTotal.WithLabelValues(mode, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveAttempt(provider string, ok bool, dur time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.attemptsTotal.WithLabelValues(provider, outcome).Inc()
	m.attemptMs.WithLabelValues(provider, outcome).Observe(float64(dur.Milliseconds()))
}
