// Package metrics exposes Prometheus instrumentation for the HTTP server and
// the sick-leave domain. Every collector lives on a private registry so tests
// can build as many instances as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "krankmeldung"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	sickLeaves      prometheus.Counter
	previews        prometheus.Counter
	signups         prometheus.Counter
	logins          *prometheus.CounterVec
	validationFails *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sickLeaves: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sick_leaves_created_total",
			Help:      "Sick leaves stored.",
		}),
		previews: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_previews_total",
			Help:      "Notification emails composed for preview.",
		}),
		signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Users registered.",
		}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Sign-in attempts by method (password, github) and result (success, failure).",
		}, []string{"method", "result"}),
		validationFails: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected sick-leave drafts by offending field.",
		}, []string{"field"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.duration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) SickLeaveCreated() {
	if m == nil {
		return
	}
	m.sickLeaves.Inc()
}

func (m *Metrics) PreviewComposed() {
	if m == nil {
		return
	}
	m.previews.Inc()
}

func (m *Metrics) UserSignedUp() {
	if m == nil {
		return
	}
	m.signups.Inc()
}

// Login records a sign-in attempt. method is "password" or "github".
func (m *Metrics) Login(method string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.logins.WithLabelValues(method, result).Inc()
}

// ValidationFailed records a rejected draft. An empty field is "unknown".
func (m *Metrics) ValidationFailed(field string) {
	if m == nil {
		return
	}
	if field == "" {
		field = "unknown"
	}
	m.validationFails.WithLabelValues(field).Inc()
}
