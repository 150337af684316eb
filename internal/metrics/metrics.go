package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookmarker/internal/lib/ratelimit"
)

const namespace = "bookmarker"

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeLimited = "limited"
)

// Metrics keeps the service counters on its own registry
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	emails      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "GraphQL operations by field and outcome.",
		}, []string{"operation", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Calls rejected by the rate limiter.",
		}, []string{"operation"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Email delivery attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	m.registry.MustRegister(
		m.operations,
		m.rateLimited,
		m.emails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation counts a finished operation. Rate limit rejections are counted twice,
// once as an operation outcome and once per limited operation.
func (m *Metrics) ObserveOperation(operation string, err error) {
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ratelimit.ErrLimited):
		outcome = OutcomeLimited
		m.rateLimited.WithLabelValues(operation).Inc()
	default:
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveEmail(kind string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.emails.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
