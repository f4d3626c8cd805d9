package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks per-operation outcomes of the orchestration core.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "advisor",
		Name:        "requests_total",
		Help:        "Settled orchestrator operations by operation and outcome.",
		ConstLabels: prometheus.Labels{"service": serviceName},
	}, []string{"op", "outcome"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "advisor",
		Name:        "requests_in_flight",
		Help:        "Orchestrator operations currently between issue and settlement.",
		ConstLabels: prometheus.Labels{"service": serviceName},
	})

	registry.MustRegister(requests, inFlight)

	return &Metrics{
		registry: registry,
		requests: requests,
		inFlight: inFlight,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Begin marks an operation as issued. Safe on a nil receiver.
func (m *Metrics) Begin() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Settle records a terminal transition for op. Safe on a nil receiver.
func (m *Metrics) Settle(op string, err error) {
	if m == nil {
		return
	}
	m.inFlight.Dec()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(op, outcome).Inc()
}
