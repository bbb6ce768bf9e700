package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors shared by the poll loops, the
// collector and the panel renderer. A nil *Metrics is a valid no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	polls        *prometheus.CounterVec
	skippedTicks *prometheus.CounterVec
	pollLatency  *prometheus.HistogramVec
	renders      *prometheus.CounterVec
	nodesOnline  prometheus.Gauge
}

// New creates and registers all collectors on reg. When reg also implements
// prometheus.Gatherer it is used to serve /metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eclipse_polls_total",
			Help: "Completed poll requests by loop and outcome.",
		}, []string{"loop", "outcome"}),
		skippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eclipse_poll_ticks_skipped_total",
			Help: "Ticks dropped because the loop still had a request in flight.",
		}, []string{"loop"}),
		pollLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eclipse_poll_duration_seconds",
			Help:    "Wall time of a single poll request, including decode.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"loop"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eclipse_panel_renders_total",
			Help: "Panel graph requests by result (trace, no_data, cached).",
		}, []string{"result"}),
		nodesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eclipse_nodes_reachable",
			Help: "Nodes whose latest poll produced a sample.",
		}),
	}

	reg.MustRegister(m.polls, m.skippedTicks, m.pollLatency, m.renders, m.nodesOnline)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// ObservePoll records one finished poll.
func (m *Metrics) ObservePoll(loop, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(loop, outcome).Inc()
	m.pollLatency.WithLabelValues(loop).Observe(d.Seconds())
}

// TickSkipped records a tick dropped while a request was in flight.
func (m *Metrics) TickSkipped(loop string) {
	if m == nil {
		return
	}
	m.skippedTicks.WithLabelValues(loop).Inc()
}

// RecordRender records one panel graph request.
func (m *Metrics) RecordRender(result string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(result).Inc()
}

// SetNodesReachable sets the reachable-node gauge.
func (m *Metrics) SetNodesReachable(n int) {
	if m == nil {
		return
	}
	m.nodesOnline.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
