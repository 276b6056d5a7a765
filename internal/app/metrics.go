package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame type labels
const (
	frameTypePosition = "position"
	frameTypeVelocity = "velocity"
)

// Metrics holds the generator's Prometheus collectors on a private registry
type Metrics struct {
	registry   *prometheus.Registry
	framesSent *prometheus.CounterVec
	bytesSent  *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	aircraft   *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "go1090tx_frames_sent_total",
				Help: "Frames written to the receiver.",
			},
			[]string{"center", "type"},
		),
		bytesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "go1090tx_bytes_sent_total",
				Help: "Bytes written to the receiver.",
			},
			[]string{"center"},
		),
		reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "go1090tx_reconnects_total",
				Help: "Connections re-established after a failure.",
			},
			[]string{"center"},
		),
		aircraft: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "go1090tx_aircraft",
				Help: "Simulated aircraft per center.",
			},
			[]string{"center"},
		),
	}

	m.registry.MustRegister(m.framesSent, m.bytesSent, m.reconnects, m.aircraft)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) frameSent(center, frameType string, n int) {
	m.framesSent.With(prometheus.Labels{"center": center, "type": frameType}).Inc()
	m.bytesSent.With(prometheus.Labels{"center": center}).Add(float64(n))
}

func (m *Metrics) reconnected(center string) {
	m.reconnects.With(prometheus.Labels{"center": center}).Inc()
}

func (m *Metrics) setAircraft(center string, n int) {
	m.aircraft.With(prometheus.Labels{"center": center}).Set(float64(n))
}
