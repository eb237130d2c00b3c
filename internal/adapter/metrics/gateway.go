package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics holds Prometheus metrics for the chat gateway connection.
type GatewayMetrics struct {
	EventsReceived *prometheus.CounterVec
	EventsDropped  prometheus.Counter
	Reconnects     prometheus.Counter
	Connected      prometheus.Gauge
}

// NewGatewayMetrics creates and registers gateway metrics on the given registry.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "events_received_total",
			Help:      "Total number of gateway events received, by type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped because the dispatch queue was full.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Total number of gateway reconnect attempts.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connected",
			Help:      "Whether the gateway connection is currently established (0 or 1).",
		}),
	}

	reg.MustRegister(m.EventsReceived, m.EventsDropped, m.Reconnects, m.Connected)
	return m
}
