package metrics

import "github.com/prometheus/client_golang/prometheus"

// PinMetrics holds Prometheus metrics for the pin action path.
type PinMetrics struct {
	Attempts           *prometheus.CounterVec
	Duration           prometheus.Histogram
	BreakerState       prometheus.Gauge
	BreakerTransitions prometheus.Counter
}

// NewPinMetrics creates and registers pin action metrics on the given registry.
func NewPinMetrics(reg prometheus.Registerer) *PinMetrics {
	m := &PinMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pin",
			Name:      "attempts_total",
			Help:      "Total number of pin attempts, by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pin",
			Name:      "duration_seconds",
			Help:      "Duration of pin API calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pin",
			Name:      "breaker_state",
			Help:      "Chat API circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pin",
			Name:      "breaker_transitions_total",
			Help:      "Total number of chat API circuit breaker state changes.",
		}),
	}

	reg.MustRegister(m.Attempts, m.Duration, m.BreakerState, m.BreakerTransitions)
	return m
}

// Pin attempt results used as the "result" label value.
const (
	PinResultSuccess  = "success"
	PinResultFailure  = "failure"
	PinResultDeferred = "deferred"
)
