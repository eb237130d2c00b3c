package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds Prometheus metrics for the vote processing pipeline.
type VoteMetrics struct {
	VotesProcessed  *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsSwept   prometheus.Counter
}

// NewVoteMetrics creates and registers vote pipeline metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_processed_total",
			Help:      "Total number of vote events processed, by result.",
		}, []string{"result"}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of voting sessions opened.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live voting sessions.",
		}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of voting sessions evicted by the expiry sweeper.",
		}),
	}

	reg.MustRegister(m.VotesProcessed, m.SessionsCreated, m.SessionsActive, m.SessionsSwept)
	return m
}

// Vote processing results used as the "result" label value.
const (
	VoteResultApplied   = "applied"
	VoteResultDuplicate = "duplicate"
	VoteResultNoSession = "no_session"
	VoteResultRetracted = "retracted"
)
