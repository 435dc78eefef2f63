package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ethnode"

// Metrics are the prometheus collectors updated by a Supervisor.
type Metrics struct {
	Attempts        *prometheus.CounterVec
	Fallbacks       prometheus.Counter
	Results         *prometheus.CounterVec
	ConnectDuration prometheus.Histogram
}

// NewMetrics creates the supervisor collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by provider mode.",
		}, []string{"mode"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "local_fallbacks_total",
			Help:      "Switches from remote endpoints to a local node.",
		}),
		Results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "start_results_total",
			Help:      "Start outcomes by result.",
		}, []string{"result"}),
		ConnectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "connect_duration_seconds",
			Help:      "Time from Start until the endpoint was verified.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
	}
}
