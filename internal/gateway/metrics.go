package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lmgate/internal/admission"
)

var (
	queueCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lmgate",
			Subsystem: "queue",
			Name:      "capacity",
			Help:      "Admission gate capacity",
		},
	)

	queueActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lmgate",
			Subsystem: "queue",
			Name:      "active_requests",
			Help:      "Requests currently dispatched to the backend",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lmgate",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Requests waiting for admission",
		},
	)

	admissionWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lmgate",
			Subsystem: "queue",
			Name:      "admission_wait_seconds",
			Help:      "Time spent waiting for an admission slot",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmgate",
			Subsystem: "dispatch",
			Name:      "completions_total",
			Help:      "Chat completion dispatches by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(queueCapacity, queueActive, queueDepth, admissionWait, completionsTotal)
}

const (
	outcomeCompleted          = "completed"
	outcomeQueueTimeout       = "queue_timeout"
	outcomeQueueFull          = "queue_full"
	outcomeBackendTimeout     = "backend_timeout"
	outcomeBackendUnavailable = "backend_unavailable"
	outcomeBackendError       = "backend_error"
	outcomeCanceled           = "canceled"
	outcomeError              = "error"
)

func countOutcome(outcome string) {
	completionsTotal.WithLabelValues(outcome).Inc()
}

// GateHooks returns admission hooks that keep the queue gauges current.
// Wire them into the gate at construction time.
func GateHooks() admission.Hooks {
	return admission.Hooks{
		OnChange: func(active, queued int) {
			queueActive.Set(float64(active))
			queueDepth.Set(float64(queued))
		},
		OnAdmit: func(wait time.Duration) {
			admissionWait.Observe(wait.Seconds())
		},
	}
}
