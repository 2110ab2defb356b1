package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records the outcome of the background jobs
type Metrics struct {
	expired       prometheus.Counter
	sweepFailures prometheus.Counter
	remindersSent prometheus.Counter
	sweepDuration prometheus.Histogram
}

// NewMetrics registers the task metrics with reg, or the default registry when nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		expired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ispbill",
			Subsystem: "subscription",
			Name:      "expired_total",
			Help:      "Number of subscriptions expired by the sweep",
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ispbill",
			Subsystem: "subscription",
			Name:      "sweep_failures_total",
			Help:      "Number of subscriptions the sweep failed to expire",
		}),
		remindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ispbill",
			Subsystem: "subscription",
			Name:      "reminders_sent_total",
			Help:      "Number of expiry reminders published",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ispbill",
			Subsystem: "subscription",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one expiry sweep",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) recordExpired() {
	if m == nil {
		return
	}
	m.expired.Inc()
}

func (m *Metrics) recordSweepFailure() {
	if m == nil {
		return
	}
	m.sweepFailures.Inc()
}

func (m *Metrics) recordReminder() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

func (m *Metrics) observeSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}
