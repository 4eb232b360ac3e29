package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification pipeline.
type Metrics struct {
	// Outcomes by wave (alert, closure) and delivery status
	Outcomes *prometheus.CounterVec

	// Wall time of a whole dispatch wave
	DispatchLatency *prometheus.HistogramVec

	// Per-attempt transport latency
	SendLatency prometheus.Histogram

	// Ledger batch appends that failed and were dropped
	LedgerAppendFailures prometheus.Counter

	// Outcome events that could not be published
	PublishFailures prometheus.Counter
}

// New registers notification metrics on reg (the default registry when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_notification_outcomes_total",
			Help: "Notification attempts by wave and delivery status",
		}, []string{"wave", "status"}),

		DispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodlink_notification_dispatch_duration_seconds",
			Help:    "Duration of a dispatch wave including every send attempt",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"wave"}),

		SendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_notification_send_duration_seconds",
			Help:    "Duration of a single transport send",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		LedgerAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notification_ledger_append_failures_total",
			Help: "Ledger batch appends that failed and were not retried",
		}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notification_publish_failures_total",
			Help: "Outcome event batches that could not be published",
		}),
	}
}

func (m *Metrics) IncrementOutcome(wave, status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(wave, status).Inc()
	}
}

func (m *Metrics) ObserveDispatchLatency(wave string, d time.Duration) {
	if m != nil {
		m.DispatchLatency.WithLabelValues(wave).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveSendLatency(d time.Duration) {
	if m != nil {
		m.SendLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementLedgerAppendFailure() {
	if m != nil {
		m.LedgerAppendFailures.Inc()
	}
}

func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}
