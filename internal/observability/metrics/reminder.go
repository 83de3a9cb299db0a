package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReminderOutcomeSent    = "sent"
	ReminderOutcomeIdle    = "idle"
	ReminderOutcomeFailed  = "failed"
	ReminderOutcomeSkipped = "skipped"
)

// ReminderMetrics captures the health of the reminder run loop.
type ReminderMetrics struct {
	runs       *prometheus.CounterVec
	runLoopLag prometheus.Observer
	nextDue    prometheus.Gauge
}

var (
	reminderMetricsOnce sync.Once
	reminderMetrics     *ReminderMetrics
)

// NewReminderMetrics returns the singleton reminder metrics registry.
func NewReminderMetrics(cfg Config) *ReminderMetrics {
	reminderMetricsOnce.Do(func() {
		reminderMetrics = newReminderMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reminderMetrics
}

func newReminderMetrics(registerer prometheus.Registerer, cfg Config) *ReminderMetrics {
	labels := constLabels(cfg)
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "meterbook_reminder_runs_total",
		Help:        "Reminder loop iterations by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "meterbook_reminder_runloop_lag_seconds",
		Help:        "Reminder loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300},
		ConstLabels: labels,
	})
	nextDue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "meterbook_reminder_next_due_timestamp_seconds",
		Help:        "Unix time of the next reading reminder.",
		ConstLabels: labels,
	})
	registerer.MustRegister(runs, runLoopLag, nextDue)

	return &ReminderMetrics{runs: runs, runLoopLag: runLoopLag, nextDue: nextDue}
}

func (m *ReminderMetrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *ReminderMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil || lag <= 0 {
		return
	}
	m.runLoopLag.Observe(lag.Seconds())
}

func (m *ReminderMetrics) SetNextDue(t time.Time) {
	if m == nil {
		return
	}
	m.nextDue.Set(float64(t.Unix()))
}
