package engine

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Tick outcomes recorded in remindbot_ticks_total.
const (
	outcomeOK      = "ok"
	outcomeEmpty   = "empty"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	ticks        *prometheus.CounterVec
	due          prometheus.Gauge
	deliveries   *prometheus.CounterVec
	tickDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remindbot_ticks_total",
			Help: "Reminder ticks by outcome.",
		}, []string{"outcome"}),
		due: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remindbot_due_reminders",
			Help: "Reminders found due on the last completed query.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remindbot_deliveries_total",
			Help: "Notification sends by status.",
		}, []string{"status"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remindbot_tick_duration_seconds",
			Help:    "Wall time of a reminder tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.due, m.deliveries, m.tickDuration)
	}
	return m
}

func (m *Metrics) observe(res TickResult, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.ticks.WithLabelValues(res.outcome()).Inc()
	if res.Skipped {
		return
	}
	m.tickDuration.Observe(elapsed.Seconds())

	var queryErr *StoreQueryError
	if !errors.As(res.Err, &queryErr) {
		m.due.Set(float64(res.Due))
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(res.Report.Delivered))
	m.deliveries.WithLabelValues("failed").Add(float64(len(res.Report.Failures)))
	m.deliveries.WithLabelValues("skipped").Add(float64(res.Report.Skipped))
}
