package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics records payout sweep outcomes.
type SweepMetrics struct {
	duration  *prometheus.HistogramVec
	completed prometheus.Counter
	failed    prometheus.Counter
	skipped   prometheus.Counter
}

// NewSweepMetrics registers the payout sweep metrics on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_sweep_duration_seconds",
		Help:    "Duration of payout sweep runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_completed_total",
		Help: "Payouts confirmed by the transfer gateway.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_failed_total",
		Help: "Payouts rejected by the transfer gateway.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_skipped_total",
		Help: "Payouts already terminal when the sweep reached them.",
	})
	reg.MustRegister(duration, completed, failed, skipped)
	return &SweepMetrics{
		duration:  duration,
		completed: completed,
		failed:    failed,
		skipped:   skipped,
	}
}

// ObserveDuration records the duration for the named sweep job.
func (s *SweepMetrics) ObserveDuration(job string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncCompleted counts a payout confirmed by the gateway.
func (s *SweepMetrics) IncCompleted() {
	if s == nil || s.completed == nil {
		return
	}
	s.completed.Inc()
}

// IncFailed counts a payout the gateway rejected.
func (s *SweepMetrics) IncFailed() {
	if s == nil || s.failed == nil {
		return
	}
	s.failed.Inc()
}

// IncSkipped counts a payout skipped because it was already terminal.
func (s *SweepMetrics) IncSkipped() {
	if s == nil || s.skipped == nil {
		return
	}
	s.skipped.Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
