package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "elitejewels"

// JobMetrics records outcomes of interval jobs such as the market-rate refresh.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewJobMetrics registers job metrics on reg. A nil registerer yields a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of interval jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Interval job executions by outcome.",
		}, []string{"job", "outcome"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// Observe records a single run of job.
func (m *JobMetrics) Observe(job string, took time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = labelOr(job, "unknown")
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.runs.WithLabelValues(job, outcome).Inc()
}

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
