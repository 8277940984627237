package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront groups the business counters exported on /metrics.
type Storefront struct {
	orders      *prometheus.CounterVec
	handoffs    *prometheus.CounterVec
	otpSent     *prometheus.CounterVec
	authResults *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// NewStorefront registers storefront metrics on reg. A nil registerer yields a no-op recorder.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	s := &Storefront{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_created_total",
			Help: "Orders created, by entry source (shopper or admin).",
		}, []string{"source"}),
		handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messaging_handoffs_total",
			Help: "Messaging deep links generated, by purpose.",
		}, []string{"purpose"}),
		otpSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_sent_total",
			Help: "One-time codes dispatched, by purpose.",
		}, []string{"purpose"}),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auth_attempts_total",
			Help: "Authentication attempts, by method and result.",
		}, []string{"method", "result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(s.orders, s.handoffs, s.otpSent, s.authResults, s.httpLatency)
	return s
}

func (s *Storefront) OrderCreated(source string) {
	if s == nil || s.orders == nil {
		return
	}
	s.orders.WithLabelValues(labelOr(source, "unknown")).Inc()
}

func (s *Storefront) Handoff(purpose string) {
	if s == nil || s.handoffs == nil {
		return
	}
	s.handoffs.WithLabelValues(labelOr(purpose, "unknown")).Inc()
}

func (s *Storefront) OTPSent(purpose string) {
	if s == nil || s.otpSent == nil {
		return
	}
	s.otpSent.WithLabelValues(labelOr(purpose, "unknown")).Inc()
}

func (s *Storefront) AuthAttempt(method string, ok bool) {
	if s == nil || s.authResults == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	s.authResults.WithLabelValues(labelOr(method, "unknown"), result).Inc()
}

func (s *Storefront) ObserveHTTP(method, route string, status int, took time.Duration) {
	if s == nil || s.httpLatency == nil {
		return
	}
	s.httpLatency.WithLabelValues(method, labelOr(route, "unmatched"), strconv.Itoa(status)).Observe(took.Seconds())
}
