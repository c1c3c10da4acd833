package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the server's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadkey_conversions_total",
				Help: "Quad key conversions by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us to ~1.6s
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.conversions, m.duration)
	return m
}

func (m *Metrics) observeConversion(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.conversions.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) observeHTTP(method, route string, status int, seconds float64) {
	m.duration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
