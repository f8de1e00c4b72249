package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"urule-dev-proxy/routing"
)

type ProxyMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewProxyMetrics registers proxy collectors in reg.
func NewProxyMetrics(reg prometheus.Registerer) *ProxyMetrics {
	m := &ProxyMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "urule_dev_proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests by target, method and status code",
			},
			[]string{"target", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "urule_dev_proxy",
				Name:      "request_duration_seconds",
				Help:      "Time spent forwarding a request to the upstream",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *ProxyMetrics) Observe(target routing.Target, method string, statusCode int, elapsed time.Duration) {
	m.requests.WithLabelValues(string(target), method, strconv.Itoa(statusCode)).Inc()
	m.duration.WithLabelValues(string(target)).Observe(elapsed.Seconds())
}
