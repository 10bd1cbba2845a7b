package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	upstreamDuration *prometheus.HistogramVec
	fanoutBatchSize  *prometheus.HistogramVec
	fanoutFailures   *prometheus.CounterVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "context7_upstream_request_duration_seconds",
				Help:    "Duration of upstream catalog requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "status"},
		),
		fanoutBatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "context7_fanout_batch_size",
				Help:    "Number of items per fan-out batch",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"operation"},
		),
		fanoutFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "context7_fanout_failures_total",
				Help: "Total number of failed fan-out batches",
			},
			[]string{"operation", "reason"},
		),
	}
}

// ObserveUpstream records one outbound catalog call. A zero status means
// the request never produced a response.
func (p *PrometheusMetrics) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if p == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.upstreamDuration.WithLabelValues(endpoint, label).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveBatch(operation string, size int) {
	if p == nil {
		return
	}
	p.fanoutBatchSize.WithLabelValues(operation).Observe(float64(size))
}

func (p *PrometheusMetrics) CountBatchFailure(operation, reason string) {
	if p == nil {
		return
	}
	p.fanoutFailures.WithLabelValues(operation, reason).Inc()
}
