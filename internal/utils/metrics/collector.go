// internal/utils/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pump_migrator"

// Collector держит метрики миграций в собственном реестре,
// чтобы несколько экземпляров (и тесты) не конфликтовали в глобальном.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	retries         *prometheus.CounterVec
	rpcLatency      *prometheus.HistogramVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Migration attempts by final state",
			},
			[]string{"state", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Migration attempt duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"outcome"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Dispatcher submissions by kind and status",
			},
			[]string{"kind", "status"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_retries_total",
				Help:      "Dispatcher resubmissions after confirmation timeout",
			},
			[]string{"kind"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
	}

	c.registry.MustRegister(c.attempts, c.attemptDuration, c.submissions, c.retries, c.rpcLatency)
	return c
}

// Registry: реестр для экспорта (promhttp или тесты).
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.attempts.Reset()
	c.attemptDuration.Reset()
	c.submissions.Reset()
	c.retries.Reset()
	c.rpcLatency.Reset()
}

// RecordAttempt записывает итог попытки миграции: состояние, в котором она
// завершилась, и исход (confirmed, failed, simulated, indeterminate).
func (c *Collector) RecordAttempt(state, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(state, outcome).Inc()
	c.attemptDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordSubmission записывает итог отправки плана.
func (c *Collector) RecordSubmission(kind string, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	c.submissions.WithLabelValues(kind, status).Inc()
}

// RecordRetry записывает повторную отправку.
func (c *Collector) RecordRetry(kind string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(kind).Inc()
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}
