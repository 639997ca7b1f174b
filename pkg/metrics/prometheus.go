package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	xhttp "EconDash/pkg/http"
)

// Recorder implements domain.repository.Metrics and the HTTP client request
// observer using Prometheus.
type Recorder struct {
	operations  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	requests    *prometheus.CounterVec
	triggers    prometheus.Counter
}

// New creates a recorder registered on reg. A nil reg uses the default
// registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "econdash_store_operations_total",
				Help: "Store operations by outcome",
			},
			[]string{"store", "op", "result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "econdash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "econdash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "econdash_http_client_requests_total",
				Help: "Outbound requests to the data service",
			},
			[]string{"method", "status"},
		),
		triggers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "econdash_alert_triggers_total",
				Help: "Alert triggers reported by the service",
			},
		),
	}
	r.operations = register(reg, r.operations)
	r.errorsTotal = register(reg, r.errorsTotal)
	r.latency = register(reg, r.latency)
	r.requests = register(reg, r.requests)
	r.triggers = register(reg, r.triggers)
	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// RecordOperation counts a store operation outcome.
func (r *Recorder) RecordOperation(store, op, result string) {
	r.operations.WithLabelValues(store, op, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordTriggers adds n reported alert triggers.
func (r *Recorder) RecordTriggers(n int) {
	if n > 0 {
		r.triggers.Add(float64(n))
	}
}

// ObserveRequest implements the HTTP client request observer.
func (r *Recorder) ObserveRequest(method, path string, status int, dur time.Duration) {
	r.requests.WithLabelValues(method, xhttp.StatusLabel(status)).Inc()
	r.latency.WithLabelValues("http." + method).Observe(dur.Seconds())
}
