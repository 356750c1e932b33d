package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// MetricsConfig configures the Prometheus metrics decorator.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "errpage").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for respond duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics decorator.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "errpage",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for one decorator.
type metrics struct {
	responsesTotal  *prometheus.CounterVec
	respondDuration *prometheus.HistogramVec
	fallbacksTotal  prometheus.Counter
}

// newMetrics registers the metrics with config.Registry.
func newMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		responsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "responses_total",
			Help:        "Total number of error-page responses by status and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status", "outcome"}),

		respondDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "respond_duration_seconds",
			Help:        "Time spent producing an error-page response",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fallbacks_total",
			Help:        "Total number of error pages that failed to render and fell back to a raw 500",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates a decorator that records error-page metrics.
//
// Each call registers a fresh set of collectors, so call it once per
// registry.
func Prometheus(opts ...MetricsOption) Decorator {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := newMetrics(config)

	return func(next ssr.ErrorResponder) ssr.ErrorResponder {
		return ssr.ResponderFunc(func(ctx context.Context, in ssr.ErrorInput) *ssr.Response {
			start := time.Now()
			resp := next.RespondWithError(ctx, in)
			result := outcome(resp)

			m.respondDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

			status := strconv.Itoa(ssr.FallbackStatus)
			if resp != nil {
				status = strconv.Itoa(resp.Status)
			}
			m.responsesTotal.WithLabelValues(status, result).Inc()
			if result == OutcomeFallback {
				m.fallbacksTotal.Inc()
			}
			return resp
		})
	}
}
