// Package middleware provides observability decorators for error
// responders.
//
// A Decorator wraps an ssr.ErrorResponder. This package includes:
//   - OpenTelemetry tracing of every error-page response
//   - Prometheus metrics for rendered and fallback responses
//
// # OpenTelemetry
//
//	responder = middleware.Chain(
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	)(responder)
//
// The tracer comes from the global OpenTelemetry tracer provider unless
// WithTracerProvider is given.
//
// # Prometheus Metrics
//
//	responder = middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	)(responder)
//
//	http.Handle("/metrics", promhttp.Handler())
//
// Metrics collected (default namespace "errpage"):
//   - errpage_responses_total{status,outcome}
//   - errpage_respond_duration_seconds{outcome}
//   - errpage_fallbacks_total
package middleware
