package middleware

import (
	"context"

	"github.com/vango-dev/errpage/pkg/ssr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for errpage.
const defaultTracerName = "errpage"

// SpanName is the name of the span recorded around each response.
const SpanName = "errpage.respond"

// OTelConfig configures the OpenTelemetry decorator.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "errpage").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// IncludeErrorMessage records the triggering error's message.
	// May contain sensitive information - disabled by default.
	IncludeErrorMessage bool

	// AttributeExtractor extracts custom attributes from the input.
	AttributeExtractor func(in ssr.ErrorInput) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry decorator.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeErrorMessage enables recording the triggering error message.
func WithIncludeErrorMessage(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeErrorMessage = include
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(in ssr.ErrorInput) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates a decorator that traces every error-page response.
//
// The span carries the request path, the requested status, the SSR flag
// and the outcome; a fallback sets the span status to Error. The span
// context is passed to the wrapped responder so loads and renders can
// create child spans.
func OpenTelemetry(opts ...OTelOption) Decorator {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return func(next ssr.ErrorResponder) ssr.ErrorResponder {
		return ssr.ResponderFunc(func(ctx context.Context, in ssr.ErrorInput) *ssr.Response {
			attrs := []attribute.KeyValue{
				attribute.Int("errpage.status", in.Status),
				attribute.Bool("errpage.ssr", in.SSR),
			}
			if in.Request != nil && in.Request.URL != nil {
				attrs = append(attrs, attribute.String("http.path", in.Request.URL.Path))
			}
			if config.IncludeErrorMessage && in.Error != nil {
				attrs = append(attrs, attribute.String("errpage.error", in.Error.Error()))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(in)...)
			}

			spanCtx, span := tracer.Start(ctx, SpanName,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			resp := next.RespondWithError(spanCtx, in)
			result := outcome(resp)
			span.SetAttributes(attribute.String("errpage.outcome", result))
			if resp != nil {
				span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			}

			if result == OutcomeFallback {
				span.SetStatus(codes.Error, "error page fell back to raw 500")
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return resp
		})
	}
}
