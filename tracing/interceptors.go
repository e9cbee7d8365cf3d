// Package tracing provides OpenTelemetry spans for intercepted calls. It is
// entirely optional: tracing is only active when a [Config] is wired in via
// the WithTracing engine option.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/Keksclan/goRawrCache/invocation"
)

const instrumentationName = "github.com/Keksclan/goRawrCache/tracing"

// Config holds the OpenTelemetry configuration used by the interceptors.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// Propagators extracts trace context from incoming gRPC metadata.
	// When nil the global otel.GetTextMapPropagator() is used.
	Propagators propagation.TextMapPropagator
}

// tracer returns a configured [trace.Tracer].
func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// propagators returns the configured propagator (or global default).
func (c *Config) propagators() propagation.TextMapPropagator {
	if c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

// Interceptor returns an [invocation.Interceptor] that wraps every call in a
// span named after the method. If cfg is nil the interceptor is a no-op
// passthrough.
func Interceptor(cfg *Config) invocation.Interceptor {
	if cfg == nil {
		return func(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
			return next(ctx, call)
		}
	}
	return func(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
		ctx, span := cfg.tracer().Start(ctx, call.Method.FullName(), trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()

		span.SetAttributes(
			attribute.String("code.namespace", call.Method.DeclaringType),
			attribute.String("code.function", call.Method.Name),
			attribute.String("rawrcache.target", call.Target),
			attribute.Int("rawrcache.args", len(call.Args)),
		)

		resp, err := next(ctx, call)
		recordStatus(span, err)
		return resp, err
	}
}

// UnaryServerInterceptor returns a [grpc.UnaryServerInterceptor] that
// continues the caller's trace from incoming metadata, so spans created by
// Interceptor further down join it. If cfg is nil the interceptor is a
// no-op passthrough.
func UnaryServerInterceptor(cfg *Config) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if cfg != nil {
			ctx = extract(ctx, cfg)
		}
		return handler(ctx, req)
	}
}

// AddEvent records a named event on the span active in ctx, if any.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// --- helpers ----------------------------------------------------------------

// metadataCarrier adapts gRPC [metadata.MD] to the OTel
// [propagation.TextMapCarrier] interface.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	md := metadata.MD(mc)
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	return keys
}

// extract pulls trace context from incoming gRPC metadata into ctx.
func extract(ctx context.Context, cfg *Config) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	return cfg.propagators().Extract(ctx, metadataCarrier(md))
}

// recordStatus sets the span status from the call outcome.
func recordStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, firstLine(err.Error()))
		return
	}
	span.SetStatus(codes.Ok, "")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
