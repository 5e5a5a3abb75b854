package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/functional-assessment/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount        metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	CacheHitCount       metric.Int64Counter
	CacheMissCount      metric.Int64Counter
	TurnCount           metric.Int64Counter
	TurnDuration        metric.Float64Histogram
	InterpreterDuration metric.Float64Histogram
	FallbackCount       metric.Int64Counter
	ClarificationCount  metric.Int64Counter
	CompletedCount      metric.Int64Counter
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.CacheHitCount, err = meter.Int64Counter("cache.hit.count",
		metric.WithDescription("Number of cache hits")); err != nil {
		return nil, err
	}
	if m.CacheMissCount, err = meter.Int64Counter("cache.miss.count",
		metric.WithDescription("Number of cache misses")); err != nil {
		return nil, err
	}
	if m.TurnCount, err = meter.Int64Counter("assessment.turn.count",
		metric.WithDescription("Number of conversation turns processed")); err != nil {
		return nil, err
	}
	if m.TurnDuration, err = meter.Float64Histogram("assessment.turn.duration",
		metric.WithDescription("Conversation turn duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.InterpreterDuration, err = meter.Float64Histogram("assessment.interpreter.duration",
		metric.WithDescription("Interpreter call duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.FallbackCount, err = meter.Int64Counter("assessment.interpreter.fallback.count",
		metric.WithDescription("Number of fallback interpretations")); err != nil {
		return nil, err
	}
	if m.ClarificationCount, err = meter.Int64Counter("assessment.clarification.count",
		metric.WithDescription("Number of clarification rounds started")); err != nil {
		return nil, err
	}
	if m.CompletedCount, err = meter.Int64Counter("assessment.session.completed.count",
		metric.WithDescription("Number of completed assessments")); err != nil {
		return nil, err
	}

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records a metric with attributes
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, keyspace string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.keyspace", keyspace)))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, keyspace string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.keyspace", keyspace)))
}

// RecordTurn records one processed conversation turn
func RecordTurn(ctx context.Context, metrics *Metrics, phase, outcome string, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("assessment.phase", phase),
		attribute.String("assessment.outcome", outcome),
	)
	metrics.TurnCount.Add(ctx, 1, attrs)
	metrics.TurnDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordInterpretation records an interpreter call and whether it fell back
func RecordInterpretation(ctx context.Context, metrics *Metrics, assessmentType string, fallback bool, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("assessment.type", assessmentType))
	metrics.InterpreterDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if fallback {
		metrics.FallbackCount.Add(ctx, 1, attrs)
	}
}

// RecordClarification records the start of a clarification round
func RecordClarification(ctx context.Context, metrics *Metrics, questionCode string) {
	if metrics == nil {
		return
	}
	metrics.ClarificationCount.Add(ctx, 1, metric.WithAttributes(attribute.String("assessment.question_code", questionCode)))
}

// RecordCompletion records a completed assessment
func RecordCompletion(ctx context.Context, metrics *Metrics, iadlBand, adlBand string) {
	if metrics == nil {
		return
	}
	metrics.CompletedCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("assessment.iadl_band", iadlBand),
		attribute.String("assessment.adl_band", adlBand),
	))
}
