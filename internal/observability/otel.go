// Package observability initializes the process-wide OpenTelemetry tracer
// provider. The Orchestrator opens a span for each Ingest call and a child
// span for each persistOne call; the individual stages and store calls
// get no spans of their own.
package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer = otel.Tracer("fittness-builder")
)

// Init wires a tracer provider once per process: an OTLP/HTTP exporter if
// OTEL_EXPORTER_OTLP_ENDPOINT is set, otherwise a stdout exporter, so local
// runs still produce inspectable spans. It is a no-op if OTEL_ENABLED is
// unset. Returns a shutdown func to flush on process exit; nil if tracing
// was never enabled.
func Init(ctx context.Context, log *logger.Logger) func(context.Context) error {
	var shutdown func(context.Context) error
	tracerOnce.Do(func() {
		if !envutil.GetEnvAsBool("OTEL_ENABLED", false, log) {
			return
		}

		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String("fittness-builder"),
			attribute.String("deployment.environment", envutil.GetEnv("APP_ENV", "development", log)),
		))
		if err != nil {
			log.Warn("otel resource init failed, continuing without resource attributes", "error", err.Error())
		}

		exporter, err := buildExporter(ctx, log)
		if err != nil {
			log.Warn("otel exporter init failed, tracing disabled", "error", err.Error())
			return
		}

		ratio := sampleRatio(log)
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		tracer = tp.Tracer("fittness-builder")
		shutdown = tp.Shutdown
		log.Info("otel tracing initialized", "sample_ratio", ratio)
	})
	return shutdown
}

// StartSpan opens a span for one pipeline stage or store round-trip. The
// caller defers the returned end func unconditionally.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}

func buildExporter(ctx context.Context, log *logger.Logger) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(envutil.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log))
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if envutil.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log) {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func sampleRatio(log *logger.Logger) float64 {
	raw := envutil.GetEnv("OTEL_SAMPLER_RATIO", "0.1", log)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0.1
	}
	return v
}
