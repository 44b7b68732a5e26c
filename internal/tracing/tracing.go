package tracing

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xxxsen/tenantrag/internal/config"
)

const ServiceName = "tenantrag"

// Init installs the global tracer provider and returns its shutdown func.
// With tracing disabled the no-op provider stays in place.
func Init(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", ServiceName),
	))
	if err != nil {
		logutil.GetLogger(ctx).Warn("otel resource init failed, continuing", zap.Error(err))
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}
	if cfg.Stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return noop, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logutil.GetLogger(ctx).Info("otel tracing initialized", zap.Bool("stdout", cfg.Stdout), zap.Float64("sample_ratio", cfg.SampleRatio))
	return tp.Shutdown, nil
}

func Tracer(name string) trace.Tracer {
	return otel.Tracer(ServiceName + "/" + name)
}
