// internal/observability/otel.go
package observability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"librarydesk/internal/logger"
)

type TracingConfig struct {
	ServiceName  string
	Version      string
	OTLPEndpoint string
	TraceFile    string
}

// InitTracing installs a global tracer provider when an OTLP endpoint or a
// trace file is configured. With neither, the global no-op provider stays
// and the returned shutdown does nothing.
func InitTracing(ctx context.Context, log *logger.Logger, cfg TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	exporter, closeFile, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		return noop, err
	}
	if exporter == nil {
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(newResource(cfg.ServiceName, cfg.Version)),
	)
	otel.SetTracerProvider(tp)
	if log != nil {
		log.Info("otel tracing initialized", "endpoint", cfg.OTLPEndpoint, "trace_file", cfg.TraceFile)
	}

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closeFile != nil {
			if cerr := closeFile(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}

func newResource(serviceName, version string) *resource.Resource {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		serviceName = "librarydesk"
	}
	return resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", strings.TrimSpace(version)),
	)
}

func buildTraceExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, func() error, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if otelInsecure() {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil, nil
	}

	if path := strings.TrimSpace(cfg.TraceFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return exp, f.Close, nil
	}

	return nil, nil, nil
}

func otelInsecure() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
