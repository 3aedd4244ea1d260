// internal/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"librarydesk/internal/logger"
)

type MetricsConfig struct {
	ServiceName  string
	Version      string
	OTLPEndpoint string
	Interval     time.Duration
}

// InitMetrics installs a global meter provider that exports over OTLP/HTTP
// when an endpoint is configured. Extra readers are attached as well. With
// no endpoint and no readers the global no-op provider stays.
func InitMetrics(ctx context.Context, log *logger.Logger, cfg MetricsConfig, readers ...sdkmetric.Reader) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if otelInsecure() {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return noop, fmt.Errorf("otlp metric exporter: %w", err)
		}
		interval := cfg.Interval
		if interval <= 0 {
			interval = 15 * time.Second
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)))
	}
	if len(readers) == 0 {
		return noop, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(newResource(cfg.ServiceName, cfg.Version))}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	if log != nil {
		log.Info("otel metrics initialized", "endpoint", cfg.OTLPEndpoint, "readers", len(readers))
	}
	return mp.Shutdown, nil
}
