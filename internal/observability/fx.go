package observability

import (
	"context"

	"github.com/influmarkt/influmarkt/internal/observability/metrics"
	"github.com/influmarkt/influmarkt/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(newMetricsConfig),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.New),
	fx.Invoke(registerTracing),
)

func newMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func registerTracing(lc fx.Lifecycle, cfg Config, log *zap.Logger) {
	if !cfg.OtelEnabled || cfg.OtelExporterEndpoint == "" {
		log.Info("tracing disabled")
		return
	}

	var shutdown func(context.Context) error

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, stop, err := tracing.NewProvider(ctx, tracing.Config{
				ServiceName:   cfg.ServiceName,
				Environment:   cfg.Environment,
				Version:       cfg.Version,
				Endpoint:      cfg.OtelExporterEndpoint,
				SamplingRatio: cfg.OtelSamplingRatio,
			})
			if err != nil {
				return err
			}
			shutdown = stop
			log.Info("tracing enabled", zap.String("endpoint", cfg.OtelExporterEndpoint))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}
