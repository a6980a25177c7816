package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter selects where spans and metrics go.
type Exporter string

const (
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
	// ExporterNone keeps the SDK (sampling, instruments) but exports nothing.
	ExporterNone Exporter = "none"
)

// Config holds the telemetry settings of the secretsanta service.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // "development" or "production"
	Exporter       Exporter
	Insecure       bool // plain HTTP for OTLP
	// SampleRatio is the fraction of root traces kept, in [0, 1].
	// Child spans follow their parent's decision.
	SampleRatio float64
	// MetricInterval is how often metrics are pushed to the exporter.
	MetricInterval time.Duration
}

// ConfigFromEnv reads OTEL_* variables. Sampling and the metric interval use
// the standard OTEL_TRACES_SAMPLER_ARG and OTEL_METRIC_EXPORT_INTERVAL (ms).
func ConfigFromEnv() (Config, error) {
	env := envOrDefault("OTEL_ENVIRONMENT", "development")
	cfg := Config{
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "secretsanta"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       Exporter(envOrDefault("OTEL_EXPORTER", string(ExporterStdout))),
		Insecure:       env == "development",
	}

	ratio, err := strconv.ParseFloat(envOrDefault("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parsing OTEL_TRACES_SAMPLER_ARG: %w", err)
	}
	cfg.SampleRatio = ratio

	ms, err := strconv.Atoi(envOrDefault("OTEL_METRIC_EXPORT_INTERVAL", "60000"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing OTEL_METRIC_EXPORT_INTERVAL: %w", err)
	}
	cfg.MetricInterval = time.Duration(ms) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Exporter {
	case ExporterStdout, ExporterOTLP, ExporterNone:
	default:
		return fmt.Errorf("unsupported exporter: %q (use \"stdout\", \"otlp\" or \"none\")", c.Exporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample ratio %v is outside [0, 1]", c.SampleRatio)
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("metric interval %v is negative", c.MetricInterval)
	}
	return nil
}

// Telemetry is the installed tracer and meter providers together with the
// service's own instruments.
type Telemetry struct {
	Instruments *Instruments

	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

// Setup builds the providers described by cfg, registers them globally and
// creates the service instruments on the new meter provider. Shutdown must
// be called on exit to flush pending telemetry.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("creating tracer provider: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating meter provider: %w", err)
	}

	instruments, err := NewInstruments(mp.Meter(tracerName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{
		Instruments:    instruments,
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	var exporter trace.SpanExporter
	var err error
	switch cfg.Exporter {
	case ExporterOTLP:
		var otlpOpts []otlptracehttp.Option
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, otlpOpts...)
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	var exporter metric.Exporter
	var err error
	switch cfg.Exporter {
	case ExporterOTLP:
		var otlpOpts []otlpmetrichttp.Option
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, otlpOpts...)
	case ExporterStdout:
		exporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		var readerOpts []metric.PeriodicReaderOption
		if cfg.MetricInterval > 0 {
			readerOpts = append(readerOpts, metric.WithInterval(cfg.MetricInterval))
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter, readerOpts...)))
	}

	return metric.NewMeterProvider(opts...), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
