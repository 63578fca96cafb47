package rpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// OTelConfig configures OpenTelemetry exporters
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	EnableTracing bool
	UseOTLPTraces bool
	OTLPTracesURL string

	EnableMetrics  bool
	UsePrometheus  bool // bridge otel metrics onto /server/metrics
	UseOTLPMetrics bool
	OTLPMetricsURL string

	EnableLogs  bool
	UseOTLPLogs bool
	OTLPLogsURL string

	// InsecureOTLP disables TLS towards the collector. Local development only.
	InsecureOTLP bool

	// optional mTLS material for the collector connection
	OTLPClientCertFile string
	OTLPClientKeyFile  string
	OTLPCACertFile     string

	// DevelopmentMode swaps every exporter for a stdout one
	DevelopmentMode bool
}

// DefaultOTelConfig traces over OTLP and exposes metrics through Prometheus
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "spectra-swap-router",
		ServiceVersion: "0.1.0",
		Environment:    "production",
		EnableTracing:  true,
		UseOTLPTraces:  true,
		OTLPTracesURL:  "http://localhost:4318/v1/traces",
		EnableMetrics:  true,
		UsePrometheus:  true,
		OTLPMetricsURL: "http://localhost:4318/v1/metrics",
		OTLPLogsURL:    "http://localhost:4318/v1/logs",
	}
}

/*
NewOTelSDK installs the global tracer, meter and logger providers the config enables.

Params:
  - ctx: used while creating exporters
  - config: nil uses DefaultOTelConfig

Returns:
  - a shutdown func that flushes and stops every provider that was installed
  - the first setup error; providers created before it are already shut down
*/
func NewOTelSDK(ctx context.Context, config *OTelConfig) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultOTelConfig()
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}
	fail := func(err error) (func(context.Context) error, error) {
		return shutdown, errors.Join(err, shutdown(ctx))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if config.EnableTracing {
		tp, err := newTracerProvider(ctx, res, config)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if config.EnableMetrics {
		mp, err := newMeterProvider(ctx, res, config)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
		otel.SetMeterProvider(mp)
	}

	if config.EnableLogs {
		lp, err := newLoggerProvider(ctx, res, config)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, lp.Shutdown)
		global.SetLoggerProvider(lp)
	}

	return shutdown, nil
}

// collectorTLS returns the TLS config for OTLP exporters, nil when InsecureOTLP is set
func collectorTLS(config *OTelConfig) (*tls.Config, error) {
	if config.InsecureOTLP {
		return nil, nil
	}
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if config.OTLPCACertFile != "" {
		caCert, err := os.ReadFile(config.OTLPCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA certificate")
		}
		tlsConfig.RootCAs = pool
	}
	if config.OTLPClientCertFile != "" && config.OTLPClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.OTLPClientCertFile, config.OTLPClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	switch {
	case config.DevelopmentMode:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		exporter = exp
	case config.UseOTLPTraces:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(config.OTLPTracesURL)}
		tlsConfig, err := collectorTLS(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for traces: %w", err)
		}
		if tlsConfig == nil {
			opts = append(opts, otlptracehttp.WithInsecure())
		} else {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsConfig))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		exporter = exp
	default:
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if config.UsePrometheus {
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exp))
	}

	if config.UseOTLPMetrics {
		var exporter sdkmetric.Exporter
		interval := 60 * time.Second
		if config.DevelopmentMode {
			exp, err := stdoutmetric.New()
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			exporter, interval = exp, 10*time.Second
		} else {
			mopts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(config.OTLPMetricsURL)}
			tlsConfig, err := collectorTLS(config)
			if err != nil {
				return nil, fmt.Errorf("failed to build TLS config for metrics: %w", err)
			}
			if tlsConfig == nil {
				mopts = append(mopts, otlpmetrichttp.WithInsecure())
			} else {
				mopts = append(mopts, otlpmetrichttp.WithTLSClientConfig(tlsConfig))
			}
			exp, err := otlpmetrichttp.New(ctx, mopts...)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
			}
			exporter = exp
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig) (*sdklog.LoggerProvider, error) {
	var exporter sdklog.Exporter
	switch {
	case config.DevelopmentMode:
		exp, err := stdoutlog.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout log exporter: %w", err)
		}
		exporter = exp
	case config.UseOTLPLogs:
		opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(config.OTLPLogsURL)}
		tlsConfig, err := collectorTLS(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for logs: %w", err)
		}
		if tlsConfig == nil {
			opts = append(opts, otlploghttp.WithInsecure())
		} else {
			opts = append(opts, otlploghttp.WithTLSClientConfig(tlsConfig))
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		exporter = exp
	default:
		return sdklog.NewLoggerProvider(sdklog.WithResource(res)), nil
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}
