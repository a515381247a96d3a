// Package tracing wires OpenTelemetry for the service.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/use-agent/ytsearch/config"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs a global tracer provider when tracing is enabled. Spans go to
// cfg.File (rotated) or stderr; stdout belongs to the logger. When disabled
// the global no-op provider stays in place.
func Init(cfg config.TracingConfig) (ShutdownFunc, error) {
	if !cfg.Enabled || cfg.File == "" {
		return initWithWriter(cfg, os.Stderr)
	}

	file := &lumberjack.Logger{Filename: cfg.File, MaxSize: 100, MaxBackups: 3}
	shutdown, err := initWithWriter(cfg, file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(shutdown(ctx), file.Close())
	}, nil
}

func initWithWriter(cfg config.TracingConfig, w io.Writer) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
