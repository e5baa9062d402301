// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"
	"errors"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"

	oteltrace "go.opentelemetry.io/otel/trace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	DefaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
	DefaultServiceName    = "movevm"

	exportTimeout = 10 * time.Second
	// Longer than [exportTimeout] so a pending batch can flush on Close.
	shutdownTimeout = 15 * time.Second
)

var ErrInvalidSampleRate = errors.New("sample rate must be in [0, 1]")

// Config selects where engine spans go. A disabled config yields a tracer
// that records nothing.
type Config struct {
	Enabled     bool    `json:"enabled"`
	SampleRate  float64 `json:"sampleRate"`
	ServiceName string  `json:"serviceName"`
	Version     string  `json:"version"`
	// ZipkinEndpoint is the collector spans are exported to.
	ZipkinEndpoint string `json:"zipkinEndpoint"`
}

func NewDefaultConfig() Config {
	return Config{
		SampleRate:     1,
		ServiceName:    DefaultServiceName,
		ZipkinEndpoint: DefaultZipkinEndpoint,
	}
}

func (c Config) Verify() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}

type zipkinTracer struct {
	oteltrace.Tracer

	provider *sdktrace.TracerProvider
}

func (t *zipkinTracer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return t.provider.Shutdown(ctx)
}

// New returns the tracer described by [cfg].
func New(cfg Config) (trace.Tracer, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	if !cfg.Enabled {
		return Noop(name), nil
	}

	endpoint := cfg.ZipkinEndpoint
	if endpoint == "" {
		endpoint = DefaultZipkinEndpoint
	}
	exporter, err := zipkin.New(endpoint)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(exportTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(name),
			attribute.String("version", cfg.Version),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	return &zipkinTracer{
		Tracer:   provider.Tracer(name),
		provider: provider,
	}, nil
}
