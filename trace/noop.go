// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/trace/noop"

	oteltrace "go.opentelemetry.io/otel/trace"
)

var _ trace.Tracer = noopTracer{}

type noopTracer struct {
	oteltrace.Tracer
}

// Noop returns a tracer whose spans are never recorded or exported.
func Noop(name string) trace.Tracer {
	return noopTracer{Tracer: noop.NewTracerProvider().Tracer(name)}
}

func (noopTracer) Close() error { return nil }
