// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"

	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	ModuleKey   = attribute.Key("movevm.module")
	FunctionKey = attribute.Key("movevm.function")
	GasLimitKey = attribute.Key("movevm.gas_limit")
	GasUsedKey  = attribute.Key("movevm.gas_used")
	ModulesKey  = attribute.Key("movevm.modules")
)

// Start opens a span for one engine call.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// End closes [span], marking it failed when [err] is non-nil.
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func Function(moduleID, function string) []attribute.KeyValue {
	return []attribute.KeyValue{
		ModuleKey.String(moduleID),
		FunctionKey.String(function),
	}
}

func GasLimit(limit uint64) attribute.KeyValue {
	return GasLimitKey.Int64(int64(limit))
}

func GasUsed(used uint64) attribute.KeyValue {
	return GasUsedKey.Int64(int64(used))
}
