// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledTracer(t *testing.T) {
	require := require.New(t)

	tracer, err := New(NewDefaultConfig())
	require.NoError(err)

	ctx, span := Start(context.Background(), tracer, "VM.ExecuteEntryFunction",
		append(Function("0x1::counter", "increment"), GasLimit(100))...,
	)
	require.NotNil(ctx)
	require.False(span.SpanContext().IsValid())
	End(span, errors.New("aborted"))
	require.NoError(tracer.Close())
}

func TestEnabledTracer(t *testing.T) {
	require := require.New(t)

	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ZipkinEndpoint = "http://127.0.0.1:1/api/v2/spans"
	tracer, err := New(cfg)
	require.NoError(err)

	_, span := Start(context.Background(), tracer, "VM.Initialize", ModulesKey.Int(2))
	require.True(span.SpanContext().IsValid())
	require.True(span.IsRecording())
	span.SetAttributes(GasUsed(10))
	End(span, nil)
	require.False(span.IsRecording())
	// Export to the unreachable collector fails, shutdown still returns.
	_ = tracer.Close()
}

func TestInvalidSampleRate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SampleRate = 1.5
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestFunctionAttributes(t *testing.T) {
	require.Equal(t, []attribute.KeyValue{
		ModuleKey.String("0x1::coin"),
		FunctionKey.String("transfer"),
	}, Function("0x1::coin", "transfer"))
}
