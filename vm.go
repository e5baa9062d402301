// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package movevm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/ffi"
	"github.com/ava-labs/movevm/types"

	movetrace "github.com/ava-labs/movevm/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var ErrExecution = errors.New("execution failed")

// VM is the typed Go API over an engine handle. Payloads are encoded on the
// way in and results decoded on the way out. Every buffer received from the
// handle is destroyed before a method returns.
type VM struct {
	handle  *ffi.VM
	log     logging.Logger
	tracer  trace.Tracer
	metrics *metrics
}

func NewVM(
	cfg Config,
	log logging.Logger,
	registerer prometheus.Registerer,
	tracer trace.Tracer,
	opts ...ffi.Option,
) (*VM, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	opts = append([]ffi.Option{ffi.WithLogger(log)}, opts...)
	handle := ffi.AllocateVM(cfg.ModuleCacheCapacity, cfg.ScriptCacheCapacity, opts...)
	log.Info("created vm",
		zap.Uint("moduleCacheCapacity", cfg.ModuleCacheCapacity),
		zap.Uint("scriptCacheCapacity", cfg.ScriptCacheCapacity),
	)
	return &VM{
		handle:  handle,
		log:     log,
		tracer:  tracer,
		metrics: m,
	}, nil
}

// Destroy releases the engine handle. It waits for in-flight calls.
func (vm *VM) Destroy() error {
	return vm.handle.Release()
}

// Initialize publishes [bundle] and runs the init function of every module
// in it. Only [allowedPublishers] may publish later; an empty list allows
// everyone. [store] is committed on success and aborted otherwise.
func (vm *VM) Initialize(
	ctx context.Context,
	store types.CommittableKVStore,
	chain types.GoAPI,
	env types.Env,
	bundle types.ModuleBundle,
	allowedPublishers []types.AccountAddress,
) (res types.ExecutionResult, err error) {
	_, span := movetrace.Start(ctx, vm.tracer, "VM.Initialize",
		movetrace.ModulesKey.Int(len(bundle.Codes)),
	)
	defer func() { vm.endSpan(span, res.GasUsed, err) }()

	envBytes, bundleBytes, publishersBytes, err := encode3(env, bundle, allowedPublishers)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	out, err := vm.execute("initialize", store, chain, 0, func(db ffi.Db, goAPI ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.Initialize(vm.handle, db, goAPI,
			ffi.MakeView(envBytes),
			ffi.MakeView(bundleBytes),
			ffi.MakeView(publishersBytes),
			errmsg,
		)
	})
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return vm.result(out)
}

// ExecuteEntryFunction runs [fn] signed by [senders]. [store] is committed
// on success and aborted otherwise.
func (vm *VM) ExecuteEntryFunction(
	ctx context.Context,
	store types.CommittableKVStore,
	chain types.GoAPI,
	env types.Env,
	gasLimit uint64,
	senders []types.AccountAddress,
	fn types.EntryFunction,
) (res types.ExecutionResult, err error) {
	_, span := movetrace.Start(ctx, vm.tracer, "VM.ExecuteEntryFunction",
		append(movetrace.Function(fn.ModuleAddress.String()+"::"+fn.ModuleName, fn.Function), movetrace.GasLimit(gasLimit))...,
	)
	defer func() { vm.endSpan(span, res.GasUsed, err) }()

	envBytes, sendersBytes, payload, err := encode3(env, senders, fn)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	out, err := vm.execute("execute_contract", store, chain, gasLimit, func(db ffi.Db, goAPI ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ExecuteContract(vm.handle, db, goAPI,
			ffi.MakeView(envBytes),
			gasLimit,
			ffi.MakeView(sendersBytes),
			ffi.MakeView(payload),
			errmsg,
		)
	})
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return vm.result(out)
}

// ExecuteScript runs [script] signed by [senders]. [store] is committed on
// success and aborted otherwise.
func (vm *VM) ExecuteScript(
	ctx context.Context,
	store types.CommittableKVStore,
	chain types.GoAPI,
	env types.Env,
	gasLimit uint64,
	senders []types.AccountAddress,
	script types.Script,
) (res types.ExecutionResult, err error) {
	_, span := movetrace.Start(ctx, vm.tracer, "VM.ExecuteScript", movetrace.GasLimit(gasLimit))
	defer func() { vm.endSpan(span, res.GasUsed, err) }()

	envBytes, sendersBytes, payload, err := encode3(env, senders, script)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	out, err := vm.execute("execute_script", store, chain, gasLimit, func(db ffi.Db, goAPI ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ExecuteScript(vm.handle, db, goAPI,
			ffi.MakeView(envBytes),
			gasLimit,
			ffi.MakeView(sendersBytes),
			ffi.MakeView(payload),
			errmsg,
		)
	})
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return vm.result(out)
}

// ExecuteViewFunction runs a read only function. Nothing is written to
// [store].
func (vm *VM) ExecuteViewFunction(
	ctx context.Context,
	store types.KVStore,
	chain types.GoAPI,
	env types.Env,
	gasLimit uint64,
	view types.ViewFunction,
) (output types.ViewOutput, err error) {
	_, span := movetrace.Start(ctx, vm.tracer, "VM.ExecuteViewFunction",
		append(movetrace.Function(view.ModuleAddress.String()+"::"+view.ModuleName, view.Function), movetrace.GasLimit(gasLimit))...,
	)
	defer func() { vm.endSpan(span, output.GasUsed, err) }()

	envBytes, err := types.Marshal(env)
	if err != nil {
		return types.ViewOutput{}, err
	}
	payload, err := types.Marshal(view)
	if err != nil {
		return types.ViewOutput{}, err
	}
	out, err := vm.call("execute_view_function", store, chain, gasLimit, func(db ffi.Db, goAPI ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ExecuteViewFunction(vm.handle, db, goAPI,
			ffi.MakeView(envBytes),
			gasLimit,
			ffi.MakeView(payload),
			errmsg,
		)
	})
	if err != nil {
		return types.ViewOutput{}, err
	}
	output, err = types.Unmarshal[types.ViewOutput](out)
	if err != nil {
		return types.ViewOutput{}, err
	}
	vm.metrics.gasUsed.Observe(float64(output.GasUsed))
	return output, nil
}

// execute runs [f] and settles [store]: commit on success, abort on any
// failure.
func (vm *VM) execute(
	op string,
	store types.CommittableKVStore,
	chain types.GoAPI,
	gasLimit uint64,
	f func(ffi.Db, ffi.GoAPI, *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue),
) ([]byte, error) {
	out, err := vm.call(op, store, chain, gasLimit, f)
	if err != nil {
		store.Abort()
		return nil, err
	}
	if err := store.Commit(); err != nil {
		store.Abort()
		return nil, fmt.Errorf("failed to commit %s: %w", op, err)
	}
	return out, nil
}

// call exposes [store] and [chain] through a fresh session, invokes [f] and
// converts its outcome. Both returned vectors are destroyed here.
func (vm *VM) call(
	op string,
	store types.KVStore,
	chain types.GoAPI,
	gasLimit uint64,
	f func(ffi.Db, ffi.GoAPI, *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue),
) ([]byte, error) {
	start := time.Now()
	vm.metrics.calls.WithLabelValues(op).Inc()
	defer func() {
		vm.metrics.latency.Observe(float64(time.Since(start)))
	}()

	session := api.NewSession(store, chain)
	defer func() {
		if n := session.Close(); n > 0 {
			vm.log.Debug("released leftover cursors",
				zap.String("op", op),
				zap.Int("count", n),
			)
		}
	}()

	errmsg := ffi.UnmanagedVector{IsNone: true}
	res, errno := f(session.DB(), session.API(), &errmsg)
	out := ffi.CopyAndDestroy(res)
	msg := ffi.CopyAndDestroy(errmsg)

	switch errno {
	case ffi.ErrnoSuccess:
		return out, nil
	case ffi.ErrnoOutOfGas:
		vm.metrics.failures.WithLabelValues(op).Inc()
		vm.metrics.outOfGas.Inc()
		vm.log.Debug("out of gas",
			zap.String("op", op),
			zap.Uint64("gasLimit", gasLimit),
		)
		return nil, types.OutOfGasError{Limit: gasLimit}
	default:
		vm.metrics.failures.WithLabelValues(op).Inc()
		vm.log.Debug("call failed",
			zap.String("op", op),
			zap.ByteString("msg", msg),
		)
		return nil, fmt.Errorf("%w: %s: %s", ErrExecution, op, msg)
	}
}

func (vm *VM) endSpan(span oteltrace.Span, gasUsed uint64, err error) {
	if err == nil {
		span.SetAttributes(movetrace.GasUsed(gasUsed))
	}
	movetrace.End(span, err)
}

func (vm *VM) result(out []byte) (types.ExecutionResult, error) {
	result, err := types.Unmarshal[types.ExecutionResult](out)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	vm.metrics.gasUsed.Observe(float64(result.GasUsed))
	return result, nil
}

func encode3[A, B, C any](a A, b B, c C) ([]byte, []byte, []byte, error) {
	ab, err := types.Marshal(a)
	if err != nil {
		return nil, nil, nil, err
	}
	bb, err := types.Marshal(b)
	if err != nil {
		return nil, nil, nil, err
	}
	cb, err := types.Marshal(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return ab, bb, cb, nil
}
