// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"sync"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/types"
)

// Engine executes payloads on behalf of a VM handle. Payloads are passed
// through untouched; their encoding belongs to the engine.
type Engine interface {
	Initialize(store engine.Storage, api types.GoAPI, env []byte, moduleBundle []byte, allowedPublishers []byte) ([]byte, error)
	ExecuteContract(store engine.Storage, api types.GoAPI, env []byte, gasLimit uint64, senders []byte, entryFunction []byte) ([]byte, error)
	ExecuteScript(store engine.Storage, api types.GoAPI, env []byte, gasLimit uint64, senders []byte, script []byte) ([]byte, error)
	ExecuteViewFunction(store engine.Storage, api types.GoAPI, env []byte, gasLimit uint64, viewFunction []byte) ([]byte, error)
}

// EngineFactory builds the engine behind a VM handle with the cache
// capacities the handle was allocated with.
type EngineFactory func(moduleCacheCapacity, scriptCacheCapacity int, log logging.Logger) Engine

func defaultEngine(moduleCacheCapacity, scriptCacheCapacity int, log logging.Logger) Engine {
	return engine.New(engine.Config{
		ModuleCacheCapacity: moduleCacheCapacity,
		ScriptCacheCapacity: scriptCacheCapacity,
		GasSchedule:         engine.DefaultGasSchedule,
	}, log)
}

type options struct {
	log     logging.Logger
	factory EngineFactory
}

type Option func(*options)

func WithLogger(log logging.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithEngine(factory EngineFactory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// VM is an engine handle. It is allocated once with AllocateVM and released
// once with Release. Execution entry points may run concurrently against the
// same handle; Release waits for them to finish.
type VM struct {
	lock     sync.RWMutex
	released atomic.Bool

	engine Engine
	log    logging.Logger

	moduleCacheCapacity uint
	scriptCacheCapacity uint
}

// AllocateVM creates an engine handle whose module and script caches hold at
// most the given number of entries.
func AllocateVM(moduleCacheCapacity, scriptCacheCapacity uint, opts ...Option) *VM {
	o := &options{
		log:     logging.NoLog{},
		factory: defaultEngine,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log.Debug("allocating vm",
		zap.Uint("moduleCacheCapacity", moduleCacheCapacity),
		zap.Uint("scriptCacheCapacity", scriptCacheCapacity),
	)
	return &VM{
		engine:              o.factory(int(moduleCacheCapacity), int(scriptCacheCapacity), o.log),
		log:                 o.log,
		moduleCacheCapacity: moduleCacheCapacity,
		scriptCacheCapacity: scriptCacheCapacity,
	}
}

// CacheCapacities returns the capacities fixed at allocation.
func (vm *VM) CacheCapacities() (uint, uint) {
	return vm.moduleCacheCapacity, vm.scriptCacheCapacity
}

// Release invalidates the handle once all in-flight calls have returned.
// Releasing twice returns ErrVMReleased.
func (vm *VM) Release() error {
	if vm == nil {
		return ErrNilVM
	}
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if !vm.released.CompareAndSwap(false, true) {
		return ErrVMReleased
	}
	vm.engine = nil
	vm.log.Debug("released vm")
	return nil
}

// Released reports whether Release has been called.
func (vm *VM) Released() bool {
	return vm.released.Load()
}
