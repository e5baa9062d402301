// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/types"
)

// Every entry point returns an owned result vector and reports failures
// through [errmsg], which must point at a none vector. On failure the result
// is none, [errmsg] holds the message and the returned ErrnoValue is
// non-zero. The caller owns both vectors afterwards.

func Initialize(
	vm *VM,
	db Db,
	api GoAPI,
	env ByteSliceView,
	moduleBundle ByteSliceView,
	allowedPublishers ByteSliceView,
	errmsg *UnmanagedVector,
) (UnmanagedVector, ErrnoValue) {
	return vm.call("initialize", errmsg, func(e Engine) ([]byte, error) {
		return e.Initialize(newStorage(db), newChainAPI(api), env.Read(), moduleBundle.Read(), allowedPublishers.Read())
	})
}

func ExecuteContract(
	vm *VM,
	db Db,
	api GoAPI,
	env ByteSliceView,
	gasLimit uint64,
	senders ByteSliceView,
	entryFunction ByteSliceView,
	errmsg *UnmanagedVector,
) (UnmanagedVector, ErrnoValue) {
	return vm.call("execute_contract", errmsg, func(e Engine) ([]byte, error) {
		return e.ExecuteContract(newStorage(db), newChainAPI(api), env.Read(), gasLimit, senders.Read(), entryFunction.Read())
	})
}

func ExecuteScript(
	vm *VM,
	db Db,
	api GoAPI,
	env ByteSliceView,
	gasLimit uint64,
	senders ByteSliceView,
	script ByteSliceView,
	errmsg *UnmanagedVector,
) (UnmanagedVector, ErrnoValue) {
	return vm.call("execute_script", errmsg, func(e Engine) ([]byte, error) {
		return e.ExecuteScript(newStorage(db), newChainAPI(api), env.Read(), gasLimit, senders.Read(), script.Read())
	})
}

func ExecuteViewFunction(
	vm *VM,
	db Db,
	api GoAPI,
	env ByteSliceView,
	gasLimit uint64,
	viewFunction ByteSliceView,
	errmsg *UnmanagedVector,
) (UnmanagedVector, ErrnoValue) {
	return vm.call("execute_view_function", errmsg, func(e Engine) ([]byte, error) {
		return e.ExecuteViewFunction(newStorage(db), newChainAPI(api), env.Read(), gasLimit, viewFunction.Read())
	})
}

func DecodeModuleBytes(errmsg *UnmanagedVector, module ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("decode_module_bytes", errmsg, func() ([]byte, error) {
		return engine.DecodeModuleABI(module.Read())
	})
}

func DecodeScriptBytes(errmsg *UnmanagedVector, script ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("decode_script_bytes", errmsg, func() ([]byte, error) {
		return engine.DecodeScriptABI(script.Read())
	})
}

// DecodeMoveResource renders [resource] as JSON. Struct layouts are resolved
// through [db]; nothing is written.
func DecodeMoveResource(db Db, errmsg *UnmanagedVector, structTag ByteSliceView, resource ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("decode_move_resource", errmsg, func() ([]byte, error) {
		return engine.DecodeResource(newStorage(db), string(structTag.Read()), resource.Read())
	})
}

func DecodeMoveValue(db Db, errmsg *UnmanagedVector, typeTag ByteSliceView, value ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("decode_move_value", errmsg, func() ([]byte, error) {
		return engine.DecodeValue(newStorage(db), string(typeTag.Read()), value.Read())
	})
}

// ParseStructTag returns the borsh encoded types.StructTag of a struct tag
// string.
func ParseStructTag(errmsg *UnmanagedVector, structTag ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("parse_struct_tag", errmsg, func() ([]byte, error) {
		tag, err := types.ParseStructTag(string(structTag.Read()))
		if err != nil {
			return nil, err
		}
		return types.Marshal(tag)
	})
}

// StringifyStructTag is the inverse of ParseStructTag.
func StringifyStructTag(errmsg *UnmanagedVector, structTag ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("stringify_struct_tag", errmsg, func() ([]byte, error) {
		encoded := structTag.Read()
		if len(encoded) > types.MaxEncodedStructTagSize {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", types.ErrInvalidStructTag, len(encoded), types.MaxEncodedStructTagSize)
		}
		tag, err := types.Unmarshal[types.StructTag](encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidStructTag, err)
		}
		if err := tag.Validate(); err != nil {
			return nil, err
		}
		return []byte(tag.String()), nil
	})
}

// ReadModuleInfo returns the borsh encoded types.ModuleInfo of a compiled
// module.
func ReadModuleInfo(errmsg *UnmanagedVector, compiled ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("read_module_info", errmsg, func() ([]byte, error) {
		return engine.ReadModuleInfo(compiled.Read())
	})
}

// ConvertModuleName returns [precompiled] renamed to [moduleName].
func ConvertModuleName(errmsg *UnmanagedVector, precompiled ByteSliceView, moduleName ByteSliceView) (UnmanagedVector, ErrnoValue) {
	return guard("convert_module_name", errmsg, func() ([]byte, error) {
		return engine.ConvertModuleName(precompiled.Read(), string(moduleName.Read()))
	})
}

func (vm *VM) call(op string, errmsg *UnmanagedVector, f func(Engine) ([]byte, error)) (UnmanagedVector, ErrnoValue) {
	if errmsg == nil {
		panic(op + ": errmsg must not be nil")
	}
	if vm == nil {
		return fail(errmsg, ErrNilVM)
	}

	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.released.Load() {
		return fail(errmsg, ErrVMReleased)
	}
	result, errno := guard(op, errmsg, func() ([]byte, error) {
		return f(vm.engine)
	})
	if errno != ErrnoSuccess {
		vm.log.Debug("call failed",
			zap.String("op", op),
			zap.Int32("errno", int32(errno)),
		)
	}
	return result, errno
}

// guard runs [f] and converts its outcome, including panics, into the entry
// point convention.
func guard(op string, errmsg *UnmanagedVector, f func() ([]byte, error)) (result UnmanagedVector, errno ErrnoValue) {
	if errmsg == nil {
		panic(op + ": errmsg must not be nil")
	}
	defer func() {
		if r := recover(); r != nil {
			result, errno = fail(errmsg, fmt.Errorf("panic in %s: %v", op, r))
		}
	}()

	out, err := f()
	if err != nil {
		return fail(errmsg, err)
	}
	return NewUnmanagedVector(false, out), ErrnoSuccess
}

func fail(errmsg *UnmanagedVector, err error) (UnmanagedVector, ErrnoValue) {
	*errmsg = NewUnmanagedVector(false, []byte(err.Error()))

	var oog types.OutOfGasError
	if errors.As(err, &oog) {
		return UnmanagedVector{IsNone: true}, ErrnoOutOfGas
	}
	return UnmanagedVector{IsNone: true}, ErrnoOther
}
