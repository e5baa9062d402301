// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package movevm

import (
	"fmt"

	"github.com/ava-labs/movevm/ffi"
	"github.com/ava-labs/movevm/types"
)

// codec wraps a stateless entry point and destroys both vectors it returns.
func codec(f func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue)) ([]byte, error) {
	errmsg := ffi.UnmanagedVector{IsNone: true}
	res, errno := f(&errmsg)
	out := ffi.CopyAndDestroy(res)
	msg := ffi.CopyAndDestroy(errmsg)
	if errno != ffi.ErrnoSuccess {
		return nil, fmt.Errorf("%w: %s", ErrExecution, msg)
	}
	return out, nil
}

// DecodeModuleBytes returns the JSON ABI of a compiled module.
func (*VM) DecodeModuleBytes(code []byte) ([]byte, error) {
	return codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.DecodeModuleBytes(errmsg, ffi.MakeView(code))
	})
}

// DecodeScriptBytes returns the JSON ABI of a compiled script.
func (*VM) DecodeScriptBytes(code []byte) ([]byte, error) {
	return codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.DecodeScriptBytes(errmsg, ffi.MakeView(code))
	})
}

// DecodeMoveResource renders [resource] as JSON, resolving struct layouts
// from the modules published in [store].
func (vm *VM) DecodeMoveResource(store types.KVStore, structTag string, resource []byte) ([]byte, error) {
	return vm.call("decode_move_resource", store, nil, 0, func(db ffi.Db, _ ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.DecodeMoveResource(db, errmsg, ffi.MakeView([]byte(structTag)), ffi.MakeView(resource))
	})
}

// DecodeMoveValue renders a value of type [typeTag] as JSON.
func (vm *VM) DecodeMoveValue(store types.KVStore, typeTag string, value []byte) ([]byte, error) {
	return vm.call("decode_move_value", store, nil, 0, func(db ffi.Db, _ ffi.GoAPI, errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.DecodeMoveValue(db, errmsg, ffi.MakeView([]byte(typeTag)), ffi.MakeView(value))
	})
}

func (*VM) ParseStructTag(structTag string) (types.StructTag, error) {
	out, err := codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ParseStructTag(errmsg, ffi.MakeView([]byte(structTag)))
	})
	if err != nil {
		return types.StructTag{}, err
	}
	return types.Unmarshal[types.StructTag](out)
}

func (*VM) StringifyStructTag(tag types.StructTag) (string, error) {
	b, err := types.Marshal(tag)
	if err != nil {
		return "", err
	}
	out, err := codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.StringifyStructTag(errmsg, ffi.MakeView(b))
	})
	return string(out), err
}

// ReadModuleInfo returns the name and address of a compiled module.
func (*VM) ReadModuleInfo(code []byte) (types.ModuleInfo, error) {
	out, err := codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ReadModuleInfo(errmsg, ffi.MakeView(code))
	})
	if err != nil {
		return types.ModuleInfo{}, err
	}
	return types.Unmarshal[types.ModuleInfo](out)
}

// ConvertModuleName returns [code] renamed to [name].
func (*VM) ConvertModuleName(code []byte, name string) ([]byte, error) {
	return codec(func(errmsg *ffi.UnmanagedVector) (ffi.UnmanagedVector, ffi.ErrnoValue) {
		return ffi.ConvertModuleName(errmsg, ffi.MakeView(code), ffi.MakeView([]byte(name)))
	})
}
