// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/movevm/types"
)

// VM is the subset of movevm.VM the service calls.
type VM interface {
	ParseStructTag(structTag string) (types.StructTag, error)
	StringifyStructTag(tag types.StructTag) (string, error)
	DecodeModuleBytes(code []byte) ([]byte, error)
	DecodeScriptBytes(code []byte) ([]byte, error)
	ReadModuleInfo(code []byte) (types.ModuleInfo, error)
	DecodeMoveResource(store types.KVStore, structTag string, resource []byte) ([]byte, error)
	ExecuteViewFunction(
		ctx context.Context,
		store types.KVStore,
		chain types.GoAPI,
		env types.Env,
		gasLimit uint64,
		view types.ViewFunction,
	) (types.ViewOutput, error)
}

// Backend supplies the state views run against.
type Backend interface {
	Store() types.KVStore
	ChainAPI() types.GoAPI
	// Env describes the block a view observes.
	Env() types.Env
	Logger() logging.Logger
	Tracer() trace.Tracer
}
