// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Payloads below are borsh encoded when they cross the boundary.

// Env describes the block and transaction an execution runs in.
type Env struct {
	ChainID           string
	BlockHeight       uint64
	BlockTimestamp    uint64
	NextAccountNumber uint64
	TxHash            [32]byte
	SessionID         [32]byte
}

// ModuleBundle is the set of compiled modules published by Initialize.
type ModuleBundle struct {
	Codes [][]byte
}

func NewModuleBundle(codes ...[]byte) ModuleBundle {
	return ModuleBundle{Codes: codes}
}

// EntryFunction calls a public entry function of a published module.
type EntryFunction struct {
	ModuleAddress AccountAddress
	ModuleName    string
	Function      string
	TyArgs        []TypeTag
	Args          [][]byte
}

// ViewFunction calls a read only function of a published module.
type ViewFunction struct {
	ModuleAddress AccountAddress
	ModuleName    string
	Function      string
	TyArgs        []TypeTag
	Args          [][]byte
}

// Script is a compiled script together with its arguments.
type Script struct {
	Code   []byte
	TyArgs []TypeTag
	Args   [][]byte
}

type Event struct {
	TypeTag string
	Data    []byte
}

// ExecutionResult is returned by Initialize, ExecuteContract and
// ExecuteScript.
type ExecutionResult struct {
	Events       []Event
	ReturnValues [][]byte
	GasUsed      uint64
}

// ViewOutput is returned by ExecuteViewFunction. Ret holds the JSON encoded
// return values.
type ViewOutput struct {
	Ret     string
	Events  []Event
	GasUsed uint64
}

type ModuleInfo struct {
	Name    string
	Address AccountAddress
}
