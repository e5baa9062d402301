// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package abi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm/engine"
)

func TestGenerateGoStructs(t *testing.T) {
	require := require.New(t)

	code, err := GenerateGoStructs(engine.ModuleABI{
		Address: "0x42",
		Name:    "counter",
		ExposedFunctions: []engine.FunctionABI{
			{Name: "get", Visibility: "public", IsView: true, Params: []string{"address"}, Return: []string{"u64"}},
			{Name: "increment_by", Visibility: "public", IsEntry: true, Params: []string{"signer", "u64"}},
		},
		Structs: []engine.StructABI{{
			Name: "Counter",
			Fields: []engine.FieldABI{
				{Name: "value", Type: "u64"},
				{Name: "owner", Type: "address"},
				{Name: "history", Type: "vector<u64>"},
			},
		}},
	}, "counter")
	require.NoError(err)

	expected := `// Code generated by movevm-abigen. DO NOT EDIT.

package counter

import "github.com/ava-labs/movevm/types"

// ModuleID identifies the counter module.
const ModuleID = "0x42::counter"

const (
	FunctionGet         = "get"
	FunctionIncrementBy = "increment_by"
)

type Counter struct {
	Value   uint64               ` + "`json:\"value,string\"`" + `
	Owner   types.AccountAddress ` + "`json:\"owner\"`" + `
	History []string             ` + "`json:\"history\"`" + `
}
`
	require.Equal(expected, code)
}

func TestConvertToGoType(t *testing.T) {
	const moduleID = "0x42::counter"
	tests := []struct {
		abiType string
		goType  string
		quoted  bool
	}{
		{"bool", "bool", false},
		{"u8", "uint8", false},
		{"u64", "uint64", true},
		{"u256", "string", false},
		{"signer", "types.AccountAddress", false},
		{"vector<u8>", "types.HexBytes", false},
		{"vector<vector<u8>>", "[]types.HexBytes", false},
		{"vector<bool>", "[]bool", false},
		{"0x42::counter::Counter", "Counter", false},
		{"0x42::counter::coin_store", "CoinStore", false},
		{"0x1::coin::Coin", "json.RawMessage", false},
	}
	for _, tt := range tests {
		t.Run(tt.abiType, func(t *testing.T) {
			goType, quoted := convertToGoType(tt.abiType, moduleID)
			require.Equal(t, tt.goType, goType)
			require.Equal(t, tt.quoted, quoted)
		})
	}
}
