// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm/types"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line string
		want Instruction
		err  error
	}{
		{line: "push u64:5", want: Instruction{Op: OpPush, Operand: u64Bytes(5)}},
		{line: `push "str:hello world"`, want: Instruction{Op: OpPush, Operand: []byte("hello world")}},
		{line: "push bool:true", want: Instruction{Op: OpPush, Operand: []byte{1}}},
		{line: "push 0xcafe", want: Instruction{Op: OpPush, Operand: []byte{0xca, 0xfe}}},
		{line: "arg 2", want: Instruction{Op: OpArg, Operand: []byte{2}}},
		{line: "scan desc", want: Instruction{Op: OpScan, Operand: []byte{byte(types.Descending)}}},
		{line: "move_to Counter", want: Instruction{Op: OpMoveTo, Operand: []byte("Counter")}},
		{line: "abort 7", want: Instruction{Op: OpAbort, Operand: u64Bytes(7)}},
		{line: "add_u64", want: Instruction{Op: OpAddU64}},
		{line: "", err: ErrInvalidInstruction},
		{line: "jump 1", err: ErrUnknownOpcode},
		{line: "add_u64 1", err: ErrInvalidInstruction},
		{line: "push", err: ErrInvalidInstruction},
		{line: "push five", err: ErrInvalidInstruction},
		{line: "arg 256", err: ErrInvalidInstruction},
		{line: "scan sideways", err: ErrInvalidInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require := require.New(t)

			ins, err := ParseInstruction(tt.line)
			require.ErrorIs(err, tt.err)
			if tt.err == nil {
				require.Equal(tt.want, ins)
			}
		})
	}
}

func TestAssembleModule(t *testing.T) {
	require := require.New(t)

	src := ModuleSource{
		Address: "0xcafe",
		Name:    "counter",
		Structs: []StructSource{{
			Name:   "Counter",
			Fields: []FieldSource{{Name: "value", Type: "u64"}},
		}},
		Functions: []FunctionSource{
			{
				Name:   InitModuleFunction,
				Params: []string{"signer"},
				Code:   []string{"signer 0", "push u64:0", "move_to Counter"},
			},
			{
				Name:       "get",
				Visibility: "public",
				View:       true,
				Params:     []string{"address"},
				Returns:    []string{"0xcafe::counter::Counter"},
				Code:       []string{"arg 0", "borrow_global Counter", "return"},
			},
		},
	}
	code, err := AssembleModule(src)
	require.NoError(err)

	m, err := DecodeModule(code)
	require.NoError(err)
	require.Equal("0xcafe::counter", m.ID())
	fn, ok := m.Function("get")
	require.True(ok)
	require.Equal(Public, fn.Visibility)
	require.True(fn.IsView)
	require.Len(fn.Code, 3)

	src.Functions[1].Visibility = "global"
	_, err = AssembleModule(src)
	require.ErrorIs(err, ErrInvalidModule)

	src.Functions[1].Visibility = "public"
	src.Functions[1].Code = []string{"jump"}
	_, err = AssembleModule(src)
	require.ErrorIs(err, ErrUnknownOpcode)
}

func TestAssembleScript(t *testing.T) {
	require := require.New(t)

	code, err := AssembleScript(ScriptSource{
		Params: []string{"u64"},
		Code:   []string{"arg 0", "return"},
	})
	require.NoError(err)
	s, err := DecodeScript(code)
	require.NoError(err)
	require.Equal([]types.TypeTag{{Kind: types.TypeU64}}, s.Params)

	_, err = AssembleScript(ScriptSource{Params: []string{"u65"}})
	require.ErrorIs(err, types.ErrInvalidTypeTag)
}

func TestDecodeLimits(t *testing.T) {
	require := require.New(t)

	_, err := DecodeModule(make([]byte, MaxCodeSize+1))
	require.ErrorIs(err, ErrInvalidModule)
	_, err = DecodeScript(make([]byte, MaxCodeSize+1))
	require.ErrorIs(err, ErrInvalidScript)

	deep := types.TypeTag{Kind: types.TypeU8}
	for i := 0; i < maxValueDepth; i++ {
		deep = types.TypeTag{Kind: types.TypeVector, TypeArgs: []types.TypeTag{deep}}
	}
	_, err = BuildScript([]types.TypeTag{deep}, nil)
	require.ErrorIs(err, ErrInvalidScript)

	_, err = BuildScript([]types.TypeTag{{Kind: types.TypeVector}}, nil)
	require.ErrorIs(err, ErrInvalidScript)
	require.ErrorIs(err, types.ErrInvalidTypeTag)

	_, err = BuildScript([]types.TypeTag{{Kind: types.TypeStruct, Address: types.StdAddress, Module: "m", Name: "bad name"}}, nil)
	require.ErrorIs(err, ErrInvalidScript)
}
