// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructTagRoundTrip(t *testing.T) {
	tests := []string{
		"0x1::coin::Coin",
		"0x1::coin::CoinStore<0x1::native_uinit::Coin>",
		"0x1::table::Table<address, vector<u8>>",
		"0xcafe::pool::Pool<0x1::fungible_asset::Metadata, vector<vector<u64>>, bool>",
		"0x0::m::S<u8, u16, u32, u64, u128, u256, signer>",
		"0xabc::_private::T_1",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			require := require.New(t)

			tag, err := ParseStructTag(s)
			require.NoError(err)
			require.Equal(s, tag.String())

			// Survives the wire encoding as well.
			encoded, err := Marshal(tag)
			require.NoError(err)
			decoded, err := Unmarshal[StructTag](encoded)
			require.NoError(err)
			require.Equal(tag, decoded)
			require.Equal(s, decoded.String())
		})
	}
}

func TestParseStructTagNormalizes(t *testing.T) {
	require := require.New(t)

	tag, err := ParseStructTag("0x0001 :: coin :: Coin< 0x01::a::B ,u8 >")
	require.NoError(err)
	require.Equal("0x1::coin::Coin<0x1::a::B, u8>", tag.String())
	require.Equal(StdAddress, tag.Address)
	require.Len(tag.TypeArgs, 2)
	require.Equal(TypeStruct, tag.TypeArgs[0].Kind)
	require.Equal(TypeU8, tag.TypeArgs[1].Kind)

	tag, err = ParseStructTag("0xCAFE::m::T")
	require.NoError(err)
	require.Equal("0xcafe::m::T", tag.String())
}

func TestParseStructTagErrors(t *testing.T) {
	tests := []string{
		"",
		"coin::Coin",
		"0x1::coin",
		"0x1::coin::",
		"0x1::coin::Coin<",
		"0x1::coin::Coin<>",
		"0x1::coin::Coin<u8",
		"0x1::coin::Coin<u8>>",
		"0x1::1coin::Coin",
		"0x1:coin::Coin",
		"0xzz::coin::Coin",
		"0x1::coin::Coin extra",
		"0x1::coin::Coin<vector>",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := ParseStructTag(s)
			require.ErrorIs(t, err, ErrInvalidStructTag)
		})
	}
}

func TestParseTypeTag(t *testing.T) {
	require := require.New(t)

	tag, err := ParseTypeTag("vector<0x1::string::String>")
	require.NoError(err)
	require.Equal(TypeVector, tag.Kind)
	require.Len(tag.TypeArgs, 1)
	require.Equal("0x1::string::String", tag.TypeArgs[0].String())
	require.Equal("vector<0x1::string::String>", tag.String())

	tag, err = ParseTypeTag("u64")
	require.NoError(err)
	require.Equal(TypeU64, tag.Kind)

	_, err = ParseTypeTag("u64 u8")
	require.ErrorIs(err, ErrInvalidTypeTag)
}

func nestedVectors(n int) string {
	return "0x1::m::T<" + strings.Repeat("vector<", n) + "u8" + strings.Repeat(">", n) + ">"
}

func TestParseStructTagDepthLimit(t *testing.T) {
	require := require.New(t)

	tag, err := ParseStructTag(nestedVectors(MaxTypeTagDepth - 1))
	require.NoError(err)
	require.Equal(MaxTypeTagDepth, tag.TypeArgs[0].Depth())
	require.NoError(tag.Validate())

	_, err = ParseStructTag(nestedVectors(MaxTypeTagDepth))
	require.ErrorIs(err, ErrInvalidStructTag)
	require.ErrorIs(err, ErrTypeTagTooDeep)

	// Fails at the limit instead of recursing through the whole input.
	_, err = ParseStructTag(nestedVectors(100_000))
	require.ErrorIs(err, ErrTypeTagTooDeep)

	_, err = ParseTypeTag(strings.Repeat("vector<", MaxTypeTagDepth) + "u8" + strings.Repeat(">", MaxTypeTagDepth))
	require.ErrorIs(err, ErrInvalidTypeTag)
	require.ErrorIs(err, ErrTypeTagTooDeep)
}

func TestStructTagValidate(t *testing.T) {
	deep := TypeTag{Kind: TypeU8}
	for i := 0; i < MaxTypeTagDepth; i++ {
		deep = TypeTag{Kind: TypeVector, TypeArgs: []TypeTag{deep}}
	}

	tests := []struct {
		name string
		tag  StructTag
		err  error
	}{
		{
			name: "valid",
			tag: StructTag{Address: StdAddress, Module: "coin", Name: "Coin", TypeArgs: []TypeTag{
				{Kind: TypeVector, TypeArgs: []TypeTag{{Kind: TypeU8}}},
				{Kind: TypeStruct, Address: StdAddress, Module: "string", Name: "String"},
			}},
		},
		{
			name: "bad module",
			tag:  StructTag{Address: StdAddress, Module: "not an ident!", Name: "T"},
			err:  ErrInvalidStructTag,
		},
		{
			name: "empty name",
			tag:  StructTag{Address: StdAddress, Module: "m"},
			err:  ErrInvalidStructTag,
		},
		{
			name: "leading digit",
			tag:  StructTag{Address: StdAddress, Module: "m", Name: "1T"},
			err:  ErrInvalidStructTag,
		},
		{
			name: "unknown kind",
			tag:  StructTag{Address: StdAddress, Module: "m", Name: "T", TypeArgs: []TypeTag{{Kind: 99}}},
			err:  ErrInvalidStructTag,
		},
		{
			name: "vector without element",
			tag:  StructTag{Address: StdAddress, Module: "m", Name: "T", TypeArgs: []TypeTag{{Kind: TypeVector}}},
			err:  ErrInvalidStructTag,
		},
		{
			name: "primitive with fields",
			tag:  StructTag{Address: StdAddress, Module: "m", Name: "T", TypeArgs: []TypeTag{{Kind: TypeU64, Name: "x"}}},
			err:  ErrInvalidStructTag,
		},
		{
			name: "nested struct with bad name",
			tag: StructTag{Address: StdAddress, Module: "m", Name: "T", TypeArgs: []TypeTag{
				{Kind: TypeStruct, Address: StdAddress, Module: "m", Name: "a-b"},
			}},
			err: ErrInvalidStructTag,
		},
		{
			name: "too deep",
			tag:  StructTag{Address: StdAddress, Module: "m", Name: "T", TypeArgs: []TypeTag{deep}},
			err:  ErrTypeTagTooDeep,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tag.Validate()
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTypeTagValidate(t *testing.T) {
	require := require.New(t)

	require.NoError(TypeTag{Kind: TypeAddress}.Validate())
	require.Equal(1, TypeTag{Kind: TypeAddress}.Depth())

	err := TypeTag{Kind: TypeVector, TypeArgs: []TypeTag{{Kind: TypeU8}, {Kind: TypeU8}}}.Validate()
	require.ErrorIs(err, ErrInvalidTypeTag)

	err = TypeTag{Kind: TypeStruct, Module: "m"}.Validate()
	require.ErrorIs(err, ErrInvalidTypeTag)
}
