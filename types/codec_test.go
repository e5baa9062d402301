// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalRejectsMalformed(t *testing.T) {
	require := require.New(t)

	env := Env{
		ChainID:        "movevm-1",
		BlockHeight:    100,
		BlockTimestamp: 1_700_000_000,
	}
	encoded, err := Marshal(env)
	require.NoError(err)

	decoded, err := Unmarshal[Env](encoded)
	require.NoError(err)
	require.Equal(env, decoded)

	_, err = Unmarshal[Env](append(encoded, 0x00))
	require.ErrorIs(err, ErrNonCanonical)

	_, err = Unmarshal[Env](encoded[:len(encoded)-1])
	require.Error(err)

	_, err = Unmarshal[Env](nil)
	require.Error(err)

	_, err = Unmarshal[EntryFunction]([]byte{0xff, 0xff, 0xff})
	require.Error(err)
}

func TestAccountAddress(t *testing.T) {
	require := require.New(t)

	addr, err := ParseAccountAddress("0x1")
	require.NoError(err)
	require.Equal(StdAddress, addr)
	require.Equal("0x1", addr.String())
	require.Equal("0x0000000000000000000000000000000000000000000000000000000000000001", addr.CanonicalString())

	addr, err = ParseAccountAddress("cafe")
	require.NoError(err)
	require.Equal("0xcafe", addr.String())

	require.Equal("0x0", ZeroAddress.String())

	_, err = ParseAccountAddress("0x")
	require.ErrorIs(err, ErrInvalidAddress)
	_, err = ParseAccountAddress("0xg1")
	require.ErrorIs(err, ErrInvalidAddress)

	text, err := addr.MarshalText()
	require.NoError(err)
	var other AccountAddress
	require.NoError(other.UnmarshalText(text))
	require.Equal(addr, other)
}

func TestUint256(t *testing.T) {
	require := require.New(t)

	v := uint256.NewInt(1_000_000)
	b := SerializeUint256(v)
	require.Len(b, Uint256Len)
	require.Equal(byte(0x40), b[0])
	require.Equal(byte(0x42), b[1])
	require.Equal(byte(0x0f), b[2])

	out, err := DeserializeUint256(b)
	require.NoError(err)
	require.Equal(v, out)

	_, err = DeserializeUint256(b[:31])
	require.ErrorIs(err, ErrInvalidUint256)
}
