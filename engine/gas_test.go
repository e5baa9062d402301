// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm/types"
)

func TestGasMeter(t *testing.T) {
	require := require.New(t)

	m := NewGasMeter(100)
	require.NoError(m.Consume(60))
	require.NoError(m.ConsumeBytes(10, 2, 5))
	require.Equal(uint64(80), m.Used())
	require.Equal(uint64(20), m.Remaining())

	err := m.Consume(21)
	require.ErrorIs(err, types.OutOfGasError{Limit: 100})
	require.Equal(uint64(100), m.Used())
	require.Zero(m.Remaining())

	// Exhausted meters stay exhausted.
	require.Error(m.Consume(1))
	require.NoError(m.Consume(0))
}

func TestUnmeteredGasMeter(t *testing.T) {
	require := require.New(t)

	m := NewUnmeteredGasMeter()
	require.NoError(m.Consume(math.MaxUint64 - 1))
	require.NoError(m.Consume(10))
	require.Equal(uint64(math.MaxUint64), m.Used())
	require.Equal(uint64(math.MaxUint64), m.Remaining())
}

func TestOpcodeNames(t *testing.T) {
	require := require.New(t)

	for op := Opcode(0); op < opcodeCount; op++ {
		parsed, err := ParseOpcode(op.String())
		require.NoError(err)
		require.Equal(op, parsed)
	}
	_, err := ParseOpcode("jump")
	require.ErrorIs(err, ErrUnknownOpcode)
	require.Equal("opcode(200)", Opcode(200).String())
}
