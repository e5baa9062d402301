// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockStakingAPI(t *testing.T) {
	require := require.New(t)

	m := NewMockStakingAPI()
	_, err := m.AmountToShare([]byte("val"), "uinit", 1)
	require.ErrorIs(err, ErrValidatorNotFound)

	m.SetShareRatio([]byte("val"), "uinit", 3, 2)
	_, err = m.ShareToAmount([]byte("val"), "other", 1)
	require.ErrorIs(err, ErrMetadataNotFound)

	share, err := m.AmountToShare([]byte("val"), "uinit", 10)
	require.NoError(err)
	require.Equal(uint64(15), share)

	amount, err := m.ShareToAmount([]byte("val"), "uinit", 15)
	require.NoError(err)
	require.Equal(uint64(10), amount)

	// Products beyond 64 bits do not wrap.
	m.SetShareRatio([]byte("val"), "big", math.MaxUint64, 2)
	share, err = m.AmountToShare([]byte("val"), "big", 4)
	require.NoError(err)
	require.Equal(uint64(math.MaxUint64), share)
}

func TestMockAPIDefaults(t *testing.T) {
	require := require.New(t)

	m := NewEmptyMockAPI(10)
	_, _, err := m.Query([]byte("q"), 1)
	require.ErrorIs(err, ErrQueryUnsupported)

	_, found, err := m.GetAccountInfo([32]byte{})
	require.NoError(err)
	require.False(found)

	_, _, _, err = m.GetPrice("none")
	require.ErrorIs(err, ErrPairNotFound)
}
