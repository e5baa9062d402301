// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteBytes(t *testing.T) {
	require := require.New(t)

	filename := filepath.Join(t.TempDir(), "build", "counter.mv")
	require.NoError(WriteFile(filename, []byte{1, 2, 3}))

	b, err := ReadBytes(filename, nil)
	require.NoError(err)
	require.Equal([]byte{1, 2, 3}, b)

	b, err = ReadBytes("0xcafe", nil)
	require.NoError(err)
	require.Equal([]byte{0xca, 0xfe}, b)

	b, err = ReadBytes("-", strings.NewReader("stdin"))
	require.NoError(err)
	require.Equal([]byte("stdin"), b)

	_, err = ReadBytes("-", nil)
	require.ErrorIs(err, ErrUnreadableInput)
	_, err = ReadBytes("0xzz", nil)
	require.ErrorIs(err, ErrUnreadableInput)
	_, err = ReadBytes(filepath.Join(t.TempDir(), "missing.mv"), nil)
	require.ErrorIs(err, ErrUnreadableInput)
}

func TestMapErr(t *testing.T) {
	require := require.New(t)

	out, err := MapErr(strconv.Atoi, []string{"1", "2"})
	require.NoError(err)
	require.Equal([]int{1, 2}, out)

	_, err = MapErr(strconv.Atoi, []string{"1", "x"})
	var numErr *strconv.NumError
	require.ErrorAs(err, &numErr)
}
