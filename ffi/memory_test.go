// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmanagedVector(t *testing.T) {
	require := require.New(t)
	before := OutstandingVectors()

	v := NewUnmanagedVector(false, []byte("hello"))
	require.False(v.IsNil())
	require.Equal(uint(5), v.Len)
	require.Equal(before+1, OutstandingVectors())
	require.Equal([]byte("hello"), v.Read())

	require.Equal([]byte("hello"), CopyAndDestroy(v))
	require.Equal(before, OutstandingVectors())
	require.Panics(func() { DestroyUnmanagedVector(v) })
	require.Panics(func() { v.Read() })
}

func TestUnmanagedVectorNoneAndEmpty(t *testing.T) {
	require := require.New(t)
	before := OutstandingVectors()

	none := NewUnmanagedVector(true, []byte("ignored"))
	require.True(none.IsNil())
	require.Nil(none.Read())
	require.Nil(CopyAndDestroy(none))

	empty := NewUnmanagedVector(false, nil)
	require.False(empty.IsNil())
	require.Equal([]byte{}, empty.Read())
	require.Equal([]byte{}, CopyAndDestroy(empty))

	// Neither allocates, so destroying them again is harmless.
	DestroyUnmanagedVector(none)
	DestroyUnmanagedVector(empty)
	require.Equal(before, OutstandingVectors())
}

func TestUnmanagedVectorCopies(t *testing.T) {
	require := require.New(t)

	data := []byte{1, 2, 3}
	v := NewUnmanagedVector(false, data)
	data[0] = 9
	require.Equal([]byte{1, 2, 3}, Consume(&v))
	require.True(v.IsNil())
	require.Nil(Consume(&v))
	require.Nil(Consume(nil))
}

func TestSliceViews(t *testing.T) {
	require := require.New(t)

	require.Nil(MakeView(nil).Read())
	require.True(MakeView(nil).IsNil)
	require.Equal([]byte{}, MakeView([]byte{}).Read())
	require.False(MakeView([]byte{}).IsNil)

	data := []byte("abc")
	view := MakeView(data)
	require.Equal(data, view.Read())
	// Views borrow.
	data[0] = 'x'
	require.Equal([]byte("xbc"), view.Read())

	require.Nil(MakeU8View(nil).Read())
	require.Equal([]byte{}, MakeU8View([]byte{}).Read())
	require.Equal([]byte("xbc"), MakeU8View(data).Read())
}

func TestGoErrorString(t *testing.T) {
	require := require.New(t)

	require.Equal("None", GoErrorNone.String())
	require.Equal("BadArgument", GoErrorBadArgument.String())
	require.Equal("Other", GoErrorOther.String())
	require.Equal("Other", GoError(77).String())
	require.Equal("read_db failed with User: boom", newCallbackError("read_db", int32(GoErrorUser), []byte("boom")).Error())
}
