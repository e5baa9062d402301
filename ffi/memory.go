// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"fmt"
	"sync"
	"unsafe"
)

// ByteSliceView is a borrowed, read only view of bytes owned by the caller.
// It is only valid for the duration of the call it is passed to and must
// never be retained. IsNil distinguishes an absent value from an empty one.
type ByteSliceView struct {
	IsNil bool
	Ptr   *byte
	Len   uint
}

// MakeView borrows [b]. A nil slice produces an absent view; an empty
// non-nil slice produces a present view of length zero.
func MakeView(b []byte) ByteSliceView {
	if b == nil {
		return ByteSliceView{IsNil: true}
	}
	if len(b) == 0 {
		return ByteSliceView{}
	}
	return ByteSliceView{Ptr: &b[0], Len: uint(len(b))}
}

// Read returns the viewed bytes without copying them.
func (v ByteSliceView) Read() []byte {
	return readView(v.IsNil, v.Ptr, v.Len)
}

// U8SliceView is the view type used by callback parameters. It follows the
// same rules as ByteSliceView.
type U8SliceView struct {
	IsNone bool
	Ptr    *byte
	Len    uint
}

func MakeU8View(b []byte) U8SliceView {
	if b == nil {
		return U8SliceView{IsNone: true}
	}
	if len(b) == 0 {
		return U8SliceView{}
	}
	return U8SliceView{Ptr: &b[0], Len: uint(len(b))}
}

func (v U8SliceView) Read() []byte {
	return readView(v.IsNone, v.Ptr, v.Len)
}

func readView(absent bool, ptr *byte, length uint) []byte {
	if absent {
		return nil
	}
	if length == 0 || ptr == nil {
		return []byte{}
	}
	return unsafe.Slice(ptr, length)
}

// UnmanagedVector is an owned buffer whose ownership moves across the
// boundary. Whoever holds it last must destroy it exactly once with
// DestroyUnmanagedVector.
//
// Ptr is a handle into the vector allocator. A zero Ptr means nothing was
// allocated, which is the case for none vectors and for empty vectors.
type UnmanagedVector struct {
	IsNone bool
	Ptr    uintptr
	Len    uint
	Cap    uint
}

// allocator owns the memory backing every UnmanagedVector. Creation and
// destruction both go through it.
type allocator struct {
	lock sync.Mutex
	next uintptr
	live map[uintptr][]byte
}

var vectors = &allocator{live: make(map[uintptr][]byte)}

func (a *allocator) alloc(data []byte) UnmanagedVector {
	buf := make([]byte, len(data))
	copy(buf, data)

	a.lock.Lock()
	defer a.lock.Unlock()

	a.next++
	a.live[a.next] = buf
	return UnmanagedVector{
		Ptr: a.next,
		Len: uint(len(buf)),
		Cap: uint(cap(buf)),
	}
}

func (a *allocator) get(ptr uintptr) ([]byte, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()

	buf, ok := a.live[ptr]
	return buf, ok
}

func (a *allocator) free(ptr uintptr) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	if _, ok := a.live[ptr]; !ok {
		return false
	}
	delete(a.live, ptr)
	return true
}

func (a *allocator) outstanding() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.live)
}

// NewUnmanagedVector creates a none vector when [none] is set (ignoring
// [data]) and an owned copy of [data] otherwise.
func NewUnmanagedVector(none bool, data []byte) UnmanagedVector {
	if none {
		return UnmanagedVector{IsNone: true}
	}
	if len(data) == 0 {
		return UnmanagedVector{}
	}
	return vectors.alloc(data)
}

// DestroyUnmanagedVector frees [v]. Destroying a none or empty vector does
// nothing. Destroying the same allocation twice panics.
func DestroyUnmanagedVector(v UnmanagedVector) {
	if v.IsNone || v.Ptr == 0 {
		return
	}
	if !vectors.free(v.Ptr) {
		panic(fmt.Sprintf("unmanaged vector %d destroyed twice", v.Ptr))
	}
}

// OutstandingVectors returns the number of allocated vectors that have not
// been destroyed yet.
func OutstandingVectors() int {
	return vectors.outstanding()
}

// IsNil reports whether the vector is none.
func (v UnmanagedVector) IsNil() bool {
	return v.IsNone
}

// Read borrows the bytes of a vector the caller still owns. The result is
// nil for a none vector and must not be used after the vector is destroyed.
func (v UnmanagedVector) Read() []byte {
	if v.IsNone {
		return nil
	}
	if v.Ptr == 0 {
		return []byte{}
	}
	buf, ok := vectors.get(v.Ptr)
	if !ok {
		panic(fmt.Sprintf("unmanaged vector %d used after destroy", v.Ptr))
	}
	return buf[:v.Len]
}

// CopyAndDestroy copies the vector out into Go memory and destroys it. A
// none vector becomes nil; an empty vector becomes an empty, non-nil slice.
func CopyAndDestroy(v UnmanagedVector) []byte {
	if v.IsNone {
		return nil
	}
	src := v.Read()
	out := make([]byte, len(src))
	copy(out, src)
	DestroyUnmanagedVector(v)
	return out
}

// Consume is CopyAndDestroy for optional callers: it accepts a nil pointer
// and resets the vector it consumed.
func Consume(v *UnmanagedVector) []byte {
	if v == nil {
		return nil
	}
	out := CopyAndDestroy(*v)
	*v = UnmanagedVector{IsNone: true}
	return out
}
