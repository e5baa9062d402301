// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

// DbState and APIState are opaque handles owned by the host. The engine only
// passes them back to the functions of the table they came with.
type (
	DbState  uintptr
	APIState uintptr
)

// IteratorReference identifies a cursor issued by the host for one call.
type IteratorReference struct {
	CallID        uint64
	IteratorIndex uint64
}

// IteratorVtable advances and closes a cursor. NextDb reports exhaustion with
// a none key and GoErrorNone.
type IteratorVtable struct {
	NextDb  func(it IteratorReference, key *UnmanagedVector, value *UnmanagedVector, errOut *UnmanagedVector) int32
	CloseDb func(it IteratorReference, errOut *UnmanagedVector) int32
}

// GoIter is the cursor returned by a scan. Keys returned by NextDb carry the
// scan prefix; PrefixLen tells the consumer how much of each key to trim.
type GoIter struct {
	State     IteratorReference
	Vtable    IteratorVtable
	PrefixLen uint
}

type DbVtable struct {
	ReadDb   func(state DbState, key U8SliceView, value *UnmanagedVector, errOut *UnmanagedVector) int32
	WriteDb  func(state DbState, key U8SliceView, value U8SliceView, errOut *UnmanagedVector) int32
	RemoveDb func(state DbState, key U8SliceView, errOut *UnmanagedVector) int32
	// ScanDb opens a cursor over keys under prefix in [prefix+start,
	// prefix+end). Absent bounds are unbounded within the prefix.
	ScanDb func(state DbState, prefix U8SliceView, start U8SliceView, end U8SliceView, order int32, out *GoIter, errOut *UnmanagedVector) int32
}

// Db is the storage capability table.
type Db struct {
	State  DbState
	Vtable DbVtable
}

type GoAPIVtable struct {
	Query           func(state APIState, request U8SliceView, gasBalance uint64, data *UnmanagedVector, gasUsed *uint64, errOut *UnmanagedVector) int32
	GetAccountInfo  func(state APIState, addr U8SliceView, found *bool, accountNumber *uint64, sequence *uint64, accountType *uint8, isBlocked *bool, errOut *UnmanagedVector) int32
	AmountToShare   func(state APIState, validator U8SliceView, denom U8SliceView, amount uint64, share *uint64, errOut *UnmanagedVector) int32
	ShareToAmount   func(state APIState, validator U8SliceView, denom U8SliceView, share uint64, amount *uint64, errOut *UnmanagedVector) int32
	UnbondTimestamp func(state APIState, timestamp *uint64, errOut *UnmanagedVector) int32
	GetPrice        func(state APIState, pairID U8SliceView, price *UnmanagedVector, updatedAt *uint64, decimals *uint64, errOut *UnmanagedVector) int32
}

// GoAPI is the host chain API capability table.
type GoAPI struct {
	State  APIState
	Vtable GoAPIVtable
}
