// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/ava-labs/avalanchego/database"
)

// Order is the traversal direction of a storage scan.
type Order int32

const (
	Ascending  Order = 1
	Descending Order = 2
)

func (o Order) Valid() bool {
	return o == Ascending || o == Descending
}

func (o Order) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unknown"
	}
}

// KVStore is the host-side key-value state the engine reads and writes
// through the storage capability table.
//
// Get returns database.ErrNotFound when the key is missing. Iterators cover
// [start, end); a nil bound is unbounded on that side.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Iterator(start, end []byte) database.Iterator
	ReverseIterator(start, end []byte) database.Iterator
}

// CommittableKVStore is a KVStore whose writes are staged until Commit.
type CommittableKVStore interface {
	KVStore

	Commit() error
	Abort()
}

// AccountType classifies accounts reported by the host.
type AccountType uint8

const (
	BaseAccount AccountType = iota
	ObjectAccount
	TableAccount
	ModuleAccount
)

type AccountInfo struct {
	AccountNumber uint64
	Sequence      uint64
	AccountType   AccountType
	IsBlocked     bool
}

// GoAPI is the host chain API the engine queries through the host-API
// capability table. Every method may fail; failures are reported to the
// engine as user errors.
type GoAPI interface {
	// Query dispatches an opaque request and reports the gas it consumed.
	Query(request []byte, gasBalance uint64) ([]byte, uint64, error)
	GetAccountInfo(addr AccountAddress) (AccountInfo, bool, error)
	AmountToShare(validator []byte, denom string, amount uint64) (uint64, error)
	ShareToAmount(validator []byte, denom string, share uint64) (uint64, error)
	UnbondTimestamp() (uint64, error)
	// GetPrice returns the uint256 encoded price of [pairID].
	GetPrice(pairID string) ([]byte, uint64, uint64, error)
}
