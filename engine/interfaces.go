// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "github.com/ava-labs/movevm/types"

// Storage is the engine's view of the host storage table.
type Storage interface {
	// Get returns nil, nil when [key] does not exist.
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Scan iterates keys under [prefix] in [prefix+start, prefix+end). The
	// returned keys have [prefix] removed.
	Scan(prefix, start, end []byte, order types.Order) (Iterator, error)
}

// Iterator is a cursor opened by Scan. It must be closed.
type Iterator interface {
	// Next returns a nil key once the cursor is exhausted.
	Next() ([]byte, []byte, error)
	Close() error
}
