// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/movevm/types"
)

var (
	_ types.KVStore            = (*Recorder)(nil)
	_ types.CommittableKVStore = (*CommittableRecorder)(nil)
)

// Recorder wraps a types.KVStore and records how a call used each key. A
// write to an absent key is a Create, to a present key an Update.
type Recorder struct {
	store types.KVStore
	keys  Keys
}

func NewRecorder(store types.KVStore) *Recorder {
	return &Recorder{store: store, keys: Keys{}}
}

func (r *Recorder) Get(key []byte) ([]byte, error) {
	r.keys.add(key, Read)
	return r.store.Get(key)
}

func (r *Recorder) Set(key, value []byte) error {
	_, err := r.store.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		r.keys.add(key, Create)
	case err != nil:
		return err
	default:
		r.keys.add(key, Update)
	}
	return r.store.Set(key, value)
}

func (r *Recorder) Delete(key []byte) error {
	r.keys.add(key, Delete)
	return r.store.Delete(key)
}

func (r *Recorder) Iterator(start, end []byte) database.Iterator {
	return &recordingIterator{Iterator: r.store.Iterator(start, end), keys: r.keys}
}

func (r *Recorder) ReverseIterator(start, end []byte) database.Iterator {
	return &recordingIterator{Iterator: r.store.ReverseIterator(start, end), keys: r.keys}
}

// Keys returns the keys touched so far.
func (r *Recorder) Keys() Keys {
	return r.keys
}

// CommittableRecorder records accesses to a staged store and settles it.
type CommittableRecorder struct {
	*Recorder

	staged types.CommittableKVStore
}

func NewCommittableRecorder(staged types.CommittableKVStore) *CommittableRecorder {
	return &CommittableRecorder{
		Recorder: NewRecorder(staged),
		staged:   staged,
	}
}

func (r *CommittableRecorder) Commit() error {
	return r.staged.Commit()
}

func (r *CommittableRecorder) Abort() {
	r.staged.Abort()
}

type recordingIterator struct {
	database.Iterator

	keys Keys
}

func (i *recordingIterator) Next() bool {
	if !i.Iterator.Next() {
		return false
	}
	i.keys.add(i.Iterator.Key(), Scan)
	return true
}
