// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"bytes"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"

	"github.com/ava-labs/movevm/types"
)

var (
	_ types.KVStore            = (*Store)(nil)
	_ types.CommittableKVStore = (*Staged)(nil)
)

// rangeIteratee is implemented by databases that can iterate a bounded range
// in either direction without buffering.
type rangeIteratee interface {
	NewRangeIterator(start, end []byte, reverse bool) database.Iterator
}

// Store exposes a database.Database as a types.KVStore.
type Store struct {
	db database.Database
}

func NewStore(db database.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	return s.db.Get(key)
}

func (s *Store) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return s.db.Put(key, value)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key)
}

func (s *Store) Iterator(start, end []byte) database.Iterator {
	return iterate(s.db, start, end, false)
}

func (s *Store) ReverseIterator(start, end []byte) database.Iterator {
	return iterate(s.db, start, end, true)
}

// Staged buffers writes in memory on top of a database until Commit. Reads
// and iterators observe the buffered writes.
type Staged struct {
	Store

	vdb *versiondb.Database
}

func NewStaged(db database.Database) *Staged {
	vdb := versiondb.New(db)
	return &Staged{
		Store: Store{db: vdb},
		vdb:   vdb,
	}
}

// Commit writes the buffered changes to the underlying database.
func (s *Staged) Commit() error {
	return s.vdb.Commit()
}

// Abort drops the buffered changes.
func (s *Staged) Abort() {
	s.vdb.Abort()
}

func iterate(db database.Iteratee, start, end []byte, reverse bool) database.Iterator {
	if r, ok := db.(rangeIteratee); ok {
		return r.NewRangeIterator(start, end, reverse)
	}
	it := &boundedIterator{
		Iterator: db.NewIteratorWithStart(start),
		end:      end,
	}
	if !reverse {
		return it
	}
	return newReverseIterator(it)
}

// boundedIterator stops [Iterator] at the first key >= end.
type boundedIterator struct {
	database.Iterator

	end  []byte
	done bool
}

func (b *boundedIterator) Next() bool {
	if b.done {
		return false
	}
	if !b.Iterator.Next() {
		b.done = true
		return false
	}
	if b.end != nil && bytes.Compare(b.Iterator.Key(), b.end) >= 0 {
		b.done = true
		return false
	}
	return true
}

func (b *boundedIterator) Key() []byte {
	if b.done {
		return nil
	}
	return b.Iterator.Key()
}

func (b *boundedIterator) Value() []byte {
	if b.done {
		return nil
	}
	return b.Iterator.Value()
}

// reverseIterator drains a forward iterator and replays it backwards.
type reverseIterator struct {
	keys   [][]byte
	values [][]byte
	err    error
	pos    int
}

func newReverseIterator(it database.Iterator) *reverseIterator {
	defer it.Release()

	r := &reverseIterator{}
	for it.Next() {
		r.keys = append(r.keys, bytes.Clone(it.Key()))
		r.values = append(r.values, bytes.Clone(it.Value()))
	}
	r.err = it.Error()
	r.pos = len(r.keys)
	return r
}

func (r *reverseIterator) Next() bool {
	if r.err != nil || r.pos <= 0 {
		r.pos = -1
		return false
	}
	r.pos--
	return true
}

func (r *reverseIterator) Error() error {
	return r.err
}

func (r *reverseIterator) Key() []byte {
	if r.pos < 0 || r.pos >= len(r.keys) {
		return nil
	}
	return r.keys[r.pos]
}

func (r *reverseIterator) Value() []byte {
	if r.pos < 0 || r.pos >= len(r.values) {
		return nil
	}
	return r.values[r.pos]
}

func (r *reverseIterator) Release() {
	r.keys, r.values = nil, nil
	r.pos = -1
}
