// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/google/btree"

	"github.com/ava-labs/movevm/types"
)

const lookupDegree = 16

var _ types.KVStore = (*Lookup)(nil)

type entry struct {
	key   []byte
	value []byte
}

func lessEntry(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Lookup is an ordered in-memory KVStore. Iterators work on a snapshot taken
// when they are created, so the store may be written while they are open.
type Lookup struct {
	lock sync.RWMutex
	tree *btree.BTreeG[entry]
}

func NewLookup() *Lookup {
	return &Lookup{tree: btree.NewG(lookupDegree, lessEntry)}
}

func (l *Lookup) Get(key []byte) ([]byte, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	e, ok := l.tree.Get(entry{key: key})
	if !ok {
		return nil, database.ErrNotFound
	}
	return bytes.Clone(e.value), nil
}

func (l *Lookup) Set(key, value []byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if value == nil {
		value = []byte{}
	}
	l.tree.ReplaceOrInsert(entry{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

func (l *Lookup) Delete(key []byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.tree.Delete(entry{key: key})
	return nil
}

// Len returns the number of stored keys.
func (l *Lookup) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.tree.Len()
}

func (l *Lookup) Iterator(start, end []byte) database.Iterator {
	return &sliceIterator{entries: l.collect(start, end), next: -1}
}

func (l *Lookup) ReverseIterator(start, end []byte) database.Iterator {
	entries := l.collect(start, end)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return &sliceIterator{entries: entries, next: -1}
}

// collect returns the entries in [start, end) in ascending order.
func (l *Lookup) collect(start, end []byte) []entry {
	l.lock.RLock()
	defer l.lock.RUnlock()

	var entries []entry
	visit := func(e entry) bool {
		if end != nil && bytes.Compare(e.key, end) >= 0 {
			return false
		}
		entries = append(entries, e)
		return true
	}
	if start == nil {
		l.tree.Ascend(visit)
	} else {
		l.tree.AscendGreaterOrEqual(entry{key: start}, visit)
	}
	return entries
}

// sliceIterator walks a snapshot of entries.
type sliceIterator struct {
	entries  []entry
	next     int
	released bool
}

func (it *sliceIterator) Next() bool {
	if it.released || it.next+1 >= len(it.entries) {
		it.next = len(it.entries)
		return false
	}
	it.next++
	return true
}

func (it *sliceIterator) Error() error {
	if it.released {
		return database.ErrClosed
	}
	return nil
}

func (it *sliceIterator) Key() []byte {
	if it.next < 0 || it.next >= len(it.entries) {
		return nil
	}
	return it.entries[it.next].key
}

func (it *sliceIterator) Value() []byte {
	if it.next < 0 || it.next >= len(it.entries) {
		return nil
	}
	return it.entries[it.next].value
}

func (it *sliceIterator) Release() {
	it.released = true
	it.entries = nil
}
