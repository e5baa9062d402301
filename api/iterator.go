// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/database"
)

// cursor is a database iterator handed to the engine. Access is serialized
// by lock.
type cursor struct {
	lock      sync.Mutex
	it        database.Iterator
	exhausted bool
	closed    bool
}

// next returns a nil key once the iterator is exhausted, and keeps doing so.
func (c *cursor) next() ([]byte, []byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil, nil, ErrIteratorClosed
	}
	if c.exhausted {
		return nil, nil, nil
	}
	if !c.it.Next() {
		c.exhausted = true
		return nil, nil, c.it.Error()
	}
	return c.it.Key(), c.it.Value(), nil
}

// close reports whether this call released the iterator.
func (c *cursor) close() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	c.it.Release()
	return true
}

// iteratorRegistry holds the cursors of one session. Indices start at 1.
type iteratorRegistry struct {
	lock    sync.Mutex
	cursors map[uint64]*cursor
	last    uint64
}

func newIteratorRegistry() *iteratorRegistry {
	return &iteratorRegistry{cursors: map[uint64]*cursor{}}
}

func (r *iteratorRegistry) add(it database.Iterator) uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.last++
	r.cursors[r.last] = &cursor{it: it}
	return r.last
}

func (r *iteratorRegistry) get(index uint64) (*cursor, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.cursors[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIterator, index)
	}
	return c, nil
}

func (r *iteratorRegistry) open() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	n := 0
	for _, c := range r.cursors {
		c.lock.Lock()
		if !c.closed {
			n++
		}
		c.lock.Unlock()
	}
	return n
}

func (r *iteratorRegistry) releaseAll() int {
	r.lock.Lock()
	cursors := r.cursors
	r.cursors = map[uint64]*cursor{}
	r.lock.Unlock()

	released := 0
	for _, c := range cursors {
		if c.close() {
			released++
		}
	}
	return released
}
