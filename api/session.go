// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/ava-labs/movevm/ffi"
	"github.com/ava-labs/movevm/types"
)

var (
	ErrUnknownSession  = errors.New("unknown session")
	ErrNoStore         = errors.New("session has no store")
	ErrNoAPI           = errors.New("session has no chain api")
	ErrNilOutput       = errors.New("nil output pointer")
	ErrNilKey          = errors.New("nil key")
	ErrNilValue        = errors.New("nil value")
	ErrInvalidOrder    = errors.New("invalid scan order")
	ErrUnknownIterator = errors.New("unknown iterator")
	ErrIteratorClosed  = errors.New("iterator closed")
)

// sessionID is shared by the state handles and the iterator call ids.
var (
	sessionID atomic.Uint64

	sessionsLock sync.RWMutex
	sessions     = map[uint64]*Session{}
)

// Session exposes a store and a chain API to the engine for the duration of
// one call. The handles returned by DB and API resolve to the session until
// Close is called.
type Session struct {
	id    uint64
	store types.KVStore
	api   types.GoAPI

	iterators *iteratorRegistry
	closed    atomic.Bool
}

// NewSession registers [store] and [api]. Either may be nil, in which case
// the matching callbacks fail.
func NewSession(store types.KVStore, api types.GoAPI) *Session {
	s := &Session{
		id:        sessionID.Inc(),
		store:     store,
		api:       api,
		iterators: newIteratorRegistry(),
	}

	sessionsLock.Lock()
	sessions[s.id] = s
	sessionsLock.Unlock()
	return s
}

func (s *Session) ID() uint64 {
	return s.id
}

// DB returns the storage table bound to this session.
func (s *Session) DB() ffi.Db {
	return ffi.Db{
		State:  ffi.DbState(s.id),
		Vtable: dbVtable,
	}
}

// API returns the chain API table bound to this session.
func (s *Session) API() ffi.GoAPI {
	return ffi.GoAPI{
		State:  ffi.APIState(s.id),
		Vtable: apiVtable,
	}
}

// OpenIterators returns the number of cursors opened and not yet closed.
func (s *Session) OpenIterators() int {
	return s.iterators.open()
}

// Close ends the call: every cursor still open is released and the handles
// stop resolving. It returns the number of cursors it had to release.
func (s *Session) Close() int {
	if !s.closed.CompareAndSwap(false, true) {
		return 0
	}
	sessionsLock.Lock()
	delete(sessions, s.id)
	sessionsLock.Unlock()
	return s.iterators.releaseAll()
}

func lookupSession(id uint64) (*Session, error) {
	sessionsLock.RLock()
	defer sessionsLock.RUnlock()

	s, ok := sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSession, id)
	}
	return s, nil
}

func storeSession(state ffi.DbState) (*Session, error) {
	s, err := lookupSession(uint64(state))
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s, nil
}
