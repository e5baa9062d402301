// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/types"
)

var (
	_ engine.Storage  = (*dbStorage)(nil)
	_ engine.Iterator = (*dbIterator)(nil)
	_ types.GoAPI     = (*chainAPI)(nil)
)

// dbStorage drives a storage table on behalf of the engine. Every vector the
// host hands back is copied out and destroyed before returning.
type dbStorage struct {
	db Db
}

func newStorage(db Db) *dbStorage {
	return &dbStorage{db: db}
}

func (s *dbStorage) Get(key []byte) ([]byte, error) {
	value := UnmanagedVector{IsNone: true}
	errOut := UnmanagedVector{IsNone: true}
	code := s.db.Vtable.ReadDb(s.db.State, MakeU8View(key), &value, &errOut)
	out := Consume(&value)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return nil, newCallbackError("read_db", code, msg)
	}
	return out, nil
}

func (s *dbStorage) Set(key, value []byte) error {
	errOut := UnmanagedVector{IsNone: true}
	code := s.db.Vtable.WriteDb(s.db.State, MakeU8View(key), MakeU8View(value), &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return newCallbackError("write_db", code, msg)
	}
	return nil
}

func (s *dbStorage) Delete(key []byte) error {
	errOut := UnmanagedVector{IsNone: true}
	code := s.db.Vtable.RemoveDb(s.db.State, MakeU8View(key), &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return newCallbackError("remove_db", code, msg)
	}
	return nil
}

func (s *dbStorage) Scan(prefix, start, end []byte, order types.Order) (engine.Iterator, error) {
	if prefix == nil {
		prefix = []byte{}
	}
	var it GoIter
	errOut := UnmanagedVector{IsNone: true}
	code := s.db.Vtable.ScanDb(
		s.db.State,
		MakeU8View(prefix),
		MakeU8View(start),
		MakeU8View(end),
		int32(order),
		&it,
		&errOut,
	)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return nil, newCallbackError("scan_db", code, msg)
	}
	if it.PrefixLen != uint(len(prefix)) {
		return nil, errors.Join(
			fmt.Errorf("%w: prefix length %d, expected %d", ErrKeyPrefix, it.PrefixLen, len(prefix)),
			it.close(),
		)
	}
	return &dbIterator{
		it:     it,
		prefix: append([]byte{}, prefix...),
	}, nil
}

type dbIterator struct {
	it     GoIter
	prefix []byte
	closed bool
}

func (i *dbIterator) Next() ([]byte, []byte, error) {
	if i.closed {
		return nil, nil, nil
	}
	key := UnmanagedVector{IsNone: true}
	value := UnmanagedVector{IsNone: true}
	errOut := UnmanagedVector{IsNone: true}
	code := i.it.Vtable.NextDb(i.it.State, &key, &value, &errOut)
	k := Consume(&key)
	v := Consume(&value)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return nil, nil, newCallbackError("next_db", code, msg)
	}
	if k == nil {
		return nil, nil, nil
	}
	if uint(len(k)) < i.it.PrefixLen || !bytes.HasPrefix(k, i.prefix) {
		return nil, nil, fmt.Errorf("%w: %x", ErrKeyPrefix, k)
	}
	return k[i.it.PrefixLen:], v, nil
}

func (i *dbIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.it.close()
}

func (it GoIter) close() error {
	if it.Vtable.CloseDb == nil {
		return nil
	}
	errOut := UnmanagedVector{IsNone: true}
	code := it.Vtable.CloseDb(it.State, &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return newCallbackError("close_db", code, msg)
	}
	return nil
}

// chainAPI drives a host API table on behalf of the engine.
type chainAPI struct {
	api GoAPI
}

func newChainAPI(api GoAPI) *chainAPI {
	return &chainAPI{api: api}
}

func (c *chainAPI) Query(request []byte, gasBalance uint64) ([]byte, uint64, error) {
	var gasUsed uint64
	data := UnmanagedVector{IsNone: true}
	errOut := UnmanagedVector{IsNone: true}
	code := c.api.Vtable.Query(c.api.State, MakeU8View(request), gasBalance, &data, &gasUsed, &errOut)
	out := Consume(&data)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return nil, gasUsed, newCallbackError("query", code, msg)
	}
	return out, gasUsed, nil
}

func (c *chainAPI) GetAccountInfo(addr types.AccountAddress) (types.AccountInfo, bool, error) {
	var (
		found         bool
		accountNumber uint64
		sequence      uint64
		accountType   uint8
		isBlocked     bool
		errOut        = UnmanagedVector{IsNone: true}
	)
	code := c.api.Vtable.GetAccountInfo(
		c.api.State,
		MakeU8View(addr[:]),
		&found,
		&accountNumber,
		&sequence,
		&accountType,
		&isBlocked,
		&errOut,
	)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return types.AccountInfo{}, false, newCallbackError("get_account_info", code, msg)
	}
	return types.AccountInfo{
		AccountNumber: accountNumber,
		Sequence:      sequence,
		AccountType:   types.AccountType(accountType),
		IsBlocked:     isBlocked,
	}, found, nil
}

func (c *chainAPI) AmountToShare(validator []byte, denom string, amount uint64) (uint64, error) {
	var share uint64
	errOut := UnmanagedVector{IsNone: true}
	code := c.api.Vtable.AmountToShare(c.api.State, MakeU8View(validator), MakeU8View([]byte(denom)), amount, &share, &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return 0, newCallbackError("amount_to_share", code, msg)
	}
	return share, nil
}

func (c *chainAPI) ShareToAmount(validator []byte, denom string, share uint64) (uint64, error) {
	var amount uint64
	errOut := UnmanagedVector{IsNone: true}
	code := c.api.Vtable.ShareToAmount(c.api.State, MakeU8View(validator), MakeU8View([]byte(denom)), share, &amount, &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return 0, newCallbackError("share_to_amount", code, msg)
	}
	return amount, nil
}

func (c *chainAPI) UnbondTimestamp() (uint64, error) {
	var ts uint64
	errOut := UnmanagedVector{IsNone: true}
	code := c.api.Vtable.UnbondTimestamp(c.api.State, &ts, &errOut)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return 0, newCallbackError("unbond_timestamp", code, msg)
	}
	return ts, nil
}

func (c *chainAPI) GetPrice(pairID string) ([]byte, uint64, uint64, error) {
	var updatedAt, decimals uint64
	price := UnmanagedVector{IsNone: true}
	errOut := UnmanagedVector{IsNone: true}
	code := c.api.Vtable.GetPrice(c.api.State, MakeU8View([]byte(pairID)), &price, &updatedAt, &decimals, &errOut)
	out := Consume(&price)
	msg := Consume(&errOut)
	if code != int32(GoErrorNone) {
		return nil, 0, 0, newCallbackError("get_price", code, msg)
	}
	return out, updatedAt, decimals, nil
}
