// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/movevm/ffi"
	"github.com/ava-labs/movevm/types"
)

var (
	dbVtable = ffi.DbVtable{
		ReadDb:   readDb,
		WriteDb:  writeDb,
		RemoveDb: removeDb,
		ScanDb:   scanDb,
	}
	iteratorVtable = ffi.IteratorVtable{
		NextDb:  nextDb,
		CloseDb: closeDb,
	}
	apiVtable = ffi.GoAPIVtable{
		Query:           query,
		GetAccountInfo:  getAccountInfo,
		AmountToShare:   amountToShare,
		ShareToAmount:   shareToAmount,
		UnbondTimestamp: unbondTimestamp,
		GetPrice:        getPrice,
	}
)

// callback runs [f] with the status conventions of the capability tables:
// a failure writes its message to [errOut] and a panic becomes
// GoErrorPanic.
func callback(op string, errOut *ffi.UnmanagedVector, f func() (ffi.GoError, error)) (code int32) {
	defer func() {
		if r := recover(); r != nil {
			code = report(errOut, ffi.GoErrorPanic, fmt.Errorf("panic in %s: %v", op, r))
		}
	}()
	status, err := f()
	if err != nil {
		return report(errOut, status, err)
	}
	return int32(ffi.GoErrorNone)
}

func report(errOut *ffi.UnmanagedVector, status ffi.GoError, err error) int32 {
	if errOut != nil {
		*errOut = ffi.NewUnmanagedVector(false, []byte(err.Error()))
	}
	return int32(status)
}

func readDb(state ffi.DbState, key ffi.U8SliceView, value *ffi.UnmanagedVector, errOut *ffi.UnmanagedVector) int32 {
	return callback("read_db", errOut, func() (ffi.GoError, error) {
		s, err := storeSession(state)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		if value == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		k := key.Read()
		if k == nil {
			return ffi.GoErrorBadArgument, ErrNilKey
		}
		v, err := s.store.Get(k)
		if errors.Is(err, database.ErrNotFound) {
			*value = ffi.NewUnmanagedVector(true, nil)
			return ffi.GoErrorNone, nil
		}
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*value = ffi.NewUnmanagedVector(false, v)
		return ffi.GoErrorNone, nil
	})
}

func writeDb(state ffi.DbState, key ffi.U8SliceView, value ffi.U8SliceView, errOut *ffi.UnmanagedVector) int32 {
	return callback("write_db", errOut, func() (ffi.GoError, error) {
		s, err := storeSession(state)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		k, v := key.Read(), value.Read()
		if k == nil {
			return ffi.GoErrorBadArgument, ErrNilKey
		}
		if v == nil {
			return ffi.GoErrorBadArgument, ErrNilValue
		}
		// Views are borrowed for the call only.
		if err := s.store.Set(bytes.Clone(k), bytes.Clone(v)); err != nil {
			return ffi.GoErrorUser, err
		}
		return ffi.GoErrorNone, nil
	})
}

func removeDb(state ffi.DbState, key ffi.U8SliceView, errOut *ffi.UnmanagedVector) int32 {
	return callback("remove_db", errOut, func() (ffi.GoError, error) {
		s, err := storeSession(state)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		k := key.Read()
		if k == nil {
			return ffi.GoErrorBadArgument, ErrNilKey
		}
		if err := s.store.Delete(bytes.Clone(k)); err != nil {
			return ffi.GoErrorUser, err
		}
		return ffi.GoErrorNone, nil
	})
}

func scanDb(
	state ffi.DbState,
	prefix ffi.U8SliceView,
	start ffi.U8SliceView,
	end ffi.U8SliceView,
	order int32,
	out *ffi.GoIter,
	errOut *ffi.UnmanagedVector,
) int32 {
	return callback("scan_db", errOut, func() (ffi.GoError, error) {
		s, err := storeSession(state)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		if out == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		o := types.Order(order)
		if !o.Valid() {
			return ffi.GoErrorBadArgument, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
		}

		p := bytes.Clone(prefix.Read())
		lower := append(bytes.Clone(p), start.Read()...)
		upper := types.PrefixEnd(p)
		if e := end.Read(); e != nil {
			upper = append(bytes.Clone(p), e...)
		}

		var it database.Iterator
		if o == types.Ascending {
			it = s.store.Iterator(lower, upper)
		} else {
			it = s.store.ReverseIterator(lower, upper)
		}
		*out = ffi.GoIter{
			State: ffi.IteratorReference{
				CallID:        s.id,
				IteratorIndex: s.iterators.add(it),
			},
			Vtable:    iteratorVtable,
			PrefixLen: uint(len(p)),
		}
		return ffi.GoErrorNone, nil
	})
}

func iteratorCursor(ref ffi.IteratorReference) (*cursor, error) {
	s, err := lookupSession(ref.CallID)
	if err != nil {
		return nil, err
	}
	return s.iterators.get(ref.IteratorIndex)
}

func nextDb(ref ffi.IteratorReference, key *ffi.UnmanagedVector, value *ffi.UnmanagedVector, errOut *ffi.UnmanagedVector) int32 {
	return callback("next_db", errOut, func() (ffi.GoError, error) {
		if key == nil || value == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		c, err := iteratorCursor(ref)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		k, v, err := c.next()
		switch {
		case errors.Is(err, ErrIteratorClosed):
			return ffi.GoErrorBadArgument, err
		case err != nil:
			return ffi.GoErrorUser, err
		case k == nil:
			*key = ffi.NewUnmanagedVector(true, nil)
			*value = ffi.NewUnmanagedVector(true, nil)
		default:
			*key = ffi.NewUnmanagedVector(false, k)
			*value = ffi.NewUnmanagedVector(false, v)
		}
		return ffi.GoErrorNone, nil
	})
}

func closeDb(ref ffi.IteratorReference, errOut *ffi.UnmanagedVector) int32 {
	return callback("close_db", errOut, func() (ffi.GoError, error) {
		c, err := iteratorCursor(ref)
		if err != nil {
			return ffi.GoErrorBadArgument, err
		}
		c.close()
		return ffi.GoErrorNone, nil
	})
}

func chainSession(state ffi.APIState) (*Session, ffi.GoError, error) {
	s, err := lookupSession(uint64(state))
	if err != nil {
		return nil, ffi.GoErrorBadArgument, err
	}
	if s.api == nil {
		return nil, ffi.GoErrorUnimplemented, ErrNoAPI
	}
	return s, ffi.GoErrorNone, nil
}

func query(
	state ffi.APIState,
	request ffi.U8SliceView,
	gasBalance uint64,
	data *ffi.UnmanagedVector,
	gasUsed *uint64,
	errOut *ffi.UnmanagedVector,
) int32 {
	return callback("query", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if data == nil || gasUsed == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		resp, used, err := s.api.Query(request.Read(), gasBalance)
		*gasUsed = used
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*data = ffi.NewUnmanagedVector(false, resp)
		return ffi.GoErrorNone, nil
	})
}

func getAccountInfo(
	state ffi.APIState,
	addr ffi.U8SliceView,
	found *bool,
	accountNumber *uint64,
	sequence *uint64,
	accountType *uint8,
	isBlocked *bool,
	errOut *ffi.UnmanagedVector,
) int32 {
	return callback("get_account_info", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if found == nil || accountNumber == nil || sequence == nil || accountType == nil || isBlocked == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		raw := addr.Read()
		if len(raw) != types.AddressLen {
			return ffi.GoErrorBadArgument, fmt.Errorf("%w: %d bytes", types.ErrInvalidAddress, len(raw))
		}
		var address types.AccountAddress
		copy(address[:], raw)

		info, ok, err := s.api.GetAccountInfo(address)
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*found = ok
		*accountNumber = info.AccountNumber
		*sequence = info.Sequence
		*accountType = uint8(info.AccountType)
		*isBlocked = info.IsBlocked
		return ffi.GoErrorNone, nil
	})
}

func amountToShare(state ffi.APIState, validator ffi.U8SliceView, denom ffi.U8SliceView, amount uint64, share *uint64, errOut *ffi.UnmanagedVector) int32 {
	return callback("amount_to_share", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if share == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		r, err := s.api.AmountToShare(validator.Read(), string(denom.Read()), amount)
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*share = r
		return ffi.GoErrorNone, nil
	})
}

func shareToAmount(state ffi.APIState, validator ffi.U8SliceView, denom ffi.U8SliceView, share uint64, amount *uint64, errOut *ffi.UnmanagedVector) int32 {
	return callback("share_to_amount", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if amount == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		r, err := s.api.ShareToAmount(validator.Read(), string(denom.Read()), share)
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*amount = r
		return ffi.GoErrorNone, nil
	})
}

func unbondTimestamp(state ffi.APIState, timestamp *uint64, errOut *ffi.UnmanagedVector) int32 {
	return callback("unbond_timestamp", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if timestamp == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		ts, err := s.api.UnbondTimestamp()
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*timestamp = ts
		return ffi.GoErrorNone, nil
	})
}

func getPrice(
	state ffi.APIState,
	pairID ffi.U8SliceView,
	price *ffi.UnmanagedVector,
	updatedAt *uint64,
	decimals *uint64,
	errOut *ffi.UnmanagedVector,
) int32 {
	return callback("get_price", errOut, func() (ffi.GoError, error) {
		s, code, err := chainSession(state)
		if err != nil {
			return code, err
		}
		if price == nil || updatedAt == nil || decimals == nil {
			return ffi.GoErrorBadArgument, ErrNilOutput
		}
		p, u, d, err := s.api.GetPrice(string(pairID.Read()))
		if err != nil {
			return ffi.GoErrorUser, err
		}
		*price = ffi.NewUnmanagedVector(false, p)
		*updatedAt = u
		*decimals = d
		return ffi.GoErrorNone, nil
	})
}
