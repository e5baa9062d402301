// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/movevm/types"
)

const maxStackSize = 1024

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrArithmetic     = errors.New("arithmetic error")
	ErrResourceExists = errors.New("resource already exists")
	ErrNoResource     = errors.New("resource does not exist")
)

// AbortError is raised by the abort instruction.
type AbortError struct {
	Location string
	Code     uint64
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted in %s with code %d", e.Location, e.Code)
}

// KeyValue is an entry produced by the scan instruction.
type KeyValue struct {
	Key   []byte
	Value []byte
}

type AccountInfoResult struct {
	Found bool
	Info  types.AccountInfo
}

type PriceResult struct {
	Price     []byte
	UpdatedAt uint64
	Decimals  uint64
}

// frame is the state of a single function or script invocation.
type frame struct {
	store    Storage
	api      types.GoAPI
	meter    *GasMeter
	schedule GasSchedule
	env      types.Env

	location string
	// self owns the data namespace.
	self     types.AccountAddress
	module   *CompiledModule
	senders  []types.AccountAddress
	args     [][]byte
	readOnly bool

	stack   [][]byte
	events  []types.Event
	returns [][]byte
}

func (f *frame) push(v []byte) error {
	if len(f.stack) >= maxStackSize {
		return ErrStackOverflow
	}
	f.stack = append(f.stack, v)
	return nil
}

func (f *frame) pop() ([]byte, error) {
	if len(f.stack) == 0 {
		return nil, ErrStackUnderflow
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) popU64() (uint64, error) {
	v, err := f.pop()
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: expected u64, got %d bytes", ErrArithmetic, len(v))
	}
	return binary.LittleEndian.Uint64(v), nil
}

func (f *frame) popAddress() (types.AccountAddress, error) {
	var addr types.AccountAddress
	v, err := f.pop()
	if err != nil {
		return addr, err
	}
	if len(v) != types.AddressLen {
		return addr, fmt.Errorf("%w: %d bytes", types.ErrInvalidAddress, len(v))
	}
	copy(addr[:], v)
	return addr, nil
}

func u64Bytes(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func (f *frame) run(code []Instruction) error {
	for pc, ins := range code {
		if err := f.meter.Consume(f.schedule.Instruction); err != nil {
			return err
		}
		if f.readOnly && ins.Op.writes() {
			return fmt.Errorf("%s at %d: %w", ins.Op, pc, ErrReadOnly)
		}
		done, err := f.step(ins)
		if err != nil {
			var oog types.OutOfGasError
			if errors.As(err, &oog) {
				return err
			}
			var abort *AbortError
			if errors.As(err, &abort) {
				return err
			}
			return fmt.Errorf("%s: %s at %d: %w", f.location, ins.Op, pc, err)
		}
		if done {
			return nil
		}
	}
	return nil
}

// step executes one instruction and reports whether execution stopped.
func (f *frame) step(ins Instruction) (bool, error) {
	switch ins.Op {
	case OpPush:
		return false, f.push(append([]byte{}, ins.Operand...))
	case OpPop:
		_, err := f.pop()
		return false, err
	case OpDup:
		v, err := f.pop()
		if err != nil {
			return false, err
		}
		if err := f.push(v); err != nil {
			return false, err
		}
		return false, f.push(append([]byte{}, v...))
	case OpArg:
		idx := int(ins.Operand[0])
		if idx >= len(f.args) {
			return false, fmt.Errorf("%w: argument %d of %d", ErrInvalidArguments, idx, len(f.args))
		}
		return false, f.push(append([]byte{}, f.args[idx]...))
	case OpSigner:
		idx := int(ins.Operand[0])
		if idx >= len(f.senders) {
			return false, fmt.Errorf("%w: signer %d of %d", ErrInvalidSenders, idx, len(f.senders))
		}
		addr := f.senders[idx]
		return false, f.push(addr[:])
	case OpConcat:
		b, err := f.pop()
		if err != nil {
			return false, err
		}
		a, err := f.pop()
		if err != nil {
			return false, err
		}
		return false, f.push(append(append([]byte{}, a...), b...))
	case OpAddU64, OpSubU64:
		b, err := f.popU64()
		if err != nil {
			return false, err
		}
		a, err := f.popU64()
		if err != nil {
			return false, err
		}
		var r uint64
		if ins.Op == OpAddU64 {
			r = a + b
			if r < a {
				return false, fmt.Errorf("%w: overflow", ErrArithmetic)
			}
		} else {
			if b > a {
				return false, fmt.Errorf("%w: underflow", ErrArithmetic)
			}
			r = a - b
		}
		return false, f.push(u64Bytes(r))
	case OpRead, OpExists:
		key, err := f.pop()
		if err != nil {
			return false, err
		}
		value, err := f.read(DataKey(f.self, key))
		if err != nil {
			return false, err
		}
		if ins.Op == OpExists {
			if value == nil {
				return false, f.push([]byte{0})
			}
			return false, f.push([]byte{1})
		}
		if value == nil {
			value = []byte{}
		}
		return false, f.push(value)
	case OpWrite:
		value, err := f.pop()
		if err != nil {
			return false, err
		}
		key, err := f.pop()
		if err != nil {
			return false, err
		}
		return false, f.write(DataKey(f.self, key), value)
	case OpRemove:
		key, err := f.pop()
		if err != nil {
			return false, err
		}
		k := DataKey(f.self, key)
		if err := f.meter.ConsumeBytes(f.schedule.WriteBase, f.schedule.WritePerByte, len(k)); err != nil {
			return false, err
		}
		return false, f.store.Delete(k)
	case OpScan:
		return false, f.scan(types.Order(ins.Operand[0]))
	case OpMoveTo:
		value, err := f.pop()
		if err != nil {
			return false, err
		}
		addr, err := f.popAddress()
		if err != nil {
			return false, err
		}
		key := ResourceKey(addr, f.module.StructTag(string(ins.Operand)))
		existing, err := f.read(key)
		if err != nil {
			return false, err
		}
		if existing != nil {
			return false, ErrResourceExists
		}
		return false, f.write(key, value)
	case OpBorrowGlobal:
		addr, err := f.popAddress()
		if err != nil {
			return false, err
		}
		value, err := f.read(ResourceKey(addr, f.module.StructTag(string(ins.Operand))))
		if err != nil {
			return false, err
		}
		if value == nil {
			return false, ErrNoResource
		}
		return false, f.push(value)
	case OpEmit:
		data, err := f.pop()
		if err != nil {
			return false, err
		}
		if err := f.meter.ConsumeBytes(f.schedule.EventBase, f.schedule.EventPerByte, len(data)); err != nil {
			return false, err
		}
		f.events = append(f.events, types.Event{
			TypeTag: string(ins.Operand),
			Data:    data,
		})
		return false, nil
	case OpReturn:
		v, err := f.pop()
		if err != nil {
			return false, err
		}
		f.returns = append(f.returns, v)
		return false, nil
	case OpAbort:
		return true, &AbortError{
			Location: f.location,
			Code:     binary.LittleEndian.Uint64(ins.Operand),
		}
	case OpBlockHeight:
		return false, f.push(u64Bytes(f.env.BlockHeight))
	case OpBlockTimestamp:
		return false, f.push(u64Bytes(f.env.BlockTimestamp))
	case OpObjectAddress:
		seed, err := f.pop()
		if err != nil {
			return false, err
		}
		raw, err := f.pop()
		if err != nil {
			return false, err
		}
		if len(raw) != types.AddressLen {
			return false, fmt.Errorf("%w: %d bytes", types.ErrInvalidAddress, len(raw))
		}
		obj := types.CreateObjectAddress(types.AccountAddress(raw), seed)
		return false, f.push(obj[:])
	default:
		return false, f.hostCall(ins.Op)
	}
}

func (f *frame) read(key []byte) ([]byte, error) {
	if err := f.meter.ConsumeBytes(f.schedule.ReadBase, f.schedule.ReadPerByte, len(key)); err != nil {
		return nil, err
	}
	value, err := f.store.Get(key)
	if err != nil {
		return nil, err
	}
	return value, f.meter.ConsumeBytes(0, f.schedule.ReadPerByte, len(value))
}

func (f *frame) write(key, value []byte) error {
	if err := f.meter.ConsumeBytes(f.schedule.WriteBase, f.schedule.WritePerByte, len(key)+len(value)); err != nil {
		return err
	}
	return f.store.Set(key, value)
}

func (f *frame) scan(order types.Order) (err error) {
	end, err := f.pop()
	if err != nil {
		return err
	}
	start, err := f.pop()
	if err != nil {
		return err
	}
	prefix, err := f.pop()
	if err != nil {
		return err
	}
	if len(start) == 0 {
		start = nil
	}
	if len(end) == 0 {
		end = nil
	}
	if err := f.meter.Consume(f.schedule.IterateBase); err != nil {
		return err
	}
	it, err := f.store.Scan(DataKey(f.self, prefix), start, end, order)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	var entries []KeyValue
	for {
		k, v, err := it.Next()
		if err != nil {
			return err
		}
		if k == nil {
			break
		}
		if err := f.meter.ConsumeBytes(f.schedule.IteratePerItem, f.schedule.ReadPerByte, len(k)+len(v)); err != nil {
			return err
		}
		entries = append(entries, KeyValue{Key: k, Value: v})
	}
	encoded, err := types.Marshal(entries)
	if err != nil {
		return err
	}
	return f.push(encoded)
}

func (f *frame) hostCall(op Opcode) error {
	if err := f.meter.Consume(f.schedule.HostCall); err != nil {
		return err
	}
	switch op {
	case OpQuery:
		request, err := f.pop()
		if err != nil {
			return err
		}
		response, gasUsed, err := f.api.Query(request, f.meter.Remaining())
		if gerr := f.meter.Consume(gasUsed); gerr != nil {
			return gerr
		}
		if err != nil {
			return err
		}
		return f.push(response)
	case OpAccountInfo:
		addr, err := f.popAddress()
		if err != nil {
			return err
		}
		info, found, err := f.api.GetAccountInfo(addr)
		if err != nil {
			return err
		}
		encoded, err := types.Marshal(AccountInfoResult{Found: found, Info: info})
		if err != nil {
			return err
		}
		return f.push(encoded)
	case OpAmountToShare, OpShareToAmount:
		amount, err := f.popU64()
		if err != nil {
			return err
		}
		denom, err := f.pop()
		if err != nil {
			return err
		}
		validator, err := f.pop()
		if err != nil {
			return err
		}
		var r uint64
		if op == OpAmountToShare {
			r, err = f.api.AmountToShare(validator, string(denom), amount)
		} else {
			r, err = f.api.ShareToAmount(validator, string(denom), amount)
		}
		if err != nil {
			return err
		}
		return f.push(u64Bytes(r))
	case OpUnbondTimestamp:
		ts, err := f.api.UnbondTimestamp()
		if err != nil {
			return err
		}
		return f.push(u64Bytes(ts))
	case OpGetPrice:
		pair, err := f.pop()
		if err != nil {
			return err
		}
		price, updatedAt, decimals, err := f.api.GetPrice(string(pair))
		if err != nil {
			return err
		}
		encoded, err := types.Marshal(PriceResult{Price: price, UpdatedAt: updatedAt, Decimals: decimals})
		if err != nil {
			return err
		}
		return f.push(encoded)
	default:
		return fmt.Errorf("%w %d", ErrUnknownOpcode, op)
	}
}
