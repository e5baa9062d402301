// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ffi

import (
	"errors"
	"fmt"
)

// GoError is the status returned by every callback in the capability
// tables.
//
//	Code            | Number | Meaning
//	----------------|--------|-------------------------------------------
//	None            |  0     | success
//	Panic           |  1     | broken invariant, do not retry
//	BadArgument     |  2     | caller misuse
//	CannotSerialize |  3     | malformed payload
//	User            |  4     | expected failure with a message
//	Unimplemented   |  5     | feature absent
//	Other           | -1     | reserved fallback
type GoError int32

const (
	GoErrorNone            GoError = 0
	GoErrorPanic           GoError = 1
	GoErrorBadArgument     GoError = 2
	GoErrorCannotSerialize GoError = 3
	GoErrorUser            GoError = 4
	GoErrorUnimplemented   GoError = 5
	GoErrorOther           GoError = -1
)

func (e GoError) String() string {
	switch e {
	case GoErrorNone:
		return "None"
	case GoErrorPanic:
		return "Panic"
	case GoErrorBadArgument:
		return "BadArgument"
	case GoErrorCannotSerialize:
		return "CannotSerialize"
	case GoErrorUser:
		return "User"
	case GoErrorUnimplemented:
		return "Unimplemented"
	default:
		return "Other"
	}
}

// ErrnoValue is the status of an entry point call.
type ErrnoValue int32

const (
	ErrnoSuccess  ErrnoValue = 0
	ErrnoOther    ErrnoValue = 1
	ErrnoOutOfGas ErrnoValue = 2
)

var (
	ErrVMReleased = errors.New("vm released")
	ErrNilVM      = errors.New("vm is nil")
	ErrKeyPrefix  = errors.New("key outside of scan prefix")
)

// CallbackError is a non-zero status returned by a host callback, together
// with the message the host attached to it.
type CallbackError struct {
	Op   string
	Code GoError
	Msg  string
}

func (e *CallbackError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s failed with %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed with %s: %s", e.Op, e.Code, e.Msg)
}

func newCallbackError(op string, code int32, msg []byte) error {
	return &CallbackError{
		Op:   op,
		Code: GoError(code),
		Msg:  string(msg),
	}
}
