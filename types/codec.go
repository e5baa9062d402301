// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/near/borsh-go"
)

var ErrNonCanonical = errors.New("non-canonical encoding")

// Marshal borsh encodes [value].
func Marshal[T any](value T) ([]byte, error) {
	return borsh.Serialize(value)
}

// Unmarshal borsh decodes [data] into a T. Inputs that would not re-encode to
// the same bytes (trailing data, out of range bools) are rejected.
func Unmarshal[T any](data []byte) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed input: %v", r)
		}
	}()
	if err := borsh.Deserialize(&result, data); err != nil {
		return result, err
	}
	encoded, err := borsh.Serialize(result)
	if err != nil {
		return result, err
	}
	if !bytes.Equal(encoded, data) {
		return result, ErrNonCanonical
	}
	return result, nil
}

// MustMarshal is used by tests and fixtures where the value is known to be
// encodable.
func MustMarshal[T any](value T) []byte {
	b, err := Marshal(value)
	if err != nil {
		panic(err)
	}
	return b
}
