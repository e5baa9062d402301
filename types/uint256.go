// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"

	"github.com/holiman/uint256"
)

const Uint256Len = 32

var ErrInvalidUint256 = errors.New("invalid uint256 encoding")

// SerializeUint256 encodes [v] as 32 little endian bytes.
func SerializeUint256(v *uint256.Int) []byte {
	be := v.Bytes32()
	out := make([]byte, Uint256Len)
	for i := range be {
		out[i] = be[Uint256Len-1-i]
	}
	return out
}

func DeserializeUint256(b []byte) (*uint256.Int, error) {
	if len(b) != Uint256Len {
		return nil, ErrInvalidUint256
	}
	be := make([]byte, Uint256Len)
	for i := range b {
		be[i] = b[Uint256Len-1-i]
	}
	return new(uint256.Int).SetBytes(be), nil
}
