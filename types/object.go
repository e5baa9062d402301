// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "golang.org/x/crypto/sha3"

// ObjectAddressScheme is the domain separator appended to the preimage of a
// derived object address.
const ObjectAddressScheme byte = 0xFE

// CreateObjectAddress derives the address of the object created by [source]
// with [seed]: sha3-256(source || seed || ObjectAddressScheme).
func CreateObjectAddress(source AccountAddress, seed []byte) AccountAddress {
	h := sha3.New256()
	_, _ = h.Write(source[:])
	_, _ = h.Write(seed)
	_, _ = h.Write([]byte{ObjectAddressScheme})

	var addr AccountAddress
	copy(addr[:], h.Sum(nil))
	return addr
}
