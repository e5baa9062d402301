// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "github.com/ava-labs/movevm/types"

// Storage layout. Every key starts with the owning account address followed
// by a one byte namespace.
const (
	codeSpace     byte = 0x00
	resourceSpace byte = 0x01
	dataSpace     byte = 0x02
	configSpace   byte = 0x03
)

func ModuleKey(addr types.AccountAddress, name string) []byte {
	return makeKey(addr, codeSpace, []byte(name))
}

func ResourceKey(addr types.AccountAddress, tag types.StructTag) []byte {
	return makeKey(addr, resourceSpace, []byte(tag.String()))
}

// DataKey namespaces raw keys written by code running on behalf of [addr].
func DataKey(addr types.AccountAddress, key []byte) []byte {
	return makeKey(addr, dataSpace, key)
}

// AllowedPublishersKey holds the borsh encoded publisher allow list.
func AllowedPublishersKey() []byte {
	return makeKey(types.StdAddress, configSpace, []byte("allowed_publishers"))
}

func makeKey(addr types.AccountAddress, space byte, suffix []byte) []byte {
	k := make([]byte, 0, types.AddressLen+1+len(suffix))
	k = append(k, addr[:]...)
	k = append(k, space)
	return append(k, suffix...)
}
