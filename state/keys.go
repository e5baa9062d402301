// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Access is a set of ways a call used a storage key.
type Access byte

const (
	Read Access = 1 << iota
	Scan
	Create
	Update
	Delete

	None Access = 0
)

var accessNames = []struct {
	access Access
	name   string
}{
	{Read, "read"},
	{Scan, "scan"},
	{Create, "create"},
	{Update, "update"},
	{Delete, "delete"},
}

// Keys maps a storage key to every access a call made to it.
type Keys map[string]Access

func (k Keys) add(key []byte, a Access) {
	k[string(key)] |= a
}

// Sorted returns the recorded keys in ascending byte order.
func (k Keys) Sorted() []string {
	names := maps.Keys(k)
	slices.Sort(names)
	return names
}

// Has reports whether every access in [other] is in [a].
func (a Access) Has(other Access) bool {
	return other&^a == 0
}

// Mutates reports whether [a] changed the key.
func (a Access) Mutates() bool {
	return a&(Create|Update|Delete) != 0
}

func (a Access) String() string {
	if a == None {
		return "none"
	}
	var parts []string
	for _, n := range accessNames {
		if a.Has(n.access) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
