// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const AddressLen = 32

var ErrInvalidAddress = errors.New("invalid address")

// AccountAddress is a 32 byte Move account address.
type AccountAddress [AddressLen]byte

var (
	StdAddress  = AccountAddress{31: 0x1}
	ZeroAddress = AccountAddress{}
)

// ParseAccountAddress accepts hex with or without a 0x prefix. Short forms
// are left padded with zeros.
func ParseAccountAddress(s string) (AccountAddress, error) {
	var addr AccountAddress
	s = strings.TrimPrefix(s, "0x")
	if len(s) == 0 || len(s) > 2*AddressLen {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	copy(addr[AddressLen-len(b):], b)
	return addr, nil
}

// String returns the short form: 0x followed by the hex value with leading
// zeros removed.
func (a AccountAddress) String() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// CanonicalString returns the full 64 digit form.
func (a AccountAddress) CanonicalString() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a AccountAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountAddress) UnmarshalText(text []byte) error {
	addr, err := ParseAccountAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
