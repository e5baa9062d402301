// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "errors"

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrGasLimitTooHigh  = errors.New("gas limit too high")
)
