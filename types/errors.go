// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "fmt"

// OutOfGasError is returned when an execution exhausts its gas limit.
type OutOfGasError struct {
	Limit uint64
}

func (e OutOfGasError) Error() string {
	return fmt.Sprintf("out of gas (limit %d)", e.Limit)
}
