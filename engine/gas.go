// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"math"

	"github.com/ava-labs/movevm/types"
)

// GasMeter tracks gas used against a limit. An unmetered meter records
// usage but never fails.
type GasMeter struct {
	limit     uint64
	used      uint64
	unmetered bool
}

func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit}
}

func NewUnmeteredGasMeter() *GasMeter {
	return &GasMeter{limit: math.MaxUint64, unmetered: true}
}

// Consume charges [amount]. Once the limit is exceeded the meter is
// exhausted and every later call fails.
func (m *GasMeter) Consume(amount uint64) error {
	used := m.used + amount
	if used < m.used {
		used = math.MaxUint64
	}
	if !m.unmetered && used > m.limit {
		m.used = m.limit
		return types.OutOfGasError{Limit: m.limit}
	}
	m.used = used
	return nil
}

func (m *GasMeter) ConsumeBytes(base, perByte uint64, n int) error {
	return m.Consume(base + perByte*uint64(n))
}

func (m *GasMeter) Used() uint64 {
	return m.used
}

func (m *GasMeter) Remaining() uint64 {
	if m.unmetered {
		return math.MaxUint64
	}
	return m.limit - m.used
}
