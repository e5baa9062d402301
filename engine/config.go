// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

const (
	DefaultModuleCacheCapacity = 128
	DefaultScriptCacheCapacity = 128

	defaultLayoutCacheSize = 1024
	maxValueDepth          = 32

	// MaxCodeSize bounds compiled module and script bytes accepted for
	// decoding.
	MaxCodeSize = 4 << 20
)

type Config struct {
	// Capacities are entry counts.
	ModuleCacheCapacity int
	ScriptCacheCapacity int
	GasSchedule         GasSchedule
}

func NewConfig() Config {
	return Config{
		ModuleCacheCapacity: DefaultModuleCacheCapacity,
		ScriptCacheCapacity: DefaultScriptCacheCapacity,
		GasSchedule:         DefaultGasSchedule,
	}
}

// GasSchedule prices execution. Per byte costs apply to keys and values.
type GasSchedule struct {
	Intrinsic      uint64
	Instruction    uint64
	LoadPerByte    uint64
	ReadBase       uint64
	ReadPerByte    uint64
	WriteBase      uint64
	WritePerByte   uint64
	IterateBase    uint64
	IteratePerItem uint64
	EventBase      uint64
	EventPerByte   uint64
	HostCall       uint64
}

var DefaultGasSchedule = GasSchedule{
	Intrinsic:      100,
	Instruction:    1,
	LoadPerByte:    1,
	ReadBase:       10,
	ReadPerByte:    1,
	WriteBase:      50,
	WritePerByte:   2,
	IterateBase:    20,
	IteratePerItem: 5,
	EventBase:      20,
	EventPerByte:   1,
	HostCall:       30,
}
