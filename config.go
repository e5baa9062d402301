// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package movevm

import (
	"encoding/json"
	"errors"

	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/movevm/trace"
)

const (
	defaultModuleCacheCapacity = 1_000
	defaultScriptCacheCapacity = 100
)

var ErrInvalidCacheCapacity = errors.New("cache capacity must be greater than 0")

type Config struct {
	ModuleCacheCapacity uint         `json:"moduleCacheCapacity"`
	ScriptCacheCapacity uint         `json:"scriptCacheCapacity"`
	LogLevel            string       `json:"logLevel"`
	TraceConfig         trace.Config `json:"traceConfig"`
}

func NewConfig() Config {
	return Config{
		ModuleCacheCapacity: defaultModuleCacheCapacity,
		ScriptCacheCapacity: defaultScriptCacheCapacity,
		LogLevel:            logging.Info.LowerString(),
		TraceConfig:         trace.NewDefaultConfig(),
	}
}

// ParseConfig overlays the JSON in [b] on the defaults. Empty input returns
// the defaults.
func ParseConfig(b []byte) (Config, error) {
	c := NewConfig()
	if len(b) > 0 {
		if err := json.Unmarshal(b, &c); err != nil {
			return Config{}, err
		}
	}
	return c, c.Verify()
}

func (c Config) Verify() error {
	if c.ModuleCacheCapacity == 0 || c.ScriptCacheCapacity == 0 {
		return ErrInvalidCacheCapacity
	}
	if _, err := logging.ToLevel(c.LogLevel); err != nil {
		return err
	}
	return c.TraceConfig.Verify()
}
