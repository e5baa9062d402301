// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ava-labs/avalanchego/api/metrics"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/corruptabledb"
	"github.com/ava-labs/avalanchego/utils/perms"

	"github.com/ava-labs/movevm/pebble"
)

const (
	// StateDB holds published modules, resources and contract data.
	StateDB = "statedb"

	// LayoutVersion is bumped whenever the engine key layout changes.
	LayoutVersion uint32 = 1
)

// Shorter than an account address, so no engine key can equal it.
var layoutKey = []byte("movevm/layout")

var ErrIncompatibleLayout = errors.New("state database has an incompatible key layout")

// New opens the pebble database [namespace] under [dataDir] and registers
// its metrics with [gatherer] under the same name.
func New(cfg pebble.Config, dataDir string, namespace string, gatherer metrics.MultiGatherer) (database.Database, error) {
	path := filepath.Join(dataDir, namespace)
	if err := os.MkdirAll(path, perms.ReadWriteExecute); err != nil {
		return nil, err
	}

	db, registry, err := pebble.New(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := gatherer.Register(namespace, registry); err != nil {
		_ = db.Close()
		return nil, err
	}
	return corruptabledb.New(db), nil
}

// OpenState opens the engine state database. A fresh database is stamped
// with [LayoutVersion]; an existing one must carry the same version.
func OpenState(cfg pebble.Config, dataDir string, gatherer metrics.MultiGatherer) (database.Database, error) {
	db, err := New(cfg, dataDir, StateDB, gatherer)
	if err != nil {
		return nil, err
	}
	if err := checkLayout(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func checkLayout(db database.KeyValueReaderWriter) error {
	v, err := db.Get(layoutKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return db.Put(layoutKey, binary.BigEndian.AppendUint32(nil, LayoutVersion))
	case err != nil:
		return err
	case len(v) != 4:
		return fmt.Errorf("%w: malformed marker", ErrIncompatibleLayout)
	}
	if found := binary.BigEndian.Uint32(v); found != LayoutVersion {
		return fmt.Errorf("%w: found %d, expected %d", ErrIncompatibleLayout, found, LayoutVersion)
	}
	return nil
}
