// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

var _ database.Database = (*Database)(nil)

type Config struct {
	CacheSize                   int64
	BytesPerSync                int
	WALBytesPerSync             int
	MemTableStopWritesThreshold int
	MemTableSize                uint64
	MaxOpenFiles                int
	ConcurrentCompactions       func() int

	// Sync makes every write wait for the WAL to reach disk.
	Sync bool
}

func NewDefaultConfig() Config {
	return Config{
		CacheSize:                   128 * units.MiB,
		BytesPerSync:                512 * units.KiB,
		WALBytesPerSync:             512 * units.KiB,
		MemTableStopWritesThreshold: 8,
		MemTableSize:                16 * units.MiB,
		MaxOpenFiles:                4_096,
		ConcurrentCompactions:       func() int { return runtime.NumCPU() },
	}
}

// Database is a database.Database backed by pebble. It is the persistent
// store used by the CLI and the RPC service.
type Database struct {
	lock   sync.RWMutex
	closed bool

	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	metrics   *metrics

	closing chan struct{}
	wg      sync.WaitGroup
}

// New opens (or creates) the database in [file]. The returned registry
// exposes the pebble metrics and is owned by the caller.
func New(file string, cfg Config) (*Database, *prometheus.Registry, error) {
	registry, metrics, err := newMetrics()
	if err != nil {
		return nil, nil, err
	}
	d := &Database{
		writeOpts: pebble.NoSync,
		metrics:   metrics,
		closing:   make(chan struct{}),
	}
	if cfg.Sync {
		d.writeOpts = pebble.Sync
	}

	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()
	opts := &pebble.Options{
		Cache:                       cache,
		BytesPerSync:                cfg.BytesPerSync,
		WALBytesPerSync:             cfg.WALBytesPerSync,
		MemTableStopWritesThreshold: cfg.MemTableStopWritesThreshold,
		MemTableSize:                cfg.MemTableSize,
		MaxOpenFiles:                cfg.MaxOpenFiles,
		MaxConcurrentCompactions:    cfg.ConcurrentCompactions,
		EventListener: &pebble.EventListener{
			CompactionBegin: d.onCompactionBegin,
			CompactionEnd:   d.onCompactionEnd,
			WriteStallBegin: d.onWriteStallBegin,
			WriteStallEnd:   d.onWriteStallEnd,
		},
	}
	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, nil, err
	}
	d.db = db

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.collectMetrics()
	}()
	return d, registry, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	_, err := d.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return nil, database.ErrClosed
	}
	start := time.Now()
	defer func() {
		d.metrics.getLatency.Observe(float64(time.Since(start)))
	}()

	v, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	value := bytes.Clone(v)
	if value == nil {
		value = []byte{}
	}
	return value, closer.Close()
}

func (d *Database) Put(key []byte, value []byte) error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return database.ErrClosed
	}
	return d.db.Set(key, value, d.writeOpts)
}

func (d *Database) Delete(key []byte) error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return database.ErrClosed
	}
	return d.db.Delete(key, d.writeOpts)
}

func (d *Database) Compact(start []byte, limit []byte) error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return database.ErrClosed
	}
	if limit == nil {
		// pebble rejects an unbounded range, so compact up to the last key.
		it, err := d.db.NewIter(&pebble.IterOptions{LowerBound: start})
		if err != nil {
			return err
		}
		if !it.Last() {
			return it.Close()
		}
		limit = append(bytes.Clone(it.Key()), 0)
		if err := it.Close(); err != nil {
			return err
		}
	}
	return d.db.Compact(start, limit, true)
}

func (d *Database) Close() error {
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return database.ErrClosed
	}
	d.closed = true
	d.lock.Unlock()

	close(d.closing)
	d.wg.Wait()
	return d.db.Close()
}

func (d *Database) HealthCheck(context.Context) (interface{}, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return nil, database.ErrClosed
	}
	return nil, nil
}

func (d *Database) NewBatch() database.Batch {
	return &batch{db: d}
}

func (d *Database) NewIterator() database.Iterator {
	return d.NewIteratorWithStartAndPrefix(nil, nil)
}

func (d *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return d.NewIteratorWithStartAndPrefix(start, nil)
}

func (d *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return d.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (d *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	lower := prefix
	if bytes.Compare(start, prefix) > 0 {
		lower = start
	}
	return d.newIterator(lower, prefixEnd(prefix), false)
}

// NewRangeIterator returns an iterator over [start, end). A nil [end] is
// unbounded. When [reverse] is set, keys are returned in descending order.
func (d *Database) NewRangeIterator(start, end []byte, reverse bool) database.Iterator {
	return d.newIterator(start, end, reverse)
}

func (d *Database) newIterator(lower, upper []byte, reverse bool) database.Iterator {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.closed {
		return &database.IteratorError{Err: database.ErrClosed}
	}
	if upper != nil && bytes.Compare(lower, upper) >= 0 {
		return &iterator{}
	}
	it, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: bytes.Clone(lower),
		UpperBound: bytes.Clone(upper),
	})
	if err != nil {
		return &database.IteratorError{Err: err}
	}
	return &iterator{db: d, it: it, reverse: reverse}
}

type iterator struct {
	db      *Database
	it      *pebble.Iterator
	reverse bool

	started bool
	valid   bool
	err     error

	key   []byte
	value []byte
}

func (i *iterator) Next() bool {
	if i.it == nil || i.err != nil {
		return false
	}
	i.db.lock.RLock()
	closed := i.db.closed
	i.db.lock.RUnlock()
	if closed {
		i.err = database.ErrClosed
		i.release()
		return false
	}

	switch {
	case !i.started && i.reverse:
		i.valid = i.it.Last()
	case !i.started:
		i.valid = i.it.First()
	case i.reverse:
		i.valid = i.it.Prev()
	default:
		i.valid = i.it.Next()
	}
	i.started = true
	if !i.valid {
		i.key, i.value = nil, nil
		return false
	}
	i.key = bytes.Clone(i.it.Key())
	i.value = bytes.Clone(i.it.Value())
	if i.value == nil {
		i.value = []byte{}
	}
	return true
}

func (i *iterator) Error() error {
	if i.err != nil {
		return i.err
	}
	if i.it == nil {
		return nil
	}
	return i.it.Error()
}

func (i *iterator) Key() []byte {
	return i.key
}

func (i *iterator) Value() []byte {
	return i.value
}

func (i *iterator) Release() {
	if i.it == nil {
		return
	}
	i.release()
}

func (i *iterator) release() {
	if err := i.it.Close(); err != nil && i.err == nil {
		i.err = err
	}
	i.it = nil
	i.key, i.value = nil, nil
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	b.db.lock.RLock()
	defer b.db.lock.RUnlock()

	if b.db.closed {
		return database.ErrClosed
	}
	pb := b.db.db.NewBatch()
	defer pb.Close()

	for _, op := range b.Ops {
		var err error
		if op.Delete {
			err = pb.Delete(op.Key, nil)
		} else {
			err = pb.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}
	return pb.Commit(b.db.writeOpts)
}

func (b *batch) Inner() database.Batch {
	return b
}

// prefixEnd returns the first key after every key starting with [prefix], or
// nil when there is none.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
