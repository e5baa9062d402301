// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace       = "movevm_store"
	metricsInterval = 10 * time.Second
)

type metrics struct {
	stallStart time.Time
	writeStall metric.Averager
	getLatency metric.Averager

	compactions       *prometheus.CounterVec
	activeCompactions prometheus.Gauge

	// Sampled from pebble.Metrics every metricsInterval.
	tombstones    prometheus.Gauge
	obsoleteBytes *prometheus.GaugeVec
	obsoleteFiles *prometheus.GaugeVec
}

func newMetrics() (*prometheus.Registry, *metrics, error) {
	r := prometheus.NewRegistry()
	writeStall, err := metric.NewAverager(
		namespace+"_write_stall",
		"time spent waiting for disk write",
		r,
	)
	if err != nil {
		return nil, nil, err
	}
	getLatency, err := metric.NewAverager(
		namespace+"_read_latency",
		"time spent waiting for a point read",
		r,
	)
	if err != nil {
		return nil, nil, err
	}
	m := &metrics{
		writeStall: writeStall,
		getLatency: getLatency,
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions",
			Help:      "number of compactions by input level",
		}, []string{"level"}),
		activeCompactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_compactions",
			Help:      "number of running compactions",
		}),
		tombstones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tombstone_count",
			Help:      "approximate count of internal tombstones",
		}),
		obsoleteBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obsolete_bytes",
			Help:      "bytes no longer referenced by the store, by kind (table, zombie, wal)",
		}, []string{"kind"}),
		obsoleteFiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obsolete_files",
			Help:      "files no longer referenced by the store, by kind (table, zombie, wal)",
		}, []string{"kind"}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.compactions),
		r.Register(m.activeCompactions),
		r.Register(m.tombstones),
		r.Register(m.obsoleteBytes),
		r.Register(m.obsoleteFiles),
	)
	return r, m, errs.Err
}

func (d *Database) onCompactionBegin(info pebble.CompactionInfo) {
	d.metrics.activeCompactions.Inc()
	level := "l1+"
	if len(info.Input) > 0 && info.Input[0].Level == 0 {
		level = "l0"
	}
	d.metrics.compactions.WithLabelValues(level).Inc()
}

func (d *Database) onCompactionEnd(pebble.CompactionInfo) {
	d.metrics.activeCompactions.Dec()
}

func (d *Database) onWriteStallBegin(pebble.WriteStallBeginInfo) {
	d.metrics.stallStart = time.Now()
}

func (d *Database) onWriteStallEnd() {
	d.metrics.writeStall.Observe(float64(time.Since(d.metrics.stallStart)))
}

func (d *Database) sampleMetrics() {
	s := d.db.Metrics()
	d.metrics.tombstones.Set(float64(s.Keys.TombstoneCount))
	d.metrics.obsoleteBytes.WithLabelValues("table").Set(float64(s.Table.ObsoleteSize))
	d.metrics.obsoleteBytes.WithLabelValues("zombie").Set(float64(s.Table.ZombieSize))
	d.metrics.obsoleteBytes.WithLabelValues("wal").Set(float64(s.WAL.ObsoletePhysicalSize))
	d.metrics.obsoleteFiles.WithLabelValues("table").Set(float64(s.Table.ObsoleteCount))
	d.metrics.obsoleteFiles.WithLabelValues("zombie").Set(float64(s.Table.ZombieCount))
	d.metrics.obsoleteFiles.WithLabelValues("wal").Set(float64(s.WAL.ObsoleteFiles))
}

func (d *Database) collectMetrics() {
	t := time.NewTicker(metricsInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			d.sampleMetrics()
		case <-d.closing:
			return
		}
	}
}
