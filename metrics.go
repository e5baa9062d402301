// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package movevm

import (
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "movevm"

type metrics struct {
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	outOfGas prometheus.Counter

	gasUsed metric.Averager
	latency metric.Averager
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	gasUsed, err := metric.NewAverager(
		namespace+"_gas_used",
		"gas used by successful executions",
		r,
	)
	if err != nil {
		return nil, err
	}
	latency, err := metric.NewAverager(
		namespace+"_call_latency",
		"time spent in an entry point",
		r,
	)
	if err != nil {
		return nil, err
	}
	m := &metrics{
		gasUsed: gasUsed,
		latency: latency,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls",
			Help:      "number of entry point calls",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures",
			Help:      "number of entry point calls that returned an error",
		}, []string{"op"}),
		outOfGas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "out_of_gas",
			Help:      "number of executions that ran out of gas",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.calls),
		r.Register(m.failures),
		r.Register(m.outOfGas),
	)
	return m, errs.Err
}
