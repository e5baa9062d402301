// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm"

	movetrace "github.com/ava-labs/movevm/trace"
)

const counterSource = `
address: "0x42"
name: counter
structs:
  - name: Counter
    fields:
      - name: value
        type: u64
functions:
  - name: init_module
    params: [signer]
    code:
      - signer 0
      - push u64:7
      - move_to Counter
  - name: echo
    visibility: public
    entry: true
    params: [u64]
    returns: [u64]
    code: [arg 0, return]
  - name: get
    visibility: public
    view: true
    params: [u64]
    returns: [u64]
    code: [arg 0, return]
`

const counterPlan = `
name: counter
description: publish and call the counter module
env:
  chain_id: plan
  block_height: 1
  block_timestamp: 10
accounts:
  - address: "0x42"
    account_number: 3
steps:
  - description: publish
    endpoint: publish
    modules: [counter.yaml]
  - description: echo five
    endpoint: execute
    module: "0x42::counter"
    function: echo
    params:
      - type: u64
        value: 5
    require:
      ret: '["0x0500000000000000"]'
      gas_used:
        operator: ">"
        value: "100"
  - description: view the echoed value
    endpoint: view
    module: "0x42::counter"
    function: get
    params:
      - type: step
        value: step_1
    require:
      ret: '["5"]'
  - description: run out of gas
    endpoint: view
    module: "0x42::counter"
    function: get
    gas_limit: 1
    params:
      - type: u64
        value: 1
    require:
      error: out of gas
`

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		actual    uint64
		assertion ResultAssertion
		expected  bool
		wantErr   error
	}{
		{"IsGreaterThan", 5, ResultAssertion{Operator: string(NumericGt), Value: "3"}, true, nil},
		{"IsNotGreaterThan", 5, ResultAssertion{Operator: string(NumericGt), Value: "10"}, false, nil},
		{"IsLessThan", 5, ResultAssertion{Operator: string(NumericLt), Value: "10"}, true, nil},
		{"IsNotLessThan", 5, ResultAssertion{Operator: string(NumericLt), Value: "2"}, false, nil},
		{"IsEqualTo", 5, ResultAssertion{Operator: string(NumericEq), Value: "5"}, true, nil},
		{"IsNotEqual", 5, ResultAssertion{Operator: string(NumericNe), Value: "3"}, true, nil},
		{"IsGreaterThanOrEqualToSame", 5, ResultAssertion{Operator: string(NumericGe), Value: "5"}, true, nil},
		{"IsLessThanOrEqualToSmaller", 5, ResultAssertion{Operator: string(NumericLe), Value: "1"}, false, nil},
		{"ParseNothingFails", 5, ResultAssertion{Operator: string(NumericEq)}, false, strconv.ErrSyntax},
		{"UnknownOperator", 5, ResultAssertion{Operator: "~", Value: "5"}, false, ErrInvalidStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			result, err := validateAssertion(tt.actual, &tt.assertion)
			require.ErrorIs(err, tt.wantErr)
			require.Equal(tt.expected, result)
		})
	}
}

func TestEncodeParam(t *testing.T) {
	refs := map[string][]byte{"step_0": {1, 2}}
	tests := []struct {
		name    string
		param   Parameter
		want    []byte
		wantErr error
	}{
		{"u64FromJSON", Parameter{Type: Uint64, Value: float64(9)}, binary.LittleEndian.AppendUint64(nil, 9), nil},
		{"u64FromYAML", Parameter{Type: Uint64, Value: 9}, binary.LittleEndian.AppendUint64(nil, 9), nil},
		{"u64FromString", Parameter{Type: Uint64, Value: "18446744073709551615"}, binary.LittleEndian.AppendUint64(nil, ^uint64(0)), nil},
		{"u64Negative", Parameter{Type: Uint64, Value: -1}, nil, ErrFailedParamTypeCast},
		{"u8Overflow", Parameter{Type: Uint8, Value: 256}, nil, ErrFailedParamTypeCast},
		{"bool", Parameter{Type: Bool, Value: true}, []byte{1}, nil},
		{"boolCast", Parameter{Type: Bool, Value: "true"}, nil, ErrFailedParamTypeCast},
		{"address", Parameter{Type: Address, Value: "0x1"}, append(make([]byte, 31), 1), nil},
		{"string", Parameter{Type: String, Value: "hi"}, []byte("hi"), nil},
		{"hex", Parameter{Type: Hex, Value: "0xcafe"}, []byte{0xca, 0xfe}, nil},
		{"stepRef", Parameter{Type: StepRef, Value: "step_0"}, []byte{1, 2}, nil},
		{"unknownStepRef", Parameter{Type: StepRef, Value: "step_9"}, nil, ErrUnknownStepRef},
		{"unknownType", Parameter{Type: "u7", Value: 1}, nil, ErrInvalidParamType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			b, err := encodeParam(tt.param, refs)
			require.ErrorIs(err, tt.wantErr)
			if tt.wantErr == nil {
				require.Equal(tt.want, b)
			}
		})
	}
}

func TestUnmarshalPlan(t *testing.T) {
	require := require.New(t)

	p, err := unmarshalPlan([]byte(counterPlan))
	require.NoError(err)
	require.Equal("counter", p.Name)
	require.Equal(uint64(10), p.Env.BlockTimestamp)
	require.Len(p.Steps, 4)
	require.Equal(EndpointPublish, p.Steps[0].Endpoint)
	require.Equal(uint64(1), p.Steps[3].GasLimit)
	require.NoError(p.Verify())

	p, err = unmarshalPlan([]byte(`{"name":"json","steps":[{"endpoint":"view","module":"0x1::m","function":"f"}]}`))
	require.NoError(err)
	require.Equal("json", p.Name)
	require.NoError(p.Verify())

	p, err = unmarshalPlan([]byte(`{"steps":[{"endpoint":"deploy"}]}`))
	require.NoError(err)
	require.ErrorIs(p.Verify(), ErrInvalidEndpoint)

	p, err = unmarshalPlan([]byte(`{"steps":[]}`))
	require.NoError(err)
	require.ErrorIs(p.Verify(), ErrInvalidPlan)

	_, err = unmarshalPlan([]byte("not a plan"))
	require.ErrorIs(err, ErrInvalidConfigFormat)
}

func TestRunPlan(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "counter.yaml"), []byte(counterSource), 0o600))
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(os.WriteFile(planPath, []byte(counterPlan), 0o600))

	vm, err := movevm.NewVM(movevm.NewConfig(), logging.NoLog{}, prometheus.NewRegistry(), movetrace.Noop("test"))
	require.NoError(err)
	defer func() {
		require.NoError(vm.Destroy())
	}()

	r := &runCmd{c: &cli{log: logging.NoLog{}}, gasLimit: defaultGasLimit}
	require.NoError(r.Init(planPath, nil))
	require.NoError(r.plan.Verify())
	require.Equal(dir, r.dir)

	db := memdb.New()
	require.NoError(r.Run(context.Background(), vm, db))
	require.Contains(r.refs, "step_1")

	// Republishing the same module fails the now unguarded step.
	r.plan.Steps = r.plan.Steps[:1]
	require.ErrorIs(r.Run(context.Background(), vm, db), ErrAssertionFailed)
}

func TestResponseValidate(t *testing.T) {
	require := require.New(t)

	resp := &Response{ID: 1, Ret: `["1"]`, GasUsed: 120}
	require.NoError(resp.validate(nil))
	require.NoError(resp.validate(&Require{Ret: `["1"]`}))
	require.ErrorIs(resp.validate(&Require{Ret: `["2"]`}), ErrAssertionFailed)
	require.ErrorIs(resp.validate(&Require{Error: "aborted"}), ErrAssertionFailed)

	resp.Error = "execution aborted with code 3"
	require.ErrorIs(resp.validate(nil), ErrAssertionFailed)
	require.NoError(resp.validate(&Require{Error: "aborted"}))
}
