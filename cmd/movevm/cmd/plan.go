// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"
)

type Plan struct {
	// The name of the plan.
	Name string `json:"name" yaml:"name"`
	// A description of the plan.
	Description string `json:"description" yaml:"description"`
	// The block every step runs in.
	Env PlanEnv `json:"env" yaml:"env"`
	// Accounts known to the chain API.
	Accounts []Account `json:"accounts" yaml:"accounts"`
	// Oracle prices known to the chain API.
	Prices []Price `json:"prices" yaml:"prices"`
	// Steps performed in order against the state database.
	Steps []Step `json:"steps" yaml:"steps"`
}

type PlanEnv struct {
	ChainID        string `json:"chainID" yaml:"chain_id"`
	BlockHeight    uint64 `json:"blockHeight" yaml:"block_height"`
	BlockTimestamp uint64 `json:"blockTimestamp" yaml:"block_timestamp"`
}

type Account struct {
	Address       string `json:"address" yaml:"address"`
	AccountNumber uint64 `json:"accountNumber" yaml:"account_number"`
	Sequence      uint64 `json:"sequence" yaml:"sequence"`
	// One of base, object, table or module. Defaults to base.
	Type    string `json:"type" yaml:"type"`
	Blocked bool   `json:"blocked" yaml:"blocked"`
}

type Price struct {
	Pair      string `json:"pair" yaml:"pair"`
	Value     uint64 `json:"value" yaml:"value"`
	UpdatedAt uint64 `json:"updatedAt" yaml:"updated_at"`
	Decimals  uint64 `json:"decimals" yaml:"decimals"`
}

type Step struct {
	// Description of the step.
	Description string `json:"description" yaml:"description"`
	// The engine entry point to call. (required)
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint"`
	// Module sources or compiled modules to publish.
	Modules []string `json:"modules" yaml:"modules"`
	// Addresses allowed to publish after this step.
	Publishers []string `json:"publishers" yaml:"publishers"`
	// The module called by execute and view, e.g. 0x42::counter.
	Module string `json:"module" yaml:"module"`
	// The function called by execute and view.
	Function string `json:"function" yaml:"function"`
	// A script source or compiled script run by the script endpoint.
	Script string `json:"script" yaml:"script"`
	// Transaction signers.
	Senders []string `json:"senders" yaml:"senders"`
	TyArgs  []string `json:"tyArgs" yaml:"ty_args"`
	// Zero uses the plan default.
	GasLimit uint64 `json:"gasLimit" yaml:"gas_limit"`
	// The arguments passed to the function or script.
	Params []Parameter `json:"params" yaml:"params"`
	// Define required assertions against this step.
	Require *Require `json:"require,omitempty" yaml:"require,omitempty"`
}

type Endpoint string

const (
	// Publish a module bundle and run each init function.
	EndpointPublish Endpoint = "publish"
	// Run an entry function and commit its writes.
	EndpointExecute Endpoint = "execute"
	// Run a script and commit its writes.
	EndpointScript Endpoint = "script"
	// Run a view function. Nothing is written.
	EndpointView Endpoint = "view"
)

type Parameter struct {
	// The optional name of the parameter. This is only used for readability.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// The type of the parameter. (required)
	Type Type `json:"type" yaml:"type"`
	// The value of the parameter. (required)
	Value interface{} `json:"value" yaml:"value"`
}

type Type string

const (
	Bool    Type = "bool"
	Uint8   Type = "u8"
	Uint64  Type = "u64"
	Address Type = "address"
	String  Type = "string"
	Hex     Type = "hex"
	// StepRef passes the first return value of step_N.
	StepRef Type = "step"
)

type Require struct {
	// The exact rendered return value.
	Ret string `json:"ret,omitempty" yaml:"ret,omitempty"`
	// Assertion against the gas used by the step.
	GasUsed *ResultAssertion `json:"gasUsed,omitempty" yaml:"gas_used,omitempty"`
	// A substring the step error must contain. The step must fail when set.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

type ResultAssertion struct {
	// The operator to use for the assertion.
	Operator string `json:"operator" yaml:"operator"`
	// The value to compare against.
	Value string `json:"value" yaml:"value"`
}

type Operator string

const (
	NumericGt Operator = ">"
	NumericLt Operator = "<"
	NumericGe Operator = ">="
	NumericLe Operator = "<="
	NumericEq Operator = "=="
	NumericNe Operator = "!="
)

type Event struct {
	TypeTag string         `json:"typeTag"`
	Data    types.HexBytes `json:"data"`
}

type Response struct {
	// The index of the step that generated this response.
	ID int `json:"id"`
	// Rendered return values. Views return engine JSON, other endpoints a
	// JSON list of hex encoded values.
	Ret     string  `json:"ret,omitempty"`
	Events  []Event `json:"events,omitempty"`
	GasUsed uint64  `json:"gasUsed"`
	// Keys touched by the step and how.
	Keys map[string]string `json:"keys,omitempty"`
	// The error message if available.
	Error string `json:"error,omitempty"`

	returns [][]byte
}

func newResponse(id int) *Response {
	return &Response{ID: id}
}

func (r *Response) setResult(result types.ExecutionResult) error {
	rendered := make([]types.HexBytes, len(result.ReturnValues))
	for i, v := range result.ReturnValues {
		rendered[i] = v
	}
	ret, err := json.Marshal(rendered)
	if err != nil {
		return err
	}
	r.Ret = string(ret)
	r.setEvents(result.Events)
	r.GasUsed = result.GasUsed
	r.returns = result.ReturnValues
	return nil
}

func (r *Response) setEvents(events []types.Event) {
	r.Events = make([]Event, len(events))
	for i, e := range events {
		r.Events[i] = Event{TypeTag: e.TypeTag, Data: e.Data}
	}
}

func (r *Response) setError(err error) {
	r.Error = err.Error()
}

func (r *Response) Print() error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	utils.Outf("%s\n", b)
	return nil
}

// validate checks [r] against [req].
func (r *Response) validate(req *Require) error {
	if req == nil {
		if r.Error != "" {
			return fmt.Errorf("%w: step %d: %s", ErrAssertionFailed, r.ID, r.Error)
		}
		return nil
	}
	if req.Error != "" {
		if !strings.Contains(r.Error, req.Error) {
			return fmt.Errorf("%w: step %d: error %q does not contain %q", ErrAssertionFailed, r.ID, r.Error, req.Error)
		}
		return nil
	}
	if r.Error != "" {
		return fmt.Errorf("%w: step %d: %s", ErrAssertionFailed, r.ID, r.Error)
	}
	if req.Ret != "" && req.Ret != r.Ret {
		return fmt.Errorf("%w: step %d: ret %s, expected %s", ErrAssertionFailed, r.ID, r.Ret, req.Ret)
	}
	if req.GasUsed != nil {
		ok, err := validateAssertion(r.GasUsed, req.GasUsed)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: step %d: gas used %d %s %s", ErrAssertionFailed, r.ID, r.GasUsed, req.GasUsed.Operator, req.GasUsed.Value)
		}
	}
	return nil
}

// validateAssertion validates the assertion against the actual value.
func validateAssertion(actual uint64, assertion *ResultAssertion) (bool, error) {
	value, err := strconv.ParseUint(assertion.Value, 10, 64)
	if err != nil {
		return false, err
	}

	switch Operator(assertion.Operator) {
	case NumericGt:
		return actual > value, nil
	case NumericLt:
		return actual < value, nil
	case NumericGe:
		return actual >= value, nil
	case NumericLe:
		return actual <= value, nil
	case NumericEq:
		return actual == value, nil
	case NumericNe:
		return actual != value, nil
	default:
		return false, fmt.Errorf("%w: operator %q", ErrInvalidStep, assertion.Operator)
	}
}

func unmarshalPlan(b []byte) (*Plan, error) {
	var p Plan
	if err := unmarshalSource(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) Verify() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, "no steps found")
	}
	for i, step := range p.Steps {
		if err := verifyEndpoint(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func verifyEndpoint(i int, step *Step) error {
	switch step.Endpoint {
	case EndpointPublish:
		if len(step.Modules) == 0 {
			return fmt.Errorf("%w %d: no modules", ErrInvalidStep, i)
		}
	case EndpointExecute, EndpointView:
		if step.Module == "" || step.Function == "" {
			return fmt.Errorf("%w %d: module and function are required", ErrInvalidStep, i)
		}
	case EndpointScript:
		if step.Script == "" {
			return fmt.Errorf("%w %d: no script", ErrInvalidStep, i)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidEndpoint, step.Endpoint)
	}
	return nil
}

// encodeParam converts a plan parameter to engine argument bytes. step_N
// references are resolved through [refs].
func encodeParam(param Parameter, refs map[string][]byte) ([]byte, error) {
	switch param.Type {
	case Bool:
		v, ok := param.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFailedParamTypeCast, param.Type)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case Uint8:
		v, err := toUint64(param.Value)
		if err != nil {
			return nil, err
		}
		if v > 255 {
			return nil, fmt.Errorf("%w: %d overflows u8", ErrFailedParamTypeCast, v)
		}
		return []byte{byte(v)}, nil
	case Uint64:
		v, err := toUint64(param.Value)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint64(nil, v), nil
	case Address:
		s, ok := param.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFailedParamTypeCast, param.Type)
		}
		addr, err := types.ParseAccountAddress(s)
		if err != nil {
			return nil, err
		}
		return addr[:], nil
	case String:
		s, ok := param.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFailedParamTypeCast, param.Type)
		}
		return []byte(s), nil
	case Hex:
		s, ok := param.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFailedParamTypeCast, param.Type)
		}
		return types.LoadHex(s, -1)
	case StepRef:
		s, ok := param.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFailedParamTypeCast, param.Type)
		}
		v, ok := refs[s]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStepRef, s)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidParamType, param.Type)
	}
}

// toUint64 accepts the number forms produced by the JSON and YAML decoders
// as well as decimal strings for values above 2^53.
func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("%w: %v", ErrFailedParamTypeCast, n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: negative %d", ErrFailedParamTypeCast, n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case string:
		return strconv.ParseUint(n, 10, 64)
	default:
		return 0, fmt.Errorf("%w: %T", ErrFailedParamTypeCast, v)
	}
}

func parseAccountType(s string) (types.AccountType, error) {
	switch s {
	case "", "base":
		return types.BaseAccount, nil
	case "object":
		return types.ObjectAccount, nil
	case "table":
		return types.TableAccount, nil
	case "module":
		return types.ModuleAccount, nil
	default:
		return 0, fmt.Errorf("%w: account type %q", ErrInvalidPlan, s)
	}
}

func parseAddresses(addrs []string) ([]types.AccountAddress, error) {
	out := make([]types.AccountAddress, len(addrs))
	for i, s := range addrs {
		addr, err := types.ParseAccountAddress(s)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// parseModuleID splits 0x42::counter.
func parseModuleID(id string) (types.AccountAddress, string, error) {
	addr, name, ok := strings.Cut(id, "::")
	if !ok || name == "" {
		return types.AccountAddress{}, "", fmt.Errorf("%w: module %q", ErrInvalidStep, id)
	}
	a, err := types.ParseAccountAddress(addr)
	if err != nil {
		return types.AccountAddress{}, "", err
	}
	return a, name, nil
}
