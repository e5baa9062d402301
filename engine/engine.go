// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/json"
	"fmt"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ava-labs/movevm/types"
)

// Engine executes modules and scripts against host provided storage. It
// holds no per-call state and may be used concurrently.
type Engine struct {
	log      logging.Logger
	schedule GasSchedule

	// Keyed by the hash of the code, so entries stay valid across stores.
	modules *cache.LRU[ids.ID, *CompiledModule]
	scripts *cache.LRU[ids.ID, *CompiledScript]
	layouts *lru.Cache
}

func New(cfg Config, log logging.Logger) *Engine {
	layouts, err := lru.New(defaultLayoutCacheSize)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	return &Engine{
		log:      log,
		schedule: cfg.GasSchedule,
		modules:  &cache.LRU[ids.ID, *CompiledModule]{Size: max(cfg.ModuleCacheCapacity, 1)},
		scripts:  &cache.LRU[ids.ID, *CompiledScript]{Size: max(cfg.ScriptCacheCapacity, 1)},
		layouts:  layouts,
	}
}

// Initialize publishes a bundle of modules without charging gas and runs
// their init_module functions. When [allowedPublishers] is non-empty it is a
// borsh encoded list of addresses that may publish besides the standard
// address; the list is persisted for later calls.
func (e *Engine) Initialize(store Storage, api types.GoAPI, envBytes, bundleBytes, publishersBytes []byte) ([]byte, error) {
	env, err := decodeEnv(envBytes)
	if err != nil {
		return nil, err
	}
	bundle, err := types.Unmarshal[types.ModuleBundle](bundleBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: module bundle: %w", ErrInvalidPayload, err)
	}
	publishers, err := e.publishers(store, publishersBytes)
	if err != nil {
		return nil, err
	}

	meter := NewUnmeteredGasMeter()
	modules := make([]*CompiledModule, 0, len(bundle.Codes))
	seen := make(map[string]struct{}, len(bundle.Codes))
	for _, code := range bundle.Codes {
		m, err := DecodeModule(code)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[m.ID()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, m.ID())
		}
		seen[m.ID()] = struct{}{}
		if !allowed(publishers, m.Address) {
			return nil, fmt.Errorf("%w: %s", ErrPublisherForbidden, m.Address)
		}
		existing, err := store.Get(ModuleKey(m.Address, m.Name))
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s already published", ErrDuplicateModule, m.ID())
		}
		if err := store.Set(ModuleKey(m.Address, m.Name), code); err != nil {
			return nil, err
		}
		e.modules.Put(codeID(code), m)
		modules = append(modules, m)
	}
	if len(publishersBytes) > 0 {
		if err := store.Set(AllowedPublishersKey(), publishersBytes); err != nil {
			return nil, err
		}
	}

	result := types.ExecutionResult{}
	for _, m := range modules {
		fn, ok := m.Function(InitModuleFunction)
		if !ok {
			continue
		}
		f := &frame{
			store:    store,
			api:      api,
			meter:    meter,
			schedule: e.schedule,
			env:      env,
			location: m.ID() + "::" + InitModuleFunction,
			self:     m.Address,
			module:   m,
			senders:  []types.AccountAddress{m.Address},
		}
		if err := f.run(fn.Code); err != nil {
			return nil, err
		}
		result.Events = append(result.Events, f.events...)
	}
	result.GasUsed = meter.Used()
	e.log.Debug("initialized",
		zap.Int("modules", len(modules)),
		zap.Int("events", len(result.Events)),
	)
	return types.Marshal(result)
}

// ExecuteContract runs a public entry function of a published module.
func (e *Engine) ExecuteContract(store Storage, api types.GoAPI, envBytes []byte, gasLimit uint64, sendersBytes, payload []byte) ([]byte, error) {
	env, err := decodeEnv(envBytes)
	if err != nil {
		return nil, err
	}
	senders, err := decodeSenders(sendersBytes)
	if err != nil {
		return nil, err
	}
	call, err := types.Unmarshal[types.EntryFunction](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: entry function: %w", ErrInvalidPayload, err)
	}

	meter := NewGasMeter(gasLimit)
	if err := meter.Consume(e.schedule.Intrinsic); err != nil {
		return nil, err
	}
	m, err := e.loadModule(store, meter, call.ModuleAddress, call.ModuleName)
	if err != nil {
		return nil, err
	}
	fn, ok := m.Function(call.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrFunctionNotFound, m.ID(), call.Function)
	}
	if !fn.IsEntry || fn.Visibility != Public {
		return nil, fmt.Errorf("%w: %s::%s", ErrNotEntry, m.ID(), call.Function)
	}
	if err := checkArgs(fn.Params, call.TyArgs, senders, call.Args); err != nil {
		return nil, err
	}

	f := &frame{
		store:    store,
		api:      api,
		meter:    meter,
		schedule: e.schedule,
		env:      env,
		location: m.ID() + "::" + fn.Name,
		self:     m.Address,
		module:   m,
		senders:  senders,
		args:     call.Args,
	}
	if err := f.run(fn.Code); err != nil {
		return nil, err
	}
	return types.Marshal(types.ExecutionResult{
		Events:       f.events,
		ReturnValues: f.returns,
		GasUsed:      meter.Used(),
	})
}

// ExecuteScript runs a one-off script. Scripts read and write the data
// namespace of their first sender.
func (e *Engine) ExecuteScript(store Storage, api types.GoAPI, envBytes []byte, gasLimit uint64, sendersBytes, payload []byte) ([]byte, error) {
	env, err := decodeEnv(envBytes)
	if err != nil {
		return nil, err
	}
	senders, err := decodeSenders(sendersBytes)
	if err != nil {
		return nil, err
	}
	call, err := types.Unmarshal[types.Script](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: script: %w", ErrInvalidPayload, err)
	}

	meter := NewGasMeter(gasLimit)
	if err := meter.Consume(e.schedule.Intrinsic); err != nil {
		return nil, err
	}
	if err := meter.ConsumeBytes(0, e.schedule.LoadPerByte, len(call.Code)); err != nil {
		return nil, err
	}
	s, err := e.loadScript(call.Code)
	if err != nil {
		return nil, err
	}
	if err := checkArgs(s.Params, call.TyArgs, senders, call.Args); err != nil {
		return nil, err
	}

	self := types.ZeroAddress
	if len(senders) > 0 {
		self = senders[0]
	}
	f := &frame{
		store:    store,
		api:      api,
		meter:    meter,
		schedule: e.schedule,
		env:      env,
		location: "script",
		self:     self,
		senders:  senders,
		args:     call.Args,
	}
	if err := f.run(s.Code); err != nil {
		return nil, err
	}
	return types.Marshal(types.ExecutionResult{
		Events:       f.events,
		ReturnValues: f.returns,
		GasUsed:      meter.Used(),
	})
}

// ExecuteViewFunction runs a view function without write access and renders
// its return values as a JSON array.
func (e *Engine) ExecuteViewFunction(store Storage, api types.GoAPI, envBytes []byte, gasLimit uint64, payload []byte) ([]byte, error) {
	env, err := decodeEnv(envBytes)
	if err != nil {
		return nil, err
	}
	call, err := types.Unmarshal[types.ViewFunction](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: view function: %w", ErrInvalidPayload, err)
	}

	meter := NewGasMeter(gasLimit)
	if err := meter.Consume(e.schedule.Intrinsic); err != nil {
		return nil, err
	}
	m, err := e.loadModule(store, meter, call.ModuleAddress, call.ModuleName)
	if err != nil {
		return nil, err
	}
	fn, ok := m.Function(call.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrFunctionNotFound, m.ID(), call.Function)
	}
	if !fn.IsView {
		return nil, fmt.Errorf("%w: %s::%s", ErrNotView, m.ID(), call.Function)
	}
	if err := checkArgs(fn.Params, call.TyArgs, nil, call.Args); err != nil {
		return nil, err
	}

	f := &frame{
		store:    store,
		api:      api,
		meter:    meter,
		schedule: e.schedule,
		env:      env,
		location: m.ID() + "::" + fn.Name,
		self:     m.Address,
		module:   m,
		args:     call.Args,
		readOnly: true,
	}
	if err := f.run(fn.Code); err != nil {
		return nil, err
	}
	if len(f.returns) != len(fn.Returns) {
		return nil, fmt.Errorf("%w: %s returned %d values, declared %d", ErrInvalidArguments, f.location, len(f.returns), len(fn.Returns))
	}

	r := &resolver{load: e.moduleLoader(store), layouts: e.layouts}
	rendered := make([]any, len(f.returns))
	for i, ret := range f.returns {
		v, err := r.render(fn.Returns[i], ret)
		if err != nil {
			return nil, err
		}
		rendered[i] = v
	}
	ret, err := json.Marshal(rendered)
	if err != nil {
		return nil, err
	}
	return types.Marshal(types.ViewOutput{
		Ret:     string(ret),
		Events:  f.events,
		GasUsed: meter.Used(),
	})
}

func (e *Engine) loadModule(store Storage, meter *GasMeter, addr types.AccountAddress, name string) (*CompiledModule, error) {
	key := ModuleKey(addr, name)
	if err := meter.ConsumeBytes(e.schedule.ReadBase, e.schedule.ReadPerByte, len(key)); err != nil {
		return nil, err
	}
	code, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, fmt.Errorf("%w: %s::%s", ErrModuleNotFound, addr, name)
	}
	if err := meter.ConsumeBytes(0, e.schedule.LoadPerByte, len(code)); err != nil {
		return nil, err
	}
	id := codeID(code)
	m, ok := e.modules.Get(id)
	if !ok {
		m, err = DecodeModule(code)
		if err != nil {
			return nil, err
		}
		e.modules.Put(id, m)
	}
	if m.Address != addr || m.Name != name {
		return nil, fmt.Errorf("%w: %s stored under %s::%s", ErrInvalidModule, m.ID(), addr, name)
	}
	return m, nil
}

func (e *Engine) moduleLoader(store Storage) func(types.AccountAddress, string) (*CompiledModule, error) {
	return func(addr types.AccountAddress, name string) (*CompiledModule, error) {
		return e.loadModule(store, NewUnmeteredGasMeter(), addr, name)
	}
}

func (e *Engine) loadScript(code []byte) (*CompiledScript, error) {
	id := codeID(code)
	if s, ok := e.scripts.Get(id); ok {
		return s, nil
	}
	s, err := DecodeScript(code)
	if err != nil {
		return nil, err
	}
	e.scripts.Put(id, s)
	return s, nil
}

func (*Engine) publishers(store Storage, provided []byte) ([]types.AccountAddress, error) {
	raw := provided
	if len(raw) == 0 {
		stored, err := store.Get(AllowedPublishersKey())
		if err != nil {
			return nil, err
		}
		raw = stored
	}
	if len(raw) == 0 {
		return nil, nil
	}
	list, err := types.Unmarshal[[]types.AccountAddress](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: allowed publishers: %w", ErrInvalidPayload, err)
	}
	return list, nil
}

// allowed reports whether [addr] may publish. An empty list allows anyone.
func allowed(publishers []types.AccountAddress, addr types.AccountAddress) bool {
	if len(publishers) == 0 || addr == types.StdAddress {
		return true
	}
	for _, p := range publishers {
		if p == addr {
			return true
		}
	}
	return false
}

func codeID(code []byte) ids.ID {
	return ids.ID(hashing.ComputeHash256Array(code))
}

func decodeEnv(b []byte) (types.Env, error) {
	env, err := types.Unmarshal[types.Env](b)
	if err != nil {
		return types.Env{}, fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}
	return env, nil
}

func decodeSenders(b []byte) ([]types.AccountAddress, error) {
	senders, err := types.Unmarshal[[]types.AccountAddress](b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSenders, err)
	}
	return senders, nil
}

// checkArgs matches a call against declared parameters. Signer parameters
// are bound to senders in order; every other parameter takes one argument.
func checkArgs(params, tyArgs []types.TypeTag, senders []types.AccountAddress, args [][]byte) error {
	if len(tyArgs) != 0 {
		return fmt.Errorf("%w: type arguments are not supported", ErrInvalidArguments)
	}
	signers := 0
	values := make([]types.TypeTag, 0, len(params))
	for _, p := range params {
		if p.Kind == types.TypeSigner {
			signers++
			continue
		}
		values = append(values, p)
	}
	if signers > len(senders) {
		return fmt.Errorf("%w: %d signers required, %d provided", ErrInvalidSenders, signers, len(senders))
	}
	if len(args) != len(values) {
		return fmt.Errorf("%w: %d arguments required, %d provided", ErrInvalidArguments, len(values), len(args))
	}
	for i, p := range values {
		if size, ok := fixedSize(p.Kind); ok && len(args[i]) != size {
			return fmt.Errorf("%w: argument %d is %d bytes, %s needs %d", ErrInvalidArguments, i, len(args[i]), p, size)
		}
	}
	return nil
}

func fixedSize(kind types.TypeTagKind) (int, bool) {
	switch kind {
	case types.TypeBool, types.TypeU8:
		return 1, true
	case types.TypeU16:
		return 2, true
	case types.TypeU32:
		return 4, true
	case types.TypeU64:
		return 8, true
	case types.TypeU128:
		return 16, true
	case types.TypeU256:
		return types.Uint256Len, true
	case types.TypeAddress, types.TypeSigner:
		return types.AddressLen, true
	default:
		return 0, false
	}
}
