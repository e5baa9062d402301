// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package movevm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/ffi"
	"github.com/ava-labs/movevm/state"
	"github.com/ava-labs/movevm/trace"
	"github.com/ava-labs/movevm/types"
)

var (
	counterAddr = types.AccountAddress{30: 0xca, 31: 0xfe}
	u64Tag      = types.TypeTag{Kind: types.TypeU64}
	signerTag   = types.TypeTag{Kind: types.TypeSigner}
	testEnv     = types.Env{ChainID: "test", BlockHeight: 1, BlockTimestamp: 100}
)

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func counterModule(t *testing.T) []byte {
	code, err := engine.NewModuleBuilder(counterAddr, "counter").
		Struct("Counter", engine.FieldDef{Name: "value", Type: u64Tag}).
		Function(engine.Function{
			Name:   engine.InitModuleFunction,
			Params: []types.TypeTag{signerTag},
			Code: engine.NewCode().
				Signer(0).PushU64(0).MoveTo("Counter").
				PushString("count").PushU64(0).Op(engine.OpWrite).
				Build(),
		}).
		Function(engine.Function{
			Name:       "increment",
			Visibility: engine.Public,
			IsEntry:    true,
			Params:     []types.TypeTag{signerTag, u64Tag},
			Code: engine.NewCode().
				PushString("count").PushString("count").Op(engine.OpRead).Arg(0).Op(engine.OpAddU64).Op(engine.OpWrite).
				PushString("count").Op(engine.OpRead).Emit("0xcafe::counter::Incremented").
				Build(),
		}).
		Function(engine.Function{
			Name:    "get",
			IsView:  true,
			Returns: []types.TypeTag{u64Tag},
			Code:    engine.NewCode().PushString("count").Op(engine.OpRead).Op(engine.OpReturn).Build(),
		}).
		Build()
	require.NoError(t, err)
	return code
}

func newTestVM(t *testing.T) (*VM, *prometheus.Registry) {
	cfg := NewConfig()
	cfg.ModuleCacheCapacity = 10
	cfg.ScriptCacheCapacity = 10
	registry := prometheus.NewRegistry()
	vm, err := NewVM(cfg, logging.NoLog{}, registry, trace.Noop("movevm"))
	require.NoError(t, err)
	return vm, registry
}

func increment(amount uint64) types.EntryFunction {
	return types.EntryFunction{
		ModuleAddress: counterAddr,
		ModuleName:    "counter",
		Function:      "increment",
		Args:          [][]byte{u64(amount)},
	}
}

func getCount(t *testing.T, vm *VM, store types.KVStore) string {
	output, err := vm.ExecuteViewFunction(context.Background(), store, api.NewEmptyMockAPI(0), testEnv, 1_000_000, types.ViewFunction{
		ModuleAddress: counterAddr,
		ModuleName:    "counter",
		Function:      "get",
	})
	require.NoError(t, err)
	return output.Ret
}

func TestEndToEnd(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := newTestVM(t)
	db := memdb.New()
	chain := api.NewEmptyMockAPI(100)

	_, err := vm.Initialize(ctx, state.NewStaged(db), chain, testEnv, types.NewModuleBundle(counterModule(t)), nil)
	require.NoError(err)

	result, err := vm.ExecuteEntryFunction(ctx, state.NewStaged(db), chain, testEnv, 1_000_000, []types.AccountAddress{counterAddr}, increment(5))
	require.NoError(err)
	require.Len(result.Events, 1)
	require.Equal(u64(5), result.Events[0].Data)
	require.Positive(result.GasUsed)

	// Effects were committed to the database.
	require.Equal(`["5"]`, getCount(t, vm, state.NewStore(db)))

	_, err = vm.ExecuteEntryFunction(ctx, state.NewStaged(db), chain, testEnv, 0, []types.AccountAddress{counterAddr}, increment(5))
	var oog types.OutOfGasError
	require.ErrorAs(err, &oog)
	require.Zero(oog.Limit)
	require.Equal(`["5"]`, getCount(t, vm, state.NewStore(db)))

	require.NoError(vm.Destroy())
	require.ErrorIs(vm.Destroy(), ffi.ErrVMReleased)

	_, err = vm.ExecuteEntryFunction(ctx, state.NewStaged(db), chain, testEnv, 1_000_000, []types.AccountAddress{counterAddr}, increment(1))
	require.ErrorIs(err, ErrExecution)
	require.ErrorContains(err, ffi.ErrVMReleased.Error())
}

func TestFailedExecutionIsAborted(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, registry := newTestVM(t)
	db := memdb.New()
	chain := api.NewEmptyMockAPI(100)
	_, err := vm.Initialize(ctx, state.NewStaged(db), chain, testEnv, types.NewModuleBundle(counterModule(t)), []types.AccountAddress{counterAddr})
	require.NoError(err)

	staged := state.NewStaged(db)
	require.NoError(staged.Set([]byte("scratch"), []byte("x")))
	_, err = vm.ExecuteEntryFunction(ctx, staged, chain, testEnv, 1_000_000, []types.AccountAddress{counterAddr}, types.EntryFunction{
		ModuleAddress: counterAddr,
		ModuleName:    "counter",
		Function:      "missing",
	})
	require.ErrorIs(err, ErrExecution)

	has, err := db.Has([]byte("scratch"))
	require.NoError(err)
	require.False(has)

	require.Equal(1.0, testutil.ToFloat64(vm.metrics.failures.WithLabelValues("execute_contract")))
	require.Equal(1.0, testutil.ToFloat64(vm.metrics.calls.WithLabelValues("initialize")))
	families, err := registry.Gather()
	require.NoError(err)
	require.NotEmpty(families)
}

func TestScript(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := newTestVM(t)
	db := memdb.New()
	chain := api.NewEmptyMockAPI(100)
	chain.AccountAPI.SetAccountInfo(counterAddr, types.AccountInfo{AccountNumber: 3, AccountType: types.ModuleAccount})

	code, err := engine.BuildScript(nil, engine.NewCode().
		Op(engine.OpUnbondTimestamp).Op(engine.OpReturn).
		PushString("k").PushString("v").Op(engine.OpWrite).
		Build())
	require.NoError(err)

	result, err := vm.ExecuteScript(ctx, state.NewStaged(db), chain, testEnv, 1_000_000, nil, types.Script{Code: code})
	require.NoError(err)
	require.Equal([][]byte{u64(100 + uint64(api.UnbondingPeriod.Seconds()))}, result.ReturnValues)

	// Scripts without senders write under the zero address.
	v, err := db.Get(engine.DataKey(types.ZeroAddress, []byte("k")))
	require.NoError(err)
	require.Equal([]byte("v"), v)
}

func TestCodecEntryPoints(t *testing.T) {
	require := require.New(t)

	vm, _ := newTestVM(t)
	module := counterModule(t)

	tag, err := vm.ParseStructTag("0x1::coin::CoinStore<0xcafe::counter::Counter>")
	require.NoError(err)
	require.Equal(types.StdAddress, tag.Address)
	require.Equal("CoinStore", tag.Name)
	s, err := vm.StringifyStructTag(tag)
	require.NoError(err)
	require.Equal("0x1::coin::CoinStore<0xcafe::counter::Counter>", s)

	_, err = vm.ParseStructTag("not a tag")
	require.ErrorIs(err, ErrExecution)

	info, err := vm.ReadModuleInfo(module)
	require.NoError(err)
	require.Equal(types.ModuleInfo{Name: "counter", Address: counterAddr}, info)

	renamed, err := vm.ConvertModuleName(module, "tally")
	require.NoError(err)
	info, err = vm.ReadModuleInfo(renamed)
	require.NoError(err)
	require.Equal("tally", info.Name)

	abi, err := vm.DecodeModuleBytes(module)
	require.NoError(err)
	require.Contains(string(abi), `"increment"`)

	script, err := engine.BuildScript([]types.TypeTag{u64Tag}, engine.NewCode().Build())
	require.NoError(err)
	abi, err = vm.DecodeScriptBytes(script)
	require.NoError(err)
	require.Contains(string(abi), `"main"`)

	db := memdb.New()
	_, err = vm.Initialize(context.Background(), state.NewStaged(db), api.NewEmptyMockAPI(0), testEnv, types.NewModuleBundle(module), nil)
	require.NoError(err)
	store := state.NewStore(db)
	resource, err := store.Get(engine.ResourceKey(counterAddr, types.StructTag{Address: counterAddr, Module: "counter", Name: "Counter"}))
	require.NoError(err)
	rendered, err := vm.DecodeMoveResource(store, "0xcafe::counter::Counter", resource)
	require.NoError(err)
	require.JSONEq(`{"type":"0xcafe::counter::Counter","data":{"value":"0"}}`, string(rendered))

	value, err := vm.DecodeMoveValue(store, "u64", u64(42))
	require.NoError(err)
	require.JSONEq(`"42"`, string(value))
}

func TestMalformedPayloadsDoNotLeak(t *testing.T) {
	require := require.New(t)

	vm, _ := newTestVM(t)
	before := ffi.OutstandingVectors()

	_, err := vm.DecodeModuleBytes([]byte{1, 2, 3})
	require.ErrorIs(err, ErrExecution)
	_, err = vm.DecodeScriptBytes(nil)
	require.ErrorIs(err, ErrExecution)
	_, err = vm.ReadModuleInfo([]byte{0xff})
	require.ErrorIs(err, ErrExecution)
	_, err = vm.ConvertModuleName([]byte{0xff}, "x")
	require.ErrorIs(err, ErrExecution)
	_, err = vm.DecodeMoveValue(state.NewStore(memdb.New()), "u64", []byte{1})
	require.ErrorIs(err, ErrExecution)
	_, err = vm.ExecuteScript(context.Background(), state.NewStaged(memdb.New()), nil, testEnv, 1_000, nil, types.Script{Code: []byte{0xde, 0xad}})
	require.ErrorIs(err, ErrExecution)

	require.Equal(before, ffi.OutstandingVectors())
}

func TestConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseConfig(nil)
	require.NoError(err)
	require.Equal(NewConfig(), cfg)

	cfg, err = ParseConfig([]byte(`{"moduleCacheCapacity":5,"logLevel":"debug"}`))
	require.NoError(err)
	require.Equal(uint(5), cfg.ModuleCacheCapacity)
	require.Equal(uint(defaultScriptCacheCapacity), cfg.ScriptCacheCapacity)

	_, err = ParseConfig([]byte(`{"scriptCacheCapacity":0}`))
	require.ErrorIs(err, ErrInvalidCacheCapacity)
	_, err = ParseConfig([]byte(`{"logLevel":"loud"}`))
	require.Error(err)
}

func TestScriptHostAPI(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	vm, _ := newTestVM(t)
	db := memdb.New()
	chain := types.NewMockGoAPI(ctrl)

	code, err := engine.BuildScript(nil, engine.NewCode().
		Push(counterAddr[:]).Op(engine.OpAccountInfo).Op(engine.OpReturn).
		PushString("k").PushString("v").Op(engine.OpWrite).
		PushString("BTC/USD").Op(engine.OpGetPrice).Op(engine.OpReturn).
		Build())
	require.NoError(err)

	info := types.AccountInfo{AccountNumber: 3, AccountType: types.ModuleAccount}
	chain.EXPECT().GetAccountInfo(counterAddr).Return(info, true, nil).Times(2)
	chain.EXPECT().GetPrice("BTC/USD").Return(types.SerializeUint256(uint256.NewInt(42)), uint64(90), uint64(8), nil)

	result, err := vm.ExecuteScript(ctx, state.NewStaged(db), chain, testEnv, 1_000_000, nil, types.Script{Code: code})
	require.NoError(err)
	require.Len(result.ReturnValues, 2)
	account, err := types.Unmarshal[engine.AccountInfoResult](result.ReturnValues[0])
	require.NoError(err)
	require.True(account.Found)
	require.Equal(info, account.Info)
	price, err := types.Unmarshal[engine.PriceResult](result.ReturnValues[1])
	require.NoError(err)
	require.Equal(uint64(90), price.UpdatedAt)
	require.Equal(uint64(8), price.Decimals)

	// A failing host call aborts the script and its writes.
	require.NoError(db.Delete(engine.DataKey(types.ZeroAddress, []byte("k"))))
	chain.EXPECT().GetPrice("BTC/USD").Return(nil, uint64(0), uint64(0), errors.New("oracle offline"))
	_, err = vm.ExecuteScript(ctx, state.NewStaged(db), chain, testEnv, 1_000_000, nil, types.Script{Code: code})
	require.ErrorIs(err, ErrExecution)
	has, err := db.Has(engine.DataKey(types.ZeroAddress, []byte("k")))
	require.NoError(err)
	require.False(has)
}

func TestConcurrentViews(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := newTestVM(t)
	db := memdb.New()
	chain := api.NewEmptyMockAPI(100)
	_, err := vm.Initialize(ctx, state.NewStaged(db), chain, testEnv, types.NewModuleBundle(counterModule(t)), nil)
	require.NoError(err)

	view := types.ViewFunction{
		ModuleAddress: counterAddr,
		ModuleName:    "counter",
		Function:      "get",
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			for j := 0; j < 10; j++ {
				output, err := vm.ExecuteViewFunction(gctx, state.NewStore(db), chain, testEnv, 1_000_000, view)
				if err != nil {
					return err
				}
				if output.Ret != `["0"]` {
					return fmt.Errorf("unexpected ret %s", output.Ret)
				}
			}
			return nil
		})
	}
	require.NoError(g.Wait())
	require.NoError(vm.Destroy())
}
