// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm"
	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/rpc"
	"github.com/ava-labs/movevm/state"
	"github.com/ava-labs/movevm/types"

	movetrace "github.com/ava-labs/movevm/trace"
)

var (
	counterAddr = types.AccountAddress{31: 0x42}
	u64Tag      = types.TypeTag{Kind: types.TypeU64}
	env         = types.Env{ChainID: "rpc", BlockHeight: 1, BlockTimestamp: 10}
)

type backend struct {
	store *state.Store
	chain *api.MockAPI
}

func (b *backend) Store() types.KVStore  { return b.store }
func (b *backend) ChainAPI() types.GoAPI { return b.chain }
func (*backend) Env() types.Env          { return env }
func (*backend) Logger() logging.Logger  { return logging.NoLog{} }
func (*backend) Tracer() trace.Tracer    { return movetrace.Noop(rpc.Name) }

func counterModule(t *testing.T) []byte {
	code, err := engine.NewModuleBuilder(counterAddr, "counter").
		Struct("Counter", engine.FieldDef{Name: "value", Type: u64Tag}).
		Function(engine.Function{
			Name:   engine.InitModuleFunction,
			Params: []types.TypeTag{{Kind: types.TypeSigner}},
			Code:   engine.NewCode().Signer(0).PushU64(7).MoveTo("Counter").Build(),
		}).
		Function(engine.Function{
			Name:    "get",
			IsView:  true,
			Returns: []types.TypeTag{u64Tag},
			Code:    engine.NewCode().Arg(0).Op(engine.OpReturn).Build(),
			Params:  []types.TypeTag{u64Tag},
		}).
		Build()
	require.NoError(t, err)
	return code
}

func newTestClient(t *testing.T, maxGasLimit uint64) (*rpc.JSONRPCClient, []byte) {
	require := require.New(t)

	vm, err := movevm.NewVM(movevm.NewConfig(), logging.NoLog{}, prometheus.NewRegistry(), movetrace.Noop(rpc.Name))
	require.NoError(err)
	t.Cleanup(func() {
		require.NoError(vm.Destroy())
	})

	db := memdb.New()
	module := counterModule(t)
	_, err = vm.Initialize(context.Background(), state.NewStaged(db), api.NewEmptyMockAPI(0), env, types.NewModuleBundle(module), nil)
	require.NoError(err)

	handler, err := rpc.NewJSONRPCHandler(rpc.NewJSONRPCServer(vm, &backend{
		store: state.NewStore(db),
		chain: api.NewEmptyMockAPI(env.BlockTimestamp),
	}, maxGasLimit))
	require.NoError(err)

	mux := http.NewServeMux()
	mux.Handle(rpc.JSONRPCEndpoint, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return rpc.NewJSONRPCClient(srv.URL + "/"), module
}

func TestPingAndStructTags(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cli, _ := newTestClient(t, rpc.DefaultViewGasLimit)

	ok, err := cli.Ping(ctx)
	require.NoError(err)
	require.True(ok)

	const tag = "0x1::coin::CoinStore<0x42::counter::Counter>"
	parsed, err := cli.ParseStructTag(ctx, tag)
	require.NoError(err)
	require.Equal(types.StdAddress, parsed.Address)
	require.Equal("coin", parsed.Module)
	require.Equal("CoinStore", parsed.Name)
	require.Equal([]string{"0x42::counter::Counter"}, parsed.TypeArgs)

	s, err := cli.StringifyStructTag(ctx, parsed.Encoded)
	require.NoError(err)
	require.Equal(tag, s)

	_, err = cli.ParseStructTag(ctx, "::")
	require.Error(err)
}

func TestModuleQueries(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cli, module := newTestClient(t, rpc.DefaultViewGasLimit)

	info, err := cli.ReadModuleInfo(ctx, module)
	require.NoError(err)
	require.Equal(types.ModuleInfo{Name: "counter", Address: counterAddr}, info)

	abi, err := cli.DecodeModule(ctx, module)
	require.NoError(err)
	require.Contains(string(abi), `"get"`)

	_, err = cli.DecodeScript(ctx, []byte{0x01})
	require.Error(err)

	resource, err := cli.GetResource(ctx, counterAddr, "0x42::counter::Counter")
	require.NoError(err)
	require.JSONEq(`{"type":"0x42::counter::Counter","data":{"value":"7"}}`, string(resource))

	_, err = cli.GetResource(ctx, types.StdAddress, "0x42::counter::Counter")
	require.ErrorContains(err, rpc.ErrResourceNotFound.Error())
}

func TestExecuteView(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cli, _ := newTestClient(t, 1_000_000)

	args := &rpc.ExecuteViewArgs{
		Address:  counterAddr,
		Module:   "counter",
		Function: "get",
		Args:     []types.HexBytes{{3, 0, 0, 0, 0, 0, 0, 0}},
	}
	reply, err := cli.ExecuteView(ctx, args)
	require.NoError(err)
	require.JSONEq(`["3"]`, string(reply.Ret))
	require.Positive(reply.GasUsed)
	require.Empty(reply.Events)

	// The default gas limit exceeds the configured maximum.
	_, err = cli.ExecuteView(ctx, &rpc.ExecuteViewArgs{Address: counterAddr, Module: "counter", Function: "get"})
	require.ErrorContains(err, rpc.ErrGasLimitTooHigh.Error())

	args.GasLimit = 1
	_, err = cli.ExecuteView(ctx, args)
	require.ErrorContains(err, "out of gas")
}
