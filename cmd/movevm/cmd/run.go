// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm"
	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/state"
	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"
)

const defaultGasLimit = 10_000_000

type runCmd struct {
	c    *cli
	plan *Plan
	// directory relative module and script paths are resolved against
	dir string

	gasLimit uint64
	chain    *api.MockAPI
	// maps step_N to the first value returned by step N
	refs map[string][]byte
}

func newRunCmd(c *cli) *cobra.Command {
	r := &runCmd{c: c}
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run a YAML or JSON execution plan against the state database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.Init(args[0], cmd.InOrStdin()); err != nil {
				return err
			}
			if err := r.plan.Verify(); err != nil {
				return err
			}
			vm, err := c.VM()
			if err != nil {
				return err
			}
			db, err := c.DB()
			if err != nil {
				return err
			}
			return r.Run(cmd.Context(), vm, db)
		},
	}
	cmd.Flags().Uint64Var(&r.gasLimit, "gas-limit", defaultGasLimit, "gas limit of steps that do not set one")
	return cmd
}

func (r *runCmd) Init(path string, stdin io.Reader) error {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		// read the plan from stdin
		b, err = io.ReadAll(stdin)
		r.dir = "."
	} else {
		b, err = os.ReadFile(path)
		r.dir = filepath.Dir(path)
	}
	if err != nil {
		return err
	}
	r.plan, err = unmarshalPlan(b)
	return err
}

// Run executes every step in order and prints one response per step. It
// stops at the first step whose response fails its assertions.
func (r *runCmd) Run(ctx context.Context, vm *movevm.VM, db database.Database) error {
	log := r.c.log
	log.Info("running plan",
		zap.String("name", r.plan.Name),
		zap.String("description", r.plan.Description),
	)

	chain, nextAccount, err := r.seedChain()
	if err != nil {
		return err
	}
	r.chain = chain
	r.refs = map[string][]byte{}

	for i, step := range r.plan.Steps {
		log.Info("step",
			zap.Int("step", i),
			zap.String("description", step.Description),
			zap.String("endpoint", string(step.Endpoint)),
			zap.String("function", step.Function),
			zap.Any("params", step.Params),
		)

		env := r.env(i, nextAccount)
		resp := newResponse(i)
		if err := r.runStep(ctx, vm, db, env, &step, resp); err != nil {
			resp.setError(err)
		}
		if len(resp.returns) > 0 {
			r.refs[fmt.Sprintf("step_%d", i)] = resp.returns[0]
		}
		if err := resp.Print(); err != nil {
			return err
		}
		if err := resp.validate(step.Require); err != nil {
			return err
		}
	}
	return nil
}

func (r *runCmd) seedChain() (*api.MockAPI, uint64, error) {
	chain := api.NewEmptyMockAPI(r.plan.Env.BlockTimestamp)
	next := uint64(1)
	for _, a := range r.plan.Accounts {
		addr, err := types.ParseAccountAddress(a.Address)
		if err != nil {
			return nil, 0, err
		}
		accountType, err := parseAccountType(a.Type)
		if err != nil {
			return nil, 0, err
		}
		chain.AccountAPI.SetAccountInfo(addr, types.AccountInfo{
			AccountNumber: a.AccountNumber,
			Sequence:      a.Sequence,
			AccountType:   accountType,
			IsBlocked:     a.Blocked,
		})
		next = max(next, a.AccountNumber+1)
	}
	for _, p := range r.plan.Prices {
		chain.OracleAPI.SetPrice(p.Pair, p.Value, p.UpdatedAt, p.Decimals)
	}
	return chain, next, nil
}

// env derives a distinct transaction hash for every step.
func (r *runCmd) env(step int, nextAccount uint64) types.Env {
	seed := binary.BigEndian.AppendUint64([]byte(r.plan.Name), uint64(step))
	txHash := hashing.ComputeHash256Array(seed)
	return types.Env{
		ChainID:           r.plan.Env.ChainID,
		BlockHeight:       r.plan.Env.BlockHeight,
		BlockTimestamp:    r.plan.Env.BlockTimestamp,
		NextAccountNumber: nextAccount,
		TxHash:            txHash,
		SessionID:         txHash,
	}
}

func (r *runCmd) runStep(
	ctx context.Context,
	vm *movevm.VM,
	db database.Database,
	env types.Env,
	step *Step,
	resp *Response,
) error {
	gasLimit := step.GasLimit
	if gasLimit == 0 {
		gasLimit = r.gasLimit
	}
	args, err := r.args(step.Params)
	if err != nil {
		return err
	}
	tyArgs, err := parseTypeTags(step.TyArgs)
	if err != nil {
		return err
	}
	senders, err := parseAddresses(step.Senders)
	if err != nil {
		return err
	}

	switch step.Endpoint {
	case EndpointPublish:
		bundle := types.ModuleBundle{Codes: make([][]byte, len(step.Modules))}
		for i, m := range step.Modules {
			code, err := r.loadModule(m)
			if err != nil {
				return err
			}
			bundle.Codes[i] = code
		}
		publishers, err := parseAddresses(step.Publishers)
		if err != nil {
			return err
		}
		store := state.NewCommittableRecorder(state.NewStaged(db))
		defer resp.setKeys(store.Keys())
		result, err := vm.Initialize(ctx, store, r.chain, env, bundle, publishers)
		if err != nil {
			return err
		}
		return resp.setResult(result)
	case EndpointExecute:
		addr, name, err := parseModuleID(step.Module)
		if err != nil {
			return err
		}
		store := state.NewCommittableRecorder(state.NewStaged(db))
		defer resp.setKeys(store.Keys())
		result, err := vm.ExecuteEntryFunction(ctx, store, r.chain, env, gasLimit, senders, types.EntryFunction{
			ModuleAddress: addr,
			ModuleName:    name,
			Function:      step.Function,
			TyArgs:        tyArgs,
			Args:          args,
		})
		if err != nil {
			return err
		}
		return resp.setResult(result)
	case EndpointScript:
		code, err := r.loadScript(step.Script)
		if err != nil {
			return err
		}
		store := state.NewCommittableRecorder(state.NewStaged(db))
		defer resp.setKeys(store.Keys())
		result, err := vm.ExecuteScript(ctx, store, r.chain, env, gasLimit, senders, types.Script{
			Code:   code,
			TyArgs: tyArgs,
			Args:   args,
		})
		if err != nil {
			return err
		}
		return resp.setResult(result)
	case EndpointView:
		addr, name, err := parseModuleID(step.Module)
		if err != nil {
			return err
		}
		store := state.NewRecorder(state.NewStore(db))
		defer resp.setKeys(store.Keys())
		output, err := vm.ExecuteViewFunction(ctx, store, r.chain, env, gasLimit, types.ViewFunction{
			ModuleAddress: addr,
			ModuleName:    name,
			Function:      step.Function,
			TyArgs:        tyArgs,
			Args:          args,
		})
		if err != nil {
			return err
		}
		resp.Ret = output.Ret
		resp.setEvents(output.Events)
		resp.GasUsed = output.GasUsed
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidEndpoint, step.Endpoint)
	}
}

func (r *runCmd) args(params []Parameter) ([][]byte, error) {
	args := make([][]byte, len(params))
	for i, p := range params {
		b, err := encodeParam(p, r.refs)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		args[i] = b
	}
	return args, nil
}

// loadModule assembles a .yaml, .yml or .json source and otherwise reads
// compiled bytes.
func (r *runCmd) loadModule(path string) ([]byte, error) {
	if !isSourcePath(path) {
		return utils.ReadBytes(r.resolve(path), nil)
	}
	var src engine.ModuleSource
	if err := readSource(r.resolve(path), nil, &src); err != nil {
		return nil, err
	}
	return engine.AssembleModule(src)
}

func (r *runCmd) loadScript(path string) ([]byte, error) {
	if !isSourcePath(path) {
		return utils.ReadBytes(r.resolve(path), nil)
	}
	var src engine.ScriptSource
	if err := readSource(r.resolve(path), nil, &src); err != nil {
		return nil, err
	}
	return engine.AssembleScript(src)
}

func (r *runCmd) resolve(path string) string {
	if strings.HasPrefix(path, "0x") || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.dir, path)
}

func isSourcePath(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

func (r *Response) setKeys(keys state.Keys) {
	if len(keys) == 0 {
		return
	}
	r.Keys = make(map[string]string, len(keys))
	for _, k := range keys.Sorted() {
		r.Keys["0x"+hex.EncodeToString([]byte(k))] = keys[k].String()
	}
}

func parseTypeTags(tags []string) ([]types.TypeTag, error) {
	out := make([]types.TypeTag, len(tags))
	for i, s := range tags {
		tag, err := types.ParseTypeTag(s)
		if err != nil {
			return nil, err
		}
		out[i] = tag
	}
	return out, nil
}
