// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/neilotoole/errgroup"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/state"
	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"
)

type benchConfig struct {
	module      string
	function    string
	params      []string
	concurrency int
	calls       int
	gasLimit    uint64
}

type benchResult struct {
	Calls       int           `json:"calls"`
	Concurrency int           `json:"concurrency"`
	Elapsed     time.Duration `json:"elapsed"`
	GasUsed     uint64        `json:"gasUsed"`
	P50         time.Duration `json:"p50"`
	P99         time.Duration `json:"p99"`
	Max         time.Duration `json:"max"`
}

func newBenchCmd(c *cli) *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:   "bench [module] [function]",
		Short: "Call a view function concurrently and report latency",
		Long: `Call a view function concurrently and report latency.

Params are typed literals: u64:5, bool:true, addr:0x1, str:hello or 0x hex.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.module = args[0]
			cfg.function = args[1]
			return bench(cmd.Context(), c, cfg)
		},
	}
	cmd.Flags().StringSliceVar(&cfg.params, "params", nil, "typed arguments")
	cmd.Flags().IntVar(&cfg.concurrency, "concurrency", 4, "concurrent callers")
	cmd.Flags().IntVar(&cfg.calls, "calls", 1_000, "total calls")
	cmd.Flags().Uint64Var(&cfg.gasLimit, "gas-limit", defaultGasLimit, "gas limit of each call")
	return cmd
}

func bench(ctx context.Context, c *cli, cfg benchConfig) error {
	if cfg.concurrency < 1 || cfg.calls < 1 {
		return fmt.Errorf("%w: concurrency and calls must be positive", ErrInvalidInput)
	}
	addr, name, err := parseModuleID(cfg.module)
	if err != nil {
		return err
	}
	args := make([][]byte, len(cfg.params))
	for i, p := range cfg.params {
		args[i], err = engine.ParseLiteral(p)
		if err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
	}
	vm, err := c.VM()
	if err != nil {
		return err
	}
	db, err := c.DB()
	if err != nil {
		return err
	}

	var (
		store = state.NewStore(db)
		chain = api.NewEmptyMockAPI(uint64(time.Now().Unix()))
		env   = types.Env{ChainID: "bench", BlockTimestamp: chain.BlockTime}
		view  = types.ViewFunction{
			ModuleAddress: addr,
			ModuleName:    name,
			Function:      cfg.function,
			Args:          args,
		}

		lock      sync.Mutex
		latencies = make([]time.Duration, 0, cfg.calls)
		gasUsed   uint64
	)

	c.log.Info("starting bench",
		zap.String("module", cfg.module),
		zap.String("function", cfg.function),
		zap.Int("concurrency", cfg.concurrency),
		zap.Int("calls", cfg.calls),
	)
	start := time.Now()
	g, gctx := errgroup.WithContextN(ctx, cfg.concurrency, cfg.calls)
	for i := 0; i < cfg.calls; i++ {
		g.Go(func() error {
			callStart := time.Now()
			output, err := vm.ExecuteViewFunction(gctx, store, chain, env, cfg.gasLimit, view)
			if err != nil {
				return err
			}
			elapsed := time.Since(callStart)

			lock.Lock()
			latencies = append(latencies, elapsed)
			gasUsed += output.GasUsed
			lock.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slices.Sort(latencies)
	elapsed := time.Since(start)
	utils.Outf("{{green}}%d views{{/}} in %s ({{yellow}}%.0f/s{{/}})\n", cfg.calls, elapsed, float64(cfg.calls)/elapsed.Seconds())
	return printJSON(benchResult{
		Calls:       cfg.calls,
		Concurrency: cfg.concurrency,
		Elapsed:     elapsed,
		GasUsed:     gasUsed,
		P50:         percentile(latencies, 50),
		P99:         percentile(latencies, 99),
		Max:         latencies[len(latencies)-1],
	})
}

// percentile expects [sorted] to be non-empty and ascending.
func percentile(sorted []time.Duration, p int) time.Duration {
	i := (len(sorted)*p + 99) / 100
	if i > 0 {
		i--
	}
	return sorted[i]
}
