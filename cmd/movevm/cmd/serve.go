// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/api"
	"github.com/ava-labs/movevm/rpc"
	"github.com/ava-labs/movevm/server"
	"github.com/ava-labs/movevm/state"
	"github.com/ava-labs/movevm/types"
)

var _ rpc.Backend = (*backend)(nil)

// backend serves views against the committed state database.
type backend struct {
	store  types.KVStore
	chain  types.GoAPI
	env    types.Env
	log    logging.Logger
	tracer trace.Tracer
}

func (b *backend) Store() types.KVStore   { return b.store }
func (b *backend) ChainAPI() types.GoAPI  { return b.chain }
func (b *backend) Env() types.Env         { return b.env }
func (b *backend) Logger() logging.Logger { return b.log }
func (b *backend) Tracer() trace.Tracer   { return b.tracer }

type serveConfig struct {
	http        server.Config
	maxGasLimit uint64
	env         PlanEnv
}

func newServeCmd(c *cli) *cobra.Command {
	cfg := serveConfig{http: server.NewDefaultConfig()}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read only JSON-RPC queries over the state database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, c, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.http.Host, "http-host", cfg.http.Host, "address to listen on")
	cmd.Flags().Uint16Var(&cfg.http.Port, "http-port", cfg.http.Port, "port to listen on")
	cmd.Flags().StringSliceVar(&cfg.http.AllowedOrigins, "allowed-origins", cfg.http.AllowedOrigins, "CORS origins")
	cmd.Flags().StringSliceVar(&cfg.http.AllowedHosts, "allowed-hosts", cfg.http.AllowedHosts, "hosts allowed in the Host header")
	cmd.Flags().DurationVar(&cfg.http.ShutdownTimeout, "shutdown-timeout", cfg.http.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	cmd.Flags().Uint64Var(&cfg.maxGasLimit, "max-gas", rpc.DefaultViewGasLimit, "largest gas limit a view may request")
	cmd.Flags().StringVar(&cfg.env.ChainID, "chain-id", "movevm", "chain id views observe")
	cmd.Flags().Uint64Var(&cfg.env.BlockHeight, "block-height", 0, "block height views observe")
	cmd.Flags().Uint64Var(&cfg.env.BlockTimestamp, "block-timestamp", 0, "block timestamp views observe, in seconds")
	return cmd
}

func serve(ctx context.Context, c *cli, cfg serveConfig) error {
	vm, err := c.VM()
	if err != nil {
		return err
	}
	db, err := c.DB()
	if err != nil {
		return err
	}
	timestamp := cfg.env.BlockTimestamp
	if timestamp == 0 {
		timestamp = uint64(time.Now().Unix())
	}

	handler, err := rpc.NewJSONRPCHandler(rpc.NewJSONRPCServer(vm, &backend{
		store: state.NewStore(db),
		chain: api.NewEmptyMockAPI(timestamp),
		env: types.Env{
			ChainID:        cfg.env.ChainID,
			BlockHeight:    cfg.env.BlockHeight,
			BlockTimestamp: timestamp,
		},
		log:    c.log,
		tracer: c.tracer,
	}, cfg.maxGasLimit))
	if err != nil {
		return err
	}

	s, err := server.New(cfg.http, c.log)
	if err != nil {
		return err
	}
	if err := s.AddRoute(handler, rpc.Name, rpc.JSONRPCEndpoint); err != nil {
		return err
	}
	c.log.Info("serving",
		zap.String("url", s.URL(rpc.Name)+rpc.JSONRPCEndpoint),
	)
	return s.Serve(ctx)
}
