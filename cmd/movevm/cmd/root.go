// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ava-labs/avalanchego/api/metrics"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm"
	"github.com/ava-labs/movevm/pebble"
	"github.com/ava-labs/movevm/storage"
	"github.com/ava-labs/movevm/utils"

	movetrace "github.com/ava-labs/movevm/trace"
)

const dataFolder = ".movevm"

// cli holds the state shared by every subcommand. The engine and the state
// database are opened on first use.
type cli struct {
	logLevel    string
	logDir      string
	dataDir     string
	configFile  string
	displayLogs bool

	initialized bool
	cfg         movevm.Config
	log         logging.Logger
	tracer      trace.Tracer
	gatherer    metrics.MultiGatherer
	registry    *prometheus.Registry

	vm *movevm.VM
	db database.Database
}

func NewRootCmd() *cobra.Command {
	c := &cli{log: logging.NoLog{}}
	cmd := &cobra.Command{
		Use:           "movevm",
		Short:         "movevm engine tooling",
		Long:          `Assemble, inspect and execute movevm modules against a local pebble store.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.init()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	base := filepath.Join(homeDir, dataFolder)

	cobra.EnablePrefixMatching = true
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.DisableAutoGenTag = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (overrides the config file)")
	cmd.PersistentFlags().StringVar(&c.logDir, "log-dir", filepath.Join(base, "logs"), "log directory")
	cmd.PersistentFlags().StringVar(&c.dataDir, "data-dir", filepath.Join(base, "db"), "state database directory")
	cmd.PersistentFlags().StringVar(&c.configFile, "config", "", "JSON engine config file")
	cmd.PersistentFlags().BoolVar(&c.displayLogs, "display-logs", false, "mirror logs to stderr")

	cmd.AddCommand(c.commands()...)
	return cmd
}

// commands returns a fresh command tree bound to [c].
func (c *cli) commands() []*cobra.Command {
	return []*cobra.Command{
		newTagCmd(c),
		newModuleCmd(c),
		newScriptCmd(c),
		newAddressCmd(),
		newRunCmd(c),
		newServeCmd(c),
		newBenchCmd(c),
		newConsoleCmd(c),
	}
}

func (c *cli) init() error {
	if c.initialized {
		return nil
	}

	var cfgBytes []byte
	if c.configFile != "" {
		b, err := os.ReadFile(c.configFile)
		if err != nil {
			return err
		}
		cfgBytes = b
	}
	cfg, err := movevm.ParseConfig(cfgBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	level, err := logging.ToLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	displayLevel := logging.Off
	if c.displayLogs {
		displayLevel = level
	}
	loggingConfig := logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			MaxSize:   8,
			MaxFiles:  4,
			MaxAge:    7,
			Directory: c.logDir,
		},
		LogLevel:                level,
		DisplayLevel:            displayLevel,
		LogFormat:               logging.JSON,
		DisableWriterDisplaying: !c.displayLogs,
	}
	c.log = newLogger(loggingConfig, "movevm")

	c.tracer, err = movetrace.New(cfg.TraceConfig)
	if err != nil {
		c.log.Stop()
		return err
	}

	c.gatherer = metrics.NewLabelGatherer("db")
	c.registry = prometheus.NewRegistry()
	c.initialized = true
	c.log.Debug("cli initialized",
		zap.String("logLevel", cfg.LogLevel),
		zap.String("dataDir", c.dataDir),
	)
	return nil
}

// VM returns the engine, creating it on first use.
func (c *cli) VM() (*movevm.VM, error) {
	if c.vm != nil {
		return c.vm, nil
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	vm, err := movevm.NewVM(c.cfg, c.log, c.registry, c.tracer)
	if err != nil {
		return nil, err
	}
	c.vm = vm
	return vm, nil
}

// DB returns the state database, opening it on first use.
func (c *cli) DB() (database.Database, error) {
	if c.db != nil {
		return c.db, nil
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	db, err := storage.OpenState(pebble.NewDefaultConfig(), c.dataDir, c.gatherer)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *cli) close() error {
	errs := wrappers.Errs{}
	if c.vm != nil {
		errs.Add(c.vm.Destroy())
		c.vm = nil
	}
	if c.db != nil {
		errs.Add(c.db.Close())
		c.db = nil
	}
	if c.tracer != nil {
		errs.Add(c.tracer.Close())
		c.tracer = nil
	}
	if c.initialized {
		c.log.Stop()
		c.log = logging.NoLog{}
		c.initialized = false
	}
	return errs.Err
}

func outputFlag(cmd *cobra.Command, out *string) {
	cmd.Flags().StringVarP(out, "out", "o", "", "write the result to this file instead of stdout")
}

// emit writes [b] to [out] or prints it as hex.
func emit(out string, b []byte) error {
	if out == "" {
		utils.Outf("0x%x\n", b)
		return nil
	}
	if err := utils.WriteFile(out, b); err != nil {
		return err
	}
	utils.Outf("{{green}}wrote %d bytes to{{/}} %s\n", len(b), out)
	return nil
}
