// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/utils"
)

const historySize = 64

func newConsoleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run commands interactively against one engine and database",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return console(c)
		},
	}
}

func console(c *cli) error {
	history := newHistory(historySize)
	utils.Outf("{{cyan}}movevm console{{/}} (type {{yellow}}help{{/}}, {{yellow}}history{{/}}, {{yellow}}!N{{/}} or {{yellow}}exit{{/}})\n")
	for {
		prompt := promptui.Prompt{Label: "movevm"}
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			history.each(func(n int, line string) {
				utils.Outf("{{light-gray}}%3d{{/}} %s\n", n, line)
			})
			continue
		}
		line, err = history.expand(line)
		if err != nil {
			utils.Outf("{{red}}error:{{/}} %v\n", err)
			continue
		}
		history.add(line)

		if err := runLine(c, line); err != nil {
			utils.Outf("{{red}}error:{{/}} %v\n", err)
		}
	}
}

// runLine executes one console line with a fresh command tree. The tree has
// no persistent hooks so the engine and database stay open between lines.
func runLine(c *cli, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		return err
	}
	root := &cobra.Command{
		Use:           "movevm",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	for _, cmd := range c.commands() {
		if cmd.Name() == "console" {
			continue
		}
		root.AddCommand(cmd)
	}
	root.SetArgs(args)
	c.log.Debug("console command", zap.Strings("args", args))
	return root.Execute()
}
