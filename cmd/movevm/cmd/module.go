// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/utils"
)

func newModuleCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Assemble and inspect compiled modules",
	}

	var assembleOut string
	assembleCmd := &cobra.Command{
		Use:   "assemble [source]",
		Short: "Assemble a YAML or JSON module description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src engine.ModuleSource
			if err := readSource(args[0], cmd.InOrStdin(), &src); err != nil {
				return err
			}
			code, err := engine.AssembleModule(src)
			if err != nil {
				return err
			}
			return emit(assembleOut, code)
		},
	}
	outputFlag(assembleCmd, &assembleOut)

	var renameOut string
	renameCmd := &cobra.Command{
		Use:   "rename [module] [name]",
		Short: "Re-encode a compiled module under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := utils.ReadBytes(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			vm, err := c.VM()
			if err != nil {
				return err
			}
			renamed, err := vm.ConvertModuleName(code, args[1])
			if err != nil {
				return err
			}
			return emit(renameOut, renamed)
		},
	}
	outputFlag(renameCmd, &renameOut)

	cmd.AddCommand(
		assembleCmd,
		&cobra.Command{
			Use:   "info [module]",
			Short: "Print the name and address of a compiled module",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				code, err := utils.ReadBytes(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				vm, err := c.VM()
				if err != nil {
					return err
				}
				info, err := vm.ReadModuleInfo(code)
				if err != nil {
					return err
				}
				utils.Outf("{{yellow}}address:{{/}} %s\n{{yellow}}name:{{/}} %s\n", info.Address, info.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "decode [module]",
			Short: "Print the ABI of a compiled module",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				code, err := utils.ReadBytes(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				vm, err := c.VM()
				if err != nil {
					return err
				}
				abi, err := vm.DecodeModuleBytes(code)
				if err != nil {
					return err
				}
				utils.Outf("%s\n", abi)
				return nil
			},
		},
		renameCmd,
	)
	return cmd
}

func newScriptCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Assemble and inspect compiled scripts",
	}

	var assembleOut string
	assembleCmd := &cobra.Command{
		Use:   "assemble [source]",
		Short: "Assemble a YAML or JSON script description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src engine.ScriptSource
			if err := readSource(args[0], cmd.InOrStdin(), &src); err != nil {
				return err
			}
			code, err := engine.AssembleScript(src)
			if err != nil {
				return err
			}
			return emit(assembleOut, code)
		},
	}
	outputFlag(assembleCmd, &assembleOut)

	cmd.AddCommand(
		assembleCmd,
		&cobra.Command{
			Use:   "decode [script]",
			Short: "Print the ABI of a compiled script",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				code, err := utils.ReadBytes(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				vm, err := c.VM()
				if err != nil {
					return err
				}
				abi, err := vm.DecodeScriptBytes(code)
				if err != nil {
					return err
				}
				utils.Outf("%s\n", abi)
				return nil
			},
		},
	)
	return cmd
}
