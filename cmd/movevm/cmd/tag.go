// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"
)

type parsedTag struct {
	Address  types.AccountAddress `json:"address"`
	Module   string               `json:"module"`
	Name     string               `json:"name"`
	TypeArgs []string             `json:"typeArgs"`
	Encoded  types.HexBytes       `json:"encoded"`
}

func newTagCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Parse and stringify struct tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "parse [tag]",
			Short: "Parse a struct tag through the engine",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				vm, err := c.VM()
				if err != nil {
					return err
				}
				tag, err := vm.ParseStructTag(args[0])
				if err != nil {
					return err
				}
				encoded, err := types.Marshal(tag)
				if err != nil {
					return err
				}
				typeArgs := make([]string, len(tag.TypeArgs))
				for i, arg := range tag.TypeArgs {
					typeArgs[i] = arg.String()
				}
				return printJSON(parsedTag{
					Address:  tag.Address,
					Module:   tag.Module,
					Name:     tag.Name,
					TypeArgs: typeArgs,
					Encoded:  encoded,
				})
			},
		},
		&cobra.Command{
			Use:   "stringify [encoded]",
			Short: "Render a borsh encoded struct tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := utils.ReadBytes(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				tag, err := types.Unmarshal[types.StructTag](b)
				if err != nil {
					return err
				}
				vm, err := c.VM()
				if err != nil {
					return err
				}
				s, err := vm.StringifyStructTag(tag)
				if err != nil {
					return err
				}
				utils.Outf("%s\n", s)
				return nil
			},
		},
	)
	return cmd
}
