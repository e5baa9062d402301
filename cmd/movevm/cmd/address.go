// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"
)

func newAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Address utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "derive [source] [seed]",
		Short: "Derive the object address created by [source] with [seed]",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := types.ParseAccountAddress(args[0])
			if err != nil {
				return err
			}
			addr := types.CreateObjectAddress(source, []byte(args[1]))
			utils.Outf("{{yellow}}address:{{/}} %s\n{{yellow}}canonical:{{/}} %s\n", addr, addr.CanonicalString())
			return nil
		},
	})
	return cmd
}
