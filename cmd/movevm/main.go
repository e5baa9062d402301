// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "movevm" drives the movevm engine against a local pebble store.
package main

import (
	"os"

	"github.com/ava-labs/movevm/cmd/movevm/cmd"
	"github.com/ava-labs/movevm/utils"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		utils.Outf("{{red}}movevm exited with error:{{/}} %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
