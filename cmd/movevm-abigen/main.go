// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"

	"github.com/ava-labs/movevm/abi"
	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/utils"
)

func main() {
	parser := argparse.NewParser("movevm-abigen", "Generate Go bindings from a compiled module")
	input := parser.String("i", "input", &argparse.Options{
		Required: true,
		Help:     "compiled module file, 0x hex or - for stdin",
	})
	output := parser.String("o", "output", &argparse.Options{
		Required: true,
		Help:     "generated Go file",
	})
	packageName := parser.String("p", "package", &argparse.Options{
		Help: "package name for generated code (defaults to the output directory name)",
	})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}
	if err := run(*input, *output, *packageName); err != nil {
		utils.Outf("{{red}}movevm-abigen failed:{{/}} %v\n", err)
		os.Exit(1)
	}
}

func run(input, output, packageName string) error {
	code, err := utils.ReadBytes(input, os.Stdin)
	if err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	abiJSON, err := engine.DecodeModuleABI(code)
	if err != nil {
		return fmt.Errorf("error decoding module: %w", err)
	}
	var moduleABI engine.ModuleABI
	if err := json.Unmarshal(abiJSON, &moduleABI); err != nil {
		return fmt.Errorf("error parsing ABI JSON: %w", err)
	}

	if packageName == "" {
		packageName = filepath.Base(filepath.Dir(output))
	}
	generated, err := abi.GenerateGoStructs(moduleABI, packageName)
	if err != nil {
		return fmt.Errorf("error generating Go structs: %w", err)
	}

	if err := utils.WriteFile(output, []byte(generated)); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	utils.Outf("{{green}}generated bindings for %s::%s in{{/}} %s\n", moduleABI.Address, moduleABI.Name, output)
	return nil
}
