// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ava-labs/avalanchego/utils/perms"
	"github.com/onsi/ginkgo/v2/formatter"
)

var ErrUnreadableInput = errors.New("input is neither 0x hex nor a readable file")

// Outf writes a colorized message to stdout.
//
// e.g.,
//
//	Outf("{{green}}{{bold}}published %d modules{{/}}\n", n)
func Outf(format string, args ...interface{}) {
	s := formatter.F(format, args...)
	fmt.Fprint(formatter.ColorableStdOut, s)
}

// ReadBytes resolves a command line byte argument: "-" reads [stdin], a 0x
// prefix is decoded as hex and anything else is read as a file.
func ReadBytes(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		if stdin == nil {
			return nil, fmt.Errorf("%w: no stdin", ErrUnreadableInput)
		}
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "0x"):
		if b, err := hex.DecodeString(arg[2:]); err == nil {
			return b, nil
		}
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}
	return b, nil
}

// WriteFile writes [b] to [filename], creating missing parent directories.
func WriteFile(filename string, b []byte) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, perms.ReadWriteExecute); err != nil {
			return err
		}
	}
	return os.WriteFile(filename, b, perms.ReadWrite)
}
