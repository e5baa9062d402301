// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ava-labs/movevm/utils"
)

// unmarshalSource decodes JSON or YAML into [v].
func unmarshalSource(b []byte, v any) error {
	switch {
	case isJSON(b):
		return json.Unmarshal(b, v)
	case isYAML(b):
		return yaml.Unmarshal(b, v)
	default:
		return ErrInvalidConfigFormat
	}
}

func isJSON(b []byte) bool {
	var js map[string]interface{}
	return json.Unmarshal(b, &js) == nil
}

func isYAML(b []byte) bool {
	var y map[string]interface{}
	return yaml.Unmarshal(b, &y) == nil
}

func readSource(path string, stdin io.Reader, v any) error {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return unmarshalSource(b, v)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	utils.Outf("%s\n", b)
	return nil
}
