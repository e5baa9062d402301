// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package abi

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/ava-labs/avalanchego/utils/set"

	"github.com/ava-labs/movevm/engine"
)

const typesImport = "github.com/ava-labs/movevm/types"

// GenerateGoStructs renders Go bindings for a module ABI: the module id,
// one constant per exposed function and one struct per module struct. The
// structs decode the JSON the engine renders for resources.
func GenerateGoStructs(abi engine.ModuleABI, packageName string) (string, error) {
	var (
		body       strings.Builder
		needsTypes bool
		needsJSON  bool
		moduleID   = abi.Address + "::" + abi.Name
	)

	fmt.Fprintf(&body, "// ModuleID identifies the %s module.\n", abi.Name)
	fmt.Fprintf(&body, "const ModuleID = %q\n\n", moduleID)

	if len(abi.ExposedFunctions) > 0 {
		body.WriteString("const (\n")
		for _, fn := range abi.ExposedFunctions {
			fmt.Fprintf(&body, "\tFunction%s = %q\n", exported(fn.Name), fn.Name)
		}
		body.WriteString(")\n\n")
	}

	processed := set.Set[string]{}
	for _, typ := range abi.Structs {
		if processed.Contains(typ.Name) {
			continue
		}
		processed.Add(typ.Name)

		fmt.Fprintf(&body, "type %s struct {\n", exported(typ.Name))
		for _, field := range typ.Fields {
			goType, quoted := convertToGoType(field.Type, moduleID)
			switch {
			case strings.Contains(goType, "types."):
				needsTypes = true
			case strings.Contains(goType, "json."):
				needsJSON = true
			}
			tag := field.Name
			if quoted {
				tag += ",string"
			}
			fmt.Fprintf(&body, "\t%s %s `json:\"%s\"`\n", exported(field.Name), goType, tag)
		}
		body.WriteString("}\n\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// Code generated by movevm-abigen. DO NOT EDIT.\n\npackage %s\n\n", packageName)
	switch {
	case needsTypes && needsJSON:
		fmt.Fprintf(&sb, "import (\n\t\"encoding/json\"\n\n\t%q\n)\n\n", typesImport)
	case needsTypes:
		fmt.Fprintf(&sb, "import %q\n\n", typesImport)
	case needsJSON:
		sb.WriteString("import \"encoding/json\"\n\n")
	}
	sb.WriteString(body.String())

	formatted, err := format.Source([]byte(sb.String()))
	if err != nil {
		return "", fmt.Errorf("failed to format generated code: %w", err)
	}
	return string(formatted), nil
}

// convertToGoType maps a rendered type tag to the Go type its JSON decodes
// into. quoted reports whether the value is rendered as a decimal string.
func convertToGoType(abiType, moduleID string) (goType string, quoted bool) {
	switch abiType {
	case "bool":
		return "bool", false
	case "u8":
		return "uint8", false
	case "u16":
		return "uint16", false
	case "u32":
		return "uint32", false
	case "u64":
		return "uint64", true
	case "u128", "u256":
		return "string", false
	case "address", "signer":
		return "types.AccountAddress", false
	case "vector<u8>":
		return "types.HexBytes", false
	}
	if strings.HasPrefix(abiType, "vector<") && strings.HasSuffix(abiType, ">") {
		elem, elemQuoted := convertToGoType(abiType[len("vector<"):len(abiType)-1], moduleID)
		if elemQuoted {
			// ,string does not apply to slice elements
			elem = "string"
		}
		return "[]" + elem, false
	}
	if name, ok := strings.CutPrefix(abiType, moduleID+"::"); ok && !strings.Contains(name, "<") {
		return exported(name), false
	}
	return "json.RawMessage", false
}

// exported converts snake_case to an exported Go identifier.
func exported(name string) string {
	parts := strings.Split(name, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return sb.String()
}
