// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/ava-labs/movevm/types"
)

var ErrInvalidInstruction = errors.New("invalid instruction")

// ModuleSource describes a module in text form.
type ModuleSource struct {
	Address   string           `json:"address" yaml:"address"`
	Name      string           `json:"name" yaml:"name"`
	Structs   []StructSource   `json:"structs" yaml:"structs"`
	Functions []FunctionSource `json:"functions" yaml:"functions"`
}

type StructSource struct {
	Name   string        `json:"name" yaml:"name"`
	Fields []FieldSource `json:"fields" yaml:"fields"`
}

type FieldSource struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

type FunctionSource struct {
	Name       string   `json:"name" yaml:"name"`
	Visibility string   `json:"visibility" yaml:"visibility"`
	Entry      bool     `json:"entry" yaml:"entry"`
	View       bool     `json:"view" yaml:"view"`
	Params     []string `json:"params" yaml:"params"`
	Returns    []string `json:"returns" yaml:"returns"`
	Code       []string `json:"code" yaml:"code"`
}

// ScriptSource describes a script in text form.
type ScriptSource struct {
	Params []string `json:"params" yaml:"params"`
	Code   []string `json:"code" yaml:"code"`
}

// AssembleModule builds and verifies the module described by [src].
func AssembleModule(src ModuleSource) ([]byte, error) {
	addr, err := types.ParseAccountAddress(src.Address)
	if err != nil {
		return nil, err
	}
	b := NewModuleBuilder(addr, src.Name)
	for _, s := range src.Structs {
		fields := make([]FieldDef, len(s.Fields))
		for i, f := range s.Fields {
			tag, err := types.ParseTypeTag(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
			}
			fields[i] = FieldDef{Name: f.Name, Type: tag}
		}
		b.Struct(s.Name, fields...)
	}
	for _, f := range src.Functions {
		fn, err := assembleFunction(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		b.Function(fn)
	}
	return b.Build()
}

func assembleFunction(src FunctionSource) (Function, error) {
	visibility, err := parseVisibility(src.Visibility)
	if err != nil {
		return Function{}, err
	}
	params, err := parseTypeTags(src.Params)
	if err != nil {
		return Function{}, err
	}
	returns, err := parseTypeTags(src.Returns)
	if err != nil {
		return Function{}, err
	}
	code, err := Assemble(src.Code)
	if err != nil {
		return Function{}, err
	}
	return Function{
		Name:       src.Name,
		Visibility: visibility,
		IsEntry:    src.Entry,
		IsView:     src.View,
		Params:     params,
		Returns:    returns,
		Code:       code,
	}, nil
}

// AssembleScript builds and verifies the script described by [src].
func AssembleScript(src ScriptSource) ([]byte, error) {
	params, err := parseTypeTags(src.Params)
	if err != nil {
		return nil, err
	}
	code, err := Assemble(src.Code)
	if err != nil {
		return nil, err
	}
	return BuildScript(params, code)
}

func parseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "private":
		return Private, nil
	case "public":
		return Public, nil
	case "friend":
		return Friend, nil
	default:
		return 0, fmt.Errorf("%w: visibility %q", ErrInvalidModule, s)
	}
}

func parseTypeTags(tags []string) ([]types.TypeTag, error) {
	out := make([]types.TypeTag, len(tags))
	for i, s := range tags {
		tag, err := types.ParseTypeTag(s)
		if err != nil {
			return nil, err
		}
		out[i] = tag
	}
	return out, nil
}

// Assemble parses one instruction per line.
func Assemble(lines []string) ([]Instruction, error) {
	code := make([]Instruction, 0, len(lines))
	for i, line := range lines {
		ins, err := ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		code = append(code, ins)
	}
	return code, nil
}

// ParseInstruction parses a mnemonic and its operand, e.g.
//
//	push u64:5
//	push "str:hello world"
//	arg 0
//	scan desc
//	move_to Counter
func ParseInstruction(line string) (Instruction, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %w", ErrInvalidInstruction, err)
	}
	if len(words) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty", ErrInvalidInstruction)
	}
	op, err := ParseOpcode(words[0])
	if err != nil {
		return Instruction{}, err
	}
	args := words[1:]
	operand, err := parseOperand(op, args)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %s: %w", ErrInvalidInstruction, op, err)
	}
	return Instruction{Op: op, Operand: operand}, nil
}

func parseOperand(op Opcode, args []string) ([]byte, error) {
	switch op {
	case OpPush, OpArg, OpSigner, OpScan, OpMoveTo, OpBorrowGlobal, OpEmit, OpAbort:
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 operand, found %d", len(args))
		}
	default:
		if len(args) != 0 {
			return nil, fmt.Errorf("expected no operand, found %d", len(args))
		}
		return nil, nil
	}

	arg := args[0]
	switch op {
	case OpPush:
		return ParseLiteral(arg)
	case OpArg, OpSigner:
		i, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return nil, err
		}
		return []byte{byte(i)}, nil
	case OpScan:
		switch arg {
		case "asc":
			return []byte{byte(types.Ascending)}, nil
		case "desc":
			return []byte{byte(types.Descending)}, nil
		default:
			return nil, fmt.Errorf("order %q", arg)
		}
	case OpAbort:
		code, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, err
		}
		return u64Bytes(code), nil
	default:
		return []byte(arg), nil
	}
}

// ParseLiteral encodes a typed literal: u64:N, bool:true, str:S, addr:0x1
// or raw 0x hex.
func ParseLiteral(s string) ([]byte, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		if !strings.HasPrefix(s, "0x") {
			return nil, fmt.Errorf("literal %q has no type", s)
		}
		return hex.DecodeString(s[2:])
	}
	switch kind {
	case "u64":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, err
		}
		return u64Bytes(n), nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, err
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case "str":
		return []byte(value), nil
	case "addr":
		addr, err := types.ParseAccountAddress(value)
		if err != nil {
			return nil, err
		}
		return addr[:], nil
	default:
		return nil, fmt.Errorf("literal type %q", kind)
	}
}
