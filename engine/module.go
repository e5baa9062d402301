// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"errors"
	"fmt"

	"github.com/ava-labs/movevm/types"
)

const (
	ModuleMagic uint32 = 0xa11ceb0b
	ScriptMagic uint32 = 0xa11ceb0c

	InitModuleFunction = "init_module"
)

var (
	ErrInvalidModule      = errors.New("invalid module")
	ErrInvalidScript      = errors.New("invalid script")
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrModuleNotFound     = errors.New("module not found")
	ErrFunctionNotFound   = errors.New("function not found")
	ErrStructNotFound     = errors.New("struct not found")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrInvalidEnv         = errors.New("invalid env")
	ErrInvalidSenders     = errors.New("invalid senders")
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrNotEntry           = errors.New("function is not an entry function")
	ErrNotView            = errors.New("function is not a view function")
	ErrReadOnly           = errors.New("storage is read only")
	ErrPublisherForbidden = errors.New("publisher not allowed")
	ErrDuplicateModule    = errors.New("duplicate module")
)

type Visibility uint8

const (
	Private Visibility = iota
	Public
	Friend
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Public:
		return "public"
	case Friend:
		return "friend"
	default:
		return "unknown"
	}
}

type Instruction struct {
	Op      Opcode
	Operand []byte
}

type FieldDef struct {
	Name string
	Type types.TypeTag
}

type StructDef struct {
	Name   string
	Fields []FieldDef
}

type Function struct {
	Name       string
	Visibility Visibility
	IsEntry    bool
	IsView     bool
	Params     []types.TypeTag
	Returns    []types.TypeTag
	Code       []Instruction
}

// CompiledModule is the borsh encoded unit published to storage.
type CompiledModule struct {
	Magic     uint32
	Address   types.AccountAddress
	Name      string
	Structs   []StructDef
	Functions []Function
}

// CompiledScript is the code of a script payload.
type CompiledScript struct {
	Magic  uint32
	Params []types.TypeTag
	Code   []Instruction
}

// ID returns address::name.
func (m *CompiledModule) ID() string {
	return m.Address.String() + "::" + m.Name
}

func (m *CompiledModule) Function(name string) (*Function, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}

func (m *CompiledModule) Struct(name string) (*StructDef, bool) {
	for i := range m.Structs {
		if m.Structs[i].Name == name {
			return &m.Structs[i], true
		}
	}
	return nil, false
}

// StructTag returns the tag of one of the module's structs.
func (m *CompiledModule) StructTag(name string) types.StructTag {
	return types.StructTag{
		Address: m.Address,
		Module:  m.Name,
		Name:    name,
	}
}

func (m *CompiledModule) Bytes() ([]byte, error) {
	return types.Marshal(*m)
}

func (s *CompiledScript) Bytes() ([]byte, error) {
	return types.Marshal(*s)
}

// DecodeModule parses and verifies a compiled module.
func DecodeModule(code []byte) (*CompiledModule, error) {
	if len(code) > MaxCodeSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidModule, len(code), MaxCodeSize)
	}
	m, err := types.Unmarshal[CompiledModule](code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	if err := verifyModule(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	return &m, nil
}

// DecodeScript parses and verifies a compiled script.
func DecodeScript(code []byte) (*CompiledScript, error) {
	if len(code) > MaxCodeSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidScript, len(code), MaxCodeSize)
	}
	s, err := types.Unmarshal[CompiledScript](code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if s.Magic != ScriptMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidScript, s.Magic)
	}
	for _, p := range s.Params {
		if err := verifyTypeTag(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
		}
	}
	if err := verifyCode(s.Code, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return &s, nil
}

func verifyModule(m *CompiledModule) error {
	if m.Magic != ModuleMagic {
		return fmt.Errorf("bad magic %#x", m.Magic)
	}
	if !isIdentifier(m.Name) {
		return fmt.Errorf("invalid module name %q", m.Name)
	}
	structs := make(map[string]struct{}, len(m.Structs))
	for _, s := range m.Structs {
		if !isIdentifier(s.Name) {
			return fmt.Errorf("invalid struct name %q", s.Name)
		}
		if _, ok := structs[s.Name]; ok {
			return fmt.Errorf("duplicate struct %q", s.Name)
		}
		structs[s.Name] = struct{}{}
		fields := make(map[string]struct{}, len(s.Fields))
		for _, f := range s.Fields {
			if !isIdentifier(f.Name) {
				return fmt.Errorf("invalid field name %q in %s", f.Name, s.Name)
			}
			if _, ok := fields[f.Name]; ok {
				return fmt.Errorf("duplicate field %q in %s", f.Name, s.Name)
			}
			fields[f.Name] = struct{}{}
			if err := verifyTypeTag(f.Type); err != nil {
				return err
			}
		}
	}
	functions := make(map[string]struct{}, len(m.Functions))
	for _, f := range m.Functions {
		if !isIdentifier(f.Name) {
			return fmt.Errorf("invalid function name %q", f.Name)
		}
		if _, ok := functions[f.Name]; ok {
			return fmt.Errorf("duplicate function %q", f.Name)
		}
		functions[f.Name] = struct{}{}
		if f.Visibility > Friend {
			return fmt.Errorf("invalid visibility %d for %s", f.Visibility, f.Name)
		}
		for _, p := range append(append([]types.TypeTag{}, f.Params...), f.Returns...) {
			if err := verifyTypeTag(p); err != nil {
				return err
			}
		}
		if err := verifyCode(f.Code, structs); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// verifyCode checks opcodes and operand shapes. [structs] is nil for scripts,
// which cannot touch resources.
func verifyCode(code []Instruction, structs map[string]struct{}) error {
	for pc, ins := range code {
		if !ins.Op.Valid() {
			return fmt.Errorf("%w %d at %d", ErrUnknownOpcode, ins.Op, pc)
		}
		switch ins.Op {
		case OpArg, OpSigner:
			if len(ins.Operand) != 1 {
				return fmt.Errorf("%s at %d needs a 1 byte index", ins.Op, pc)
			}
		case OpScan:
			if len(ins.Operand) != 1 || !types.Order(ins.Operand[0]).Valid() {
				return fmt.Errorf("%s at %d needs an order", ins.Op, pc)
			}
		case OpAbort:
			if len(ins.Operand) != 8 {
				return fmt.Errorf("%s at %d needs an 8 byte code", ins.Op, pc)
			}
		case OpEmit:
			if _, err := types.ParseTypeTag(string(ins.Operand)); err != nil {
				return fmt.Errorf("%s at %d: %w", ins.Op, pc, err)
			}
		case OpMoveTo, OpBorrowGlobal:
			if structs == nil {
				return fmt.Errorf("%s at %d is not allowed in scripts", ins.Op, pc)
			}
			if _, ok := structs[string(ins.Operand)]; !ok {
				return fmt.Errorf("%s at %d: %w: %q", ins.Op, pc, ErrStructNotFound, ins.Operand)
			}
		case OpPush:
		default:
			if len(ins.Operand) != 0 {
				return fmt.Errorf("%s at %d takes no operand", ins.Op, pc)
			}
		}
	}
	return nil
}

func verifyTypeTag(t types.TypeTag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if d := t.Depth(); d > maxValueDepth {
		return fmt.Errorf("type nesting %d deeper than %d", d, maxValueDepth)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
