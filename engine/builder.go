// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/binary"

	"github.com/ava-labs/movevm/types"
)

// Code assembles an instruction sequence.
type Code struct {
	instructions []Instruction
}

func NewCode() *Code {
	return &Code{}
}

func (c *Code) Op(op Opcode, operand ...byte) *Code {
	c.instructions = append(c.instructions, Instruction{Op: op, Operand: operand})
	return c
}

func (c *Code) Push(v []byte) *Code {
	return c.Op(OpPush, v...)
}

func (c *Code) PushString(s string) *Code {
	return c.Push([]byte(s))
}

func (c *Code) PushU64(v uint64) *Code {
	return c.Push(u64Bytes(v))
}

func (c *Code) Arg(i uint8) *Code {
	return c.Op(OpArg, i)
}

func (c *Code) Signer(i uint8) *Code {
	return c.Op(OpSigner, i)
}

func (c *Code) Scan(order types.Order) *Code {
	return c.Op(OpScan, byte(order))
}

func (c *Code) MoveTo(structName string) *Code {
	return c.Op(OpMoveTo, []byte(structName)...)
}

func (c *Code) BorrowGlobal(structName string) *Code {
	return c.Op(OpBorrowGlobal, []byte(structName)...)
}

func (c *Code) Emit(typeTag string) *Code {
	return c.Op(OpEmit, []byte(typeTag)...)
}

func (c *Code) Abort(code uint64) *Code {
	return c.Op(OpAbort, binary.LittleEndian.AppendUint64(nil, code)...)
}

func (c *Code) Build() []Instruction {
	return c.instructions
}

// ModuleBuilder assembles a CompiledModule.
type ModuleBuilder struct {
	m CompiledModule
}

func NewModuleBuilder(addr types.AccountAddress, name string) *ModuleBuilder {
	return &ModuleBuilder{m: CompiledModule{
		Magic:   ModuleMagic,
		Address: addr,
		Name:    name,
	}}
}

func (b *ModuleBuilder) Struct(name string, fields ...FieldDef) *ModuleBuilder {
	b.m.Structs = append(b.m.Structs, StructDef{Name: name, Fields: fields})
	return b
}

func (b *ModuleBuilder) Function(fn Function) *ModuleBuilder {
	b.m.Functions = append(b.m.Functions, fn)
	return b
}

// Build encodes and verifies the module.
func (b *ModuleBuilder) Build() ([]byte, error) {
	code, err := b.m.Bytes()
	if err != nil {
		return nil, err
	}
	if _, err := DecodeModule(code); err != nil {
		return nil, err
	}
	return code, nil
}

// BuildScript encodes and verifies a script.
func BuildScript(params []types.TypeTag, code []Instruction) ([]byte, error) {
	s := CompiledScript{
		Magic:  ScriptMagic,
		Params: params,
		Code:   code,
	}
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if _, err := DecodeScript(b); err != nil {
		return nil, err
	}
	return b, nil
}
