// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxTypeTagDepth bounds type argument nesting. The outermost struct
	// of a struct tag is depth 0.
	MaxTypeTagDepth = 256
	// MaxEncodedStructTagSize bounds the borsh form accepted for decoding.
	MaxEncodedStructTagSize = 64 << 10
)

var (
	ErrInvalidStructTag = errors.New("invalid struct tag")
	ErrInvalidTypeTag   = errors.New("invalid type tag")
	ErrTypeTagTooDeep   = errors.New("type tag nested too deep")
)

type TypeTagKind uint8

const (
	TypeBool TypeTagKind = iota
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeU128
	TypeU256
	TypeAddress
	TypeSigner
	TypeVector
	TypeStruct
)

var primitiveNames = map[TypeTagKind]string{
	TypeBool:    "bool",
	TypeU8:      "u8",
	TypeU16:     "u16",
	TypeU32:     "u32",
	TypeU64:     "u64",
	TypeU128:    "u128",
	TypeU256:    "u256",
	TypeAddress: "address",
	TypeSigner:  "signer",
}

// TypeTag is a fully instantiated Move type. Address, Module and Name are
// set only for TypeStruct. TypeArgs holds the element type of a TypeVector
// and the type arguments of a TypeStruct.
type TypeTag struct {
	Kind     TypeTagKind
	Address  AccountAddress
	Module   string
	Name     string
	TypeArgs []TypeTag
}

// StructTag identifies a struct type: address::module::Name<TypeArgs...>.
type StructTag struct {
	Address  AccountAddress
	Module   string
	Name     string
	TypeArgs []TypeTag
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeVector:
		if len(t.TypeArgs) != 1 {
			return "vector<?>"
		}
		return "vector<" + t.TypeArgs[0].String() + ">"
	case TypeStruct:
		return t.StructTag().String()
	default:
		if name, ok := primitiveNames[t.Kind]; ok {
			return name
		}
		return fmt.Sprintf("unknown(%d)", t.Kind)
	}
}

// StructTag returns the struct portion of a TypeStruct tag.
func (t TypeTag) StructTag() StructTag {
	return StructTag{
		Address:  t.Address,
		Module:   t.Module,
		Name:     t.Name,
		TypeArgs: t.TypeArgs,
	}
}

func (s StructTag) TypeTag() TypeTag {
	return TypeTag{
		Kind:     TypeStruct,
		Address:  s.Address,
		Module:   s.Module,
		Name:     s.Name,
		TypeArgs: s.TypeArgs,
	}
}

// ModuleID returns address::module.
func (s StructTag) ModuleID() string {
	return s.Address.String() + "::" + s.Module
}

func (s StructTag) String() string {
	var b strings.Builder
	b.WriteString(s.ModuleID())
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, arg := range s.TypeArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// ParseStructTag parses a struct tag string. Whitespace between tokens is
// ignored; String returns the canonical form, so parse then stringify
// reproduces the input only when the input is already canonical (lowercase
// short address, single space after each comma).
func ParseStructTag(s string) (StructTag, error) {
	p, err := newTagParser(s)
	if err != nil {
		return StructTag{}, fmt.Errorf("%w: %w", ErrInvalidStructTag, err)
	}
	tag, err := p.parseStructTag()
	if err == nil && !p.done() {
		err = fmt.Errorf("unexpected token %q", p.peek())
	}
	if err != nil {
		return StructTag{}, fmt.Errorf("%w: %w", ErrInvalidStructTag, err)
	}
	return tag, nil
}

func ParseTypeTag(s string) (TypeTag, error) {
	p, err := newTagParser(s)
	if err != nil {
		return TypeTag{}, fmt.Errorf("%w: %w", ErrInvalidTypeTag, err)
	}
	tag, err := p.parseTypeTag()
	if err == nil && !p.done() {
		err = fmt.Errorf("unexpected token %q", p.peek())
	}
	if err != nil {
		return TypeTag{}, fmt.Errorf("%w: %w", ErrInvalidTypeTag, err)
	}
	return tag, nil
}

type tagParser struct {
	tokens []string
	pos    int
	depth  int
}

func newTagParser(s string) (*tagParser, error) {
	var tokens []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '<' || c == '>' || c == ',':
			tokens = append(tokens, string(c))
			i++
		case c == ':':
			if i+1 >= len(s) || s[i+1] != ':' {
				return nil, fmt.Errorf("unexpected ':' at %d", i)
			}
			tokens = append(tokens, "::")
			i += 2
		case isIdentChar(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty input")
	}
	return &tagParser{tokens: tokens}, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	if '0' <= s[0] && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func (p *tagParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *tagParser) peek() string {
	if p.done() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *tagParser) next() (string, error) {
	if p.done() {
		return "", errors.New("unexpected end of input")
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

func (p *tagParser) expect(tok string) error {
	got, err := p.next()
	if err != nil {
		return err
	}
	if got != tok {
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *tagParser) ident() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if !isIdentifier(tok) {
		return "", fmt.Errorf("invalid identifier %q", tok)
	}
	return tok, nil
}

func (p *tagParser) parseStructTag() (StructTag, error) {
	tok, err := p.next()
	if err != nil {
		return StructTag{}, err
	}
	if !strings.HasPrefix(tok, "0x") {
		return StructTag{}, fmt.Errorf("invalid address %q", tok)
	}
	addr, err := ParseAccountAddress(tok)
	if err != nil {
		return StructTag{}, err
	}
	if err := p.expect("::"); err != nil {
		return StructTag{}, err
	}
	module, err := p.ident()
	if err != nil {
		return StructTag{}, err
	}
	if err := p.expect("::"); err != nil {
		return StructTag{}, err
	}
	name, err := p.ident()
	if err != nil {
		return StructTag{}, err
	}
	tag := StructTag{Address: addr, Module: module, Name: name}
	if p.peek() != "<" {
		return tag, nil
	}
	p.pos++
	for {
		arg, err := p.parseTypeTag()
		if err != nil {
			return StructTag{}, err
		}
		tag.TypeArgs = append(tag.TypeArgs, arg)
		sep, err := p.next()
		if err != nil {
			return StructTag{}, err
		}
		if sep == ">" {
			return tag, nil
		}
		if sep != "," {
			return StructTag{}, fmt.Errorf("expected ',' or '>', got %q", sep)
		}
	}
}

func (p *tagParser) parseTypeTag() (TypeTag, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxTypeTagDepth {
		return TypeTag{}, fmt.Errorf("%w: limit %d", ErrTypeTagTooDeep, MaxTypeTagDepth)
	}
	tok := p.peek()
	for kind, name := range primitiveNames {
		if tok == name {
			p.pos++
			return TypeTag{Kind: kind}, nil
		}
	}
	if tok == "vector" {
		p.pos++
		if err := p.expect("<"); err != nil {
			return TypeTag{}, err
		}
		inner, err := p.parseTypeTag()
		if err != nil {
			return TypeTag{}, err
		}
		if err := p.expect(">"); err != nil {
			return TypeTag{}, err
		}
		return TypeTag{Kind: TypeVector, TypeArgs: []TypeTag{inner}}, nil
	}
	st, err := p.parseStructTag()
	if err != nil {
		return TypeTag{}, err
	}
	return st.TypeTag(), nil
}

// Validate reports whether [s] is a well formed struct tag, the same set of
// tags ParseStructTag accepts.
func (s StructTag) Validate() error {
	if err := validateStruct(s.Module, s.Name, s.TypeArgs, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStructTag, err)
	}
	return nil
}

// Validate reports whether [t] is a well formed type tag.
func (t TypeTag) Validate() error {
	if err := t.validate(1); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTypeTag, err)
	}
	return nil
}

// Depth returns the nesting depth of [t]; a primitive is 1.
func (t TypeTag) Depth() int {
	d := 0
	for _, arg := range t.TypeArgs {
		d = max(d, arg.Depth())
	}
	return d + 1
}

func (t TypeTag) validate(depth int) error {
	if depth > MaxTypeTagDepth {
		return fmt.Errorf("%w: limit %d", ErrTypeTagTooDeep, MaxTypeTagDepth)
	}
	switch t.Kind {
	case TypeVector:
		if len(t.TypeArgs) != 1 {
			return fmt.Errorf("vector has %d element types", len(t.TypeArgs))
		}
		if t.Module != "" || t.Name != "" || t.Address != ZeroAddress {
			return errors.New("vector carries struct fields")
		}
		return t.TypeArgs[0].validate(depth + 1)
	case TypeStruct:
		return validateStruct(t.Module, t.Name, t.TypeArgs, depth)
	default:
		if _, ok := primitiveNames[t.Kind]; !ok {
			return fmt.Errorf("unknown kind %d", t.Kind)
		}
		if len(t.TypeArgs) != 0 || t.Module != "" || t.Name != "" || t.Address != ZeroAddress {
			return fmt.Errorf("%s carries struct fields", primitiveNames[t.Kind])
		}
		return nil
	}
}

func validateStruct(module, name string, args []TypeTag, depth int) error {
	if !isIdentifier(module) {
		return fmt.Errorf("invalid module %q", module)
	}
	if !isIdentifier(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	for _, arg := range args {
		if err := arg.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}
