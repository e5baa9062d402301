// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ava-labs/movevm/types"
)

var ErrInvalidValue = errors.New("invalid value")

// Standard library types rendered without a published layout.
const (
	stdModuleString = "string"
	stdModuleOption = "option"
)

// DecodeValue renders the serialized [value] of type [typeTag] as JSON.
// Struct layouts are loaded from [store].
func DecodeValue(store Storage, typeTag string, value []byte) ([]byte, error) {
	tag, err := types.ParseTypeTag(typeTag)
	if err != nil {
		return nil, err
	}
	r := &resolver{load: storeLoader(store)}
	v, err := r.render(tag, value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// DecodeResource renders a resource stored under [structTag] as JSON.
func DecodeResource(store Storage, structTag string, resource []byte) ([]byte, error) {
	tag, err := types.ParseStructTag(structTag)
	if err != nil {
		return nil, err
	}
	r := &resolver{load: storeLoader(store)}
	v, err := r.render(tag.TypeTag(), resource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"type": tag.String(),
		"data": v,
	})
}

func storeLoader(store Storage) func(types.AccountAddress, string) (*CompiledModule, error) {
	return func(addr types.AccountAddress, name string) (*CompiledModule, error) {
		code, err := store.Get(ModuleKey(addr, name))
		if err != nil {
			return nil, err
		}
		if code == nil {
			return nil, fmt.Errorf("%w: %s::%s", ErrModuleNotFound, addr, name)
		}
		return DecodeModule(code)
	}
}

// resolver renders values using struct layouts from published modules.
type resolver struct {
	load func(types.AccountAddress, string) (*CompiledModule, error)
	// optional
	layouts *lru.Cache
}

func (r *resolver) render(tag types.TypeTag, b []byte) (any, error) {
	vr := &valueReader{b: b}
	v, err := r.decode(vr, tag, 0)
	if err != nil {
		return nil, err
	}
	if vr.off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %s", ErrInvalidValue, len(b)-vr.off, tag)
	}
	return v, nil
}

func (r *resolver) fields(tag types.TypeTag) ([]FieldDef, error) {
	key := tag.String()
	if r.layouts != nil {
		if cached, ok := r.layouts.Get(key); ok {
			return cached.([]FieldDef), nil
		}
	}
	m, err := r.load(tag.Address, tag.Module)
	if err != nil {
		return nil, err
	}
	s, ok := m.Struct(tag.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStructNotFound, key)
	}
	if r.layouts != nil {
		r.layouts.Add(key, s.Fields)
	}
	return s.Fields, nil
}

func (r *resolver) decode(vr *valueReader, tag types.TypeTag, depth int) (any, error) {
	if depth > maxValueDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidValue, maxValueDepth)
	}
	switch tag.Kind {
	case types.TypeBool:
		b, err := vr.take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, fmt.Errorf("%w: bool byte %d", ErrInvalidValue, b[0])
		}
	case types.TypeU8:
		b, err := vr.take(1)
		if err != nil {
			return nil, err
		}
		return b[0], nil
	case types.TypeU16:
		b, err := vr.take(2)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint16(b), nil
	case types.TypeU32:
		b, err := vr.take(4)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint32(b), nil
	case types.TypeU64, types.TypeU128, types.TypeU256:
		size, _ := fixedSize(tag.Kind)
		b, err := vr.take(size)
		if err != nil {
			return nil, err
		}
		padded := make([]byte, types.Uint256Len)
		copy(padded, b)
		n, err := types.DeserializeUint256(padded)
		if err != nil {
			return nil, err
		}
		return n.Dec(), nil
	case types.TypeAddress, types.TypeSigner:
		b, err := vr.take(types.AddressLen)
		if err != nil {
			return nil, err
		}
		var addr types.AccountAddress
		copy(addr[:], b)
		return addr.String(), nil
	case types.TypeVector:
		if len(tag.TypeArgs) != 1 {
			return nil, fmt.Errorf("%w: %s", types.ErrInvalidTypeTag, tag)
		}
		elem := tag.TypeArgs[0]
		n, err := vr.length()
		if err != nil {
			return nil, err
		}
		if elem.Kind == types.TypeU8 {
			b, err := vr.take(n)
			if err != nil {
				return nil, err
			}
			return "0x" + hex.EncodeToString(b), nil
		}
		out := make([]any, 0, min(n, len(vr.b)-vr.off))
		for i := 0; i < n; i++ {
			v, err := r.decode(vr, elem, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case types.TypeStruct:
		return r.decodeStruct(vr, tag, depth)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidTypeTag, tag)
	}
}

func (r *resolver) decodeStruct(vr *valueReader, tag types.TypeTag, depth int) (any, error) {
	if tag.Address == types.StdAddress {
		switch {
		case tag.Module == stdModuleString && tag.Name == "String":
			n, err := vr.length()
			if err != nil {
				return nil, err
			}
			b, err := vr.take(n)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(b) {
				return nil, fmt.Errorf("%w: string is not utf8", ErrInvalidValue)
			}
			return string(b), nil
		case tag.Module == stdModuleOption && tag.Name == "Option" && len(tag.TypeArgs) == 1:
			n, err := vr.length()
			if err != nil {
				return nil, err
			}
			switch n {
			case 0:
				return nil, nil
			case 1:
				return r.decode(vr, tag.TypeArgs[0], depth+1)
			default:
				return nil, fmt.Errorf("%w: option with %d elements", ErrInvalidValue, n)
			}
		}
	}
	fields, err := r.fields(tag)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := r.decode(vr, f.Type, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", tag.Name, f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

type valueReader struct {
	b   []byte
	off int
}

func (vr *valueReader) take(n int) ([]byte, error) {
	if n < 0 || len(vr.b)-vr.off < n {
		return nil, fmt.Errorf("%w: need %d bytes, %d left", ErrInvalidValue, n, len(vr.b)-vr.off)
	}
	b := vr.b[vr.off : vr.off+n]
	vr.off += n
	return b, nil
}

// length reads a u32 little endian sequence length.
func (vr *valueReader) length() (int, error) {
	b, err := vr.take(4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}
