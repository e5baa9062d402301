// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ava-labs/movevm/types"
)

type ModuleABI struct {
	Address          string        `json:"address"`
	Name             string        `json:"name"`
	ExposedFunctions []FunctionABI `json:"exposed_functions"`
	Structs          []StructABI   `json:"structs"`
}

type FunctionABI struct {
	Name       string   `json:"name"`
	Visibility string   `json:"visibility"`
	IsEntry    bool     `json:"is_entry"`
	IsView     bool     `json:"is_view"`
	Params     []string `json:"params"`
	Return     []string `json:"return"`
}

type StructABI struct {
	Name   string     `json:"name"`
	Fields []FieldABI `json:"fields"`
}

type FieldABI struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ScriptABI struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

// DecodeModuleABI returns the JSON ABI of a compiled module. Private
// functions are listed only when they are entry or view functions.
func DecodeModuleABI(code []byte) ([]byte, error) {
	m, err := DecodeModule(code)
	if err != nil {
		return nil, err
	}
	abi := ModuleABI{
		Address:          m.Address.String(),
		Name:             m.Name,
		ExposedFunctions: []FunctionABI{},
		Structs:          make([]StructABI, 0, len(m.Structs)),
	}
	for _, fn := range m.Functions {
		if fn.Visibility == Private && !fn.IsEntry && !fn.IsView {
			continue
		}
		abi.ExposedFunctions = append(abi.ExposedFunctions, FunctionABI{
			Name:       fn.Name,
			Visibility: fn.Visibility.String(),
			IsEntry:    fn.IsEntry,
			IsView:     fn.IsView,
			Params:     tagStrings(fn.Params),
			Return:     tagStrings(fn.Returns),
		})
	}
	slices.SortFunc(abi.ExposedFunctions, func(a, b FunctionABI) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, s := range m.Structs {
		fields := make([]FieldABI, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = FieldABI{Name: f.Name, Type: f.Type.String()}
		}
		abi.Structs = append(abi.Structs, StructABI{Name: s.Name, Fields: fields})
	}
	slices.SortFunc(abi.Structs, func(a, b StructABI) int {
		return strings.Compare(a.Name, b.Name)
	})
	return json.Marshal(abi)
}

func DecodeScriptABI(code []byte) ([]byte, error) {
	s, err := DecodeScript(code)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ScriptABI{
		Name:   "main",
		Params: tagStrings(s.Params),
	})
}

// ReadModuleInfo returns the borsh encoded name and address of a module.
func ReadModuleInfo(code []byte) ([]byte, error) {
	m, err := DecodeModule(code)
	if err != nil {
		return nil, err
	}
	return types.Marshal(types.ModuleInfo{
		Name:    m.Name,
		Address: m.Address,
	})
}

// ConvertModuleName re-encodes a module under a new name.
func ConvertModuleName(code []byte, name string) ([]byte, error) {
	m, err := DecodeModule(code)
	if err != nil {
		return nil, err
	}
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%w: invalid module name %q", ErrInvalidModule, name)
	}
	m.Name = name
	return m.Bytes()
}

func tagStrings(tags []types.TypeTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}
