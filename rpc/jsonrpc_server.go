// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/database"
	"github.com/gorilla/rpc/v2"
	"go.uber.org/zap"

	"github.com/ava-labs/movevm/engine"
	"github.com/ava-labs/movevm/types"
	"github.com/ava-labs/movevm/utils"

	avajson "github.com/ava-labs/avalanchego/utils/json"
)

// NewJSONRPCHandler serves [server] under the movevm service name.
func NewJSONRPCHandler(server *JSONRPCServer) (http.Handler, error) {
	s := rpc.NewServer()
	codec := avajson.NewCodec()
	s.RegisterCodec(codec, "application/json")
	s.RegisterCodec(codec, "application/json;charset=UTF-8")
	return s, s.RegisterService(server, Name)
}

type JSONRPCServer struct {
	vm          VM
	backend     Backend
	maxGasLimit uint64
}

func NewJSONRPCServer(vm VM, backend Backend, maxGasLimit uint64) *JSONRPCServer {
	return &JSONRPCServer{vm: vm, backend: backend, maxGasLimit: maxGasLimit}
}

type PingReply struct {
	Success bool `json:"success"`
}

func (j *JSONRPCServer) Ping(_ *http.Request, _ *struct{}, reply *PingReply) error {
	j.backend.Logger().Info("ping")
	reply.Success = true
	return nil
}

type StructTagArgs struct {
	StructTag string `json:"structTag"`
}

type ParseStructTagReply struct {
	Address  types.AccountAddress `json:"address"`
	Module   string               `json:"module"`
	Name     string               `json:"name"`
	TypeArgs []string             `json:"typeArgs"`
	// Encoded is the borsh encoding accepted by StringifyStructTag.
	Encoded types.HexBytes `json:"encoded"`
}

func (j *JSONRPCServer) ParseStructTag(req *http.Request, args *StructTagArgs, reply *ParseStructTagReply) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.ParseStructTag")
	defer span.End()

	tag, err := j.vm.ParseStructTag(args.StructTag)
	if err != nil {
		return err
	}
	encoded, err := types.Marshal(tag)
	if err != nil {
		return err
	}
	reply.Address = tag.Address
	reply.Module = tag.Module
	reply.Name = tag.Name
	reply.TypeArgs = make([]string, len(tag.TypeArgs))
	for i, arg := range tag.TypeArgs {
		reply.TypeArgs[i] = arg.String()
	}
	reply.Encoded = encoded
	return nil
}

type StringifyStructTagArgs struct {
	Encoded types.HexBytes `json:"encoded"`
}

func (j *JSONRPCServer) StringifyStructTag(req *http.Request, args *StringifyStructTagArgs, reply *StructTagArgs) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.StringifyStructTag")
	defer span.End()

	tag, err := types.Unmarshal[types.StructTag](args.Encoded)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidStructTag, err)
	}
	s, err := j.vm.StringifyStructTag(tag)
	if err != nil {
		return err
	}
	reply.StructTag = s
	return nil
}

type CodeArgs struct {
	Code types.HexBytes `json:"code"`
}

type ABIReply struct {
	ABI json.RawMessage `json:"abi"`
}

func (j *JSONRPCServer) DecodeModule(req *http.Request, args *CodeArgs, reply *ABIReply) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.DecodeModule")
	defer span.End()

	abi, err := j.vm.DecodeModuleBytes(args.Code)
	if err != nil {
		return err
	}
	reply.ABI = abi
	return nil
}

func (j *JSONRPCServer) DecodeScript(req *http.Request, args *CodeArgs, reply *ABIReply) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.DecodeScript")
	defer span.End()

	abi, err := j.vm.DecodeScriptBytes(args.Code)
	if err != nil {
		return err
	}
	reply.ABI = abi
	return nil
}

type ModuleInfoReply struct {
	Address types.AccountAddress `json:"address"`
	Name    string               `json:"name"`
}

func (j *JSONRPCServer) ReadModuleInfo(req *http.Request, args *CodeArgs, reply *ModuleInfoReply) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.ReadModuleInfo")
	defer span.End()

	info, err := j.vm.ReadModuleInfo(args.Code)
	if err != nil {
		return err
	}
	reply.Address = info.Address
	reply.Name = info.Name
	return nil
}

type GetResourceArgs struct {
	Address   types.AccountAddress `json:"address"`
	StructTag string               `json:"structTag"`
}

type GetResourceReply struct {
	Resource json.RawMessage `json:"resource"`
}

func (j *JSONRPCServer) GetResource(req *http.Request, args *GetResourceArgs, reply *GetResourceReply) error {
	_, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.GetResource")
	defer span.End()

	tag, err := j.vm.ParseStructTag(args.StructTag)
	if err != nil {
		return err
	}
	store := j.backend.Store()
	raw, err := store.Get(engine.ResourceKey(args.Address, tag))
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s at %s", ErrResourceNotFound, args.StructTag, args.Address)
	}
	if err != nil {
		return err
	}
	resource, err := j.vm.DecodeMoveResource(store, args.StructTag, raw)
	if err != nil {
		return err
	}
	reply.Resource = resource
	return nil
}

type ExecuteViewArgs struct {
	Address  types.AccountAddress `json:"address"`
	Module   string               `json:"module"`
	Function string               `json:"function"`
	TyArgs   []string             `json:"tyArgs"`
	Args     []types.HexBytes     `json:"args"`
	// GasLimit defaults to DefaultViewGasLimit.
	GasLimit uint64 `json:"gasLimit"`
}

type ExecuteViewReply struct {
	Ret     json.RawMessage `json:"ret"`
	Events  []Event         `json:"events"`
	GasUsed uint64          `json:"gasUsed"`
}

type Event struct {
	TypeTag string         `json:"typeTag"`
	Data    types.HexBytes `json:"data"`
}

func (j *JSONRPCServer) ExecuteView(req *http.Request, args *ExecuteViewArgs, reply *ExecuteViewReply) error {
	ctx, span := j.backend.Tracer().Start(req.Context(), "JSONRPCServer.ExecuteView")
	defer span.End()

	gasLimit := args.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultViewGasLimit
	}
	if gasLimit > j.maxGasLimit {
		return fmt.Errorf("%w: %d > %d", ErrGasLimitTooHigh, gasLimit, j.maxGasLimit)
	}
	tyArgs, err := utils.MapErr(types.ParseTypeTag, args.TyArgs)
	if err != nil {
		return err
	}
	callArgs := make([][]byte, len(args.Args))
	for i, arg := range args.Args {
		callArgs[i] = arg
	}

	output, err := j.vm.ExecuteViewFunction(ctx, j.backend.Store(), j.backend.ChainAPI(), j.backend.Env(), gasLimit, types.ViewFunction{
		ModuleAddress: args.Address,
		ModuleName:    args.Module,
		Function:      args.Function,
		TyArgs:        tyArgs,
		Args:          callArgs,
	})
	if err != nil {
		j.backend.Logger().Debug("view failed",
			zap.Stringer("address", args.Address),
			zap.String("module", args.Module),
			zap.String("function", args.Function),
			zap.Error(err),
		)
		return err
	}
	reply.Ret = json.RawMessage(output.Ret)
	reply.Events = make([]Event, len(output.Events))
	for i, e := range output.Events {
		reply.Events[i] = Event{TypeTag: e.TypeTag, Data: e.Data}
	}
	reply.GasUsed = output.GasUsed
	return nil
}
