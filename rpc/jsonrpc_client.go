// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ava-labs/movevm/types"

	avarpc "github.com/ava-labs/avalanchego/utils/rpc"
)

type JSONRPCClient struct {
	requester avarpc.EndpointRequester
}

func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	uri += JSONRPCEndpoint
	return &JSONRPCClient{requester: avarpc.NewEndpointRequester(uri)}
}

func (cli *JSONRPCClient) send(ctx context.Context, method string, args any, reply any) error {
	return cli.requester.SendRequest(ctx, Name+"."+method, args, reply)
}

func (cli *JSONRPCClient) Ping(ctx context.Context) (bool, error) {
	resp := new(PingReply)
	err := cli.send(ctx, "ping", struct{}{}, resp)
	return resp.Success, err
}

func (cli *JSONRPCClient) ParseStructTag(ctx context.Context, structTag string) (*ParseStructTagReply, error) {
	resp := new(ParseStructTagReply)
	err := cli.send(ctx,
		"parseStructTag",
		&StructTagArgs{StructTag: structTag},
		resp,
	)
	return resp, err
}

func (cli *JSONRPCClient) StringifyStructTag(ctx context.Context, encoded []byte) (string, error) {
	resp := new(StructTagArgs)
	err := cli.send(ctx,
		"stringifyStructTag",
		&StringifyStructTagArgs{Encoded: encoded},
		resp,
	)
	return resp.StructTag, err
}

func (cli *JSONRPCClient) DecodeModule(ctx context.Context, code []byte) (json.RawMessage, error) {
	resp := new(ABIReply)
	err := cli.send(ctx, "decodeModule", &CodeArgs{Code: code}, resp)
	return resp.ABI, err
}

func (cli *JSONRPCClient) DecodeScript(ctx context.Context, code []byte) (json.RawMessage, error) {
	resp := new(ABIReply)
	err := cli.send(ctx, "decodeScript", &CodeArgs{Code: code}, resp)
	return resp.ABI, err
}

func (cli *JSONRPCClient) ReadModuleInfo(ctx context.Context, code []byte) (types.ModuleInfo, error) {
	resp := new(ModuleInfoReply)
	err := cli.send(ctx, "readModuleInfo", &CodeArgs{Code: code}, resp)
	return types.ModuleInfo{Name: resp.Name, Address: resp.Address}, err
}

func (cli *JSONRPCClient) GetResource(ctx context.Context, addr types.AccountAddress, structTag string) (json.RawMessage, error) {
	resp := new(GetResourceReply)
	err := cli.send(ctx,
		"getResource",
		&GetResourceArgs{Address: addr, StructTag: structTag},
		resp,
	)
	return resp.Resource, err
}

func (cli *JSONRPCClient) ExecuteView(ctx context.Context, args *ExecuteViewArgs) (*ExecuteViewReply, error) {
	resp := new(ExecuteViewReply)
	err := cli.send(ctx, "executeView", args, resp)
	return resp, err
}
