// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "fmt"

// Opcode is a single interpreter instruction. Values live on a stack of byte
// strings; integers are 8 byte little endian.
type Opcode uint8

const (
	OpPush            Opcode = iota // push operand
	OpPop                           // drop top
	OpDup                           // duplicate top
	OpArg                           // push argument [operand u8]
	OpSigner                        // push signer address [operand u8]
	OpConcat                        // a, b -> a||b
	OpAddU64                        // a, b -> a+b
	OpSubU64                        // a, b -> a-b
	OpRead                          // key -> value (empty when missing)
	OpExists                        // key -> bool
	OpWrite                         // key, value ->
	OpRemove                        // key ->
	OpScan                          // prefix, start, end -> borsh []KeyValue [operand order]
	OpMoveTo                        // addr, value -> [operand struct name]
	OpBorrowGlobal                  // addr -> value [operand struct name]
	OpEmit                          // data -> [operand type tag]
	OpReturn                        // value ->
	OpAbort                         // abort with [operand u64 code]
	OpQuery                         // request -> response
	OpAccountInfo                   // addr -> borsh AccountInfoResult
	OpAmountToShare                 // validator, denom, amount -> share
	OpShareToAmount                 // validator, denom, share -> amount
	OpUnbondTimestamp               // -> timestamp
	OpGetPrice                      // pair -> borsh PriceResult
	OpBlockHeight                   // -> height
	OpBlockTimestamp                // -> timestamp
	OpObjectAddress                 // addr, seed -> derived object address
	opcodeCount
)

var opcodeNames = [...]string{
	OpPush:            "push",
	OpPop:             "pop",
	OpDup:             "dup",
	OpArg:             "arg",
	OpSigner:          "signer",
	OpConcat:          "concat",
	OpAddU64:          "add_u64",
	OpSubU64:          "sub_u64",
	OpRead:            "read",
	OpExists:          "exists",
	OpWrite:           "write",
	OpRemove:          "remove",
	OpScan:            "scan",
	OpMoveTo:          "move_to",
	OpBorrowGlobal:    "borrow_global",
	OpEmit:            "emit",
	OpReturn:          "return",
	OpAbort:           "abort",
	OpQuery:           "query",
	OpAccountInfo:     "account_info",
	OpAmountToShare:   "amount_to_share",
	OpShareToAmount:   "share_to_amount",
	OpUnbondTimestamp: "unbond_timestamp",
	OpGetPrice:        "get_price",
	OpBlockHeight:     "block_height",
	OpBlockTimestamp:  "block_timestamp",
	OpObjectAddress:   "object_address",
}

func (o Opcode) Valid() bool {
	return o < opcodeCount
}

func (o Opcode) String() string {
	if !o.Valid() {
		return fmt.Sprintf("opcode(%d)", o)
	}
	return opcodeNames[o]
}

// ParseOpcode returns the opcode with the given mnemonic.
func ParseOpcode(name string) (Opcode, error) {
	for op, n := range opcodeNames {
		if n == name {
			return Opcode(op), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, name)
}

// writes reports whether the opcode mutates storage.
func (o Opcode) writes() bool {
	return o == OpWrite || o == OpRemove || o == OpMoveTo
}
