// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexBytes(t *testing.T) {
	require := require.New(t)

	b, err := json.Marshal(HexBytes{0xca, 0xfe})
	require.NoError(err)
	require.Equal(`"0xcafe"`, string(b))

	var out HexBytes
	require.NoError(json.Unmarshal([]byte(`"cafe"`), &out))
	require.Equal(HexBytes{0xca, 0xfe}, out)
	require.ErrorIs(json.Unmarshal([]byte(`"0xzz"`), &out), ErrInvalidHex)

	_, err = LoadHex("0xcafe", 3)
	require.ErrorIs(err, ErrInvalidHex)
}
