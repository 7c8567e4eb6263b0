// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"testing"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/stretchr/testify/require"
)

func TestStaticServiceGenesisRoundTrip(t *testing.T) {
	require := require.New(t)
	ss := CreateStaticService(&Factory{Contracts: append(DefaultContracts(), &testContract{})})
	genesis := testGenesis(t)

	built := &BuildGenesisReply{}
	require.NoError(ss.BuildGenesis(nil, &BuildGenesisArgs{Genesis: *genesis, Encoding: formatting.Hex}, built))
	require.Equal(formatting.Hex, built.Encoding)
	require.NotEmpty(built.Bytes)

	decoded := &DecodeGenesisReply{}
	require.NoError(ss.DecodeGenesis(nil, &DecodeGenesisArgs{Bytes: built.Bytes, Encoding: formatting.Hex}, decoded))
	require.Equal(genesis.Timestamp, decoded.Genesis.Timestamp)
	require.Len(decoded.Genesis.Accounts, len(genesis.Accounts))
	for i, account := range genesis.Accounts {
		require.Equal(account.ID, decoded.Genesis.Accounts[i].ID)
		require.Equal(account.Contract, decoded.Genesis.Accounts[i].Contract)
	}
}

func TestStaticServiceRejectsUnknownContract(t *testing.T) {
	ss := CreateStaticService(&Factory{})
	genesis := &Genesis{Accounts: []GenesisAccount{{ID: "x.test", Contract: "missing"}}}

	err := ss.BuildGenesis(nil, &BuildGenesisArgs{Genesis: *genesis, Encoding: formatting.Hex}, &BuildGenesisReply{})
	require.ErrorIs(t, err, errNoContract)
}

func TestStaticServiceDecodeInvalid(t *testing.T) {
	ss := CreateStaticService(&Factory{})
	err := ss.DecodeGenesis(nil, &DecodeGenesisArgs{Bytes: "not hex", Encoding: formatting.Hex}, &DecodeGenesisReply{})
	require.Error(t, err)
}
