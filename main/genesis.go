// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/ava-labs/greetervm/contracts/fungibletoken"
	"github.com/ava-labs/greetervm/contracts/greeter"
	"github.com/ava-labs/greetervm/greetervm"
	"github.com/ava-labs/greetervm/runtime"
)

const (
	devAccount     runtime.AccountID = "dev.test"
	greeterAccount runtime.AccountID = "greeter.test"
)

// devGenesis funds a dev account and deploys the greeter next to a token at
// the greeter's default token account. The greeter owns the whole supply.
func devGenesis() ([]byte, error) {
	tokenInit, err := json.Marshal(&fungibletoken.InitArgs{
		OwnerID:     greeterAccount,
		TotalSupply: "1000000000000000000000000000",
		Metadata: fungibletoken.Metadata{
			Spec:     fungibletoken.MetadataSpec,
			Name:     "Example Token",
			Symbol:   "EXAMPLE",
			Decimals: 24,
		},
	})
	if err != nil {
		return nil, err
	}
	greeterInit, err := json.Marshal(&greeter.InitArgs{TokenAccount: greeter.DefaultTokenAccount})
	if err != nil {
		return nil, err
	}

	return json.Marshal(&greetervm.Genesis{
		Accounts: []greetervm.GenesisAccount{
			{ID: devAccount, Balance: "1000000000000000000000000"},
			{
				ID:       greeter.DefaultTokenAccount,
				Contract: fungibletoken.Name,
				Init:     &greetervm.GenesisInit{Method: "new", Args: tokenInit},
			},
			{
				ID:       greeterAccount,
				Contract: greeter.Name,
				Init:     &greetervm.GenesisInit{Method: "new", Args: greeterInit},
			},
		},
	})
}

// readGenesis reads a json or yaml genesis file as json.
func readGenesis(path string) ([]byte, error) {
	if path == "" {
		return devGenesis()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	return yaml.YAMLToJSON(b)
}
