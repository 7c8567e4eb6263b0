// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/greetervm/runtime"
)

var (
	errGenesisPromise   = errors.New("genesis init cannot create promises")
	errDuplicateAccount = errors.New("duplicate genesis account")
)

// Genesis is the initial state of the chain.
type Genesis struct {
	Timestamp int64            `json:"timestamp"`
	Accounts  []GenesisAccount `json:"accounts"`
}

type GenesisAccount struct {
	ID       runtime.AccountID `json:"id"`
	Balance  string            `json:"balance"`
	Contract string            `json:"contract"`
	// Init is called on the deployed contract by the account itself.
	Init *GenesisInit `json:"init,omitempty"`
}

type GenesisInit struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

func ParseGenesis(b []byte) (*Genesis, error) {
	genesis := &Genesis{}
	if err := json.Unmarshal(b, genesis); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return genesis, nil
}

// Verify checks the genesis against the registered [contracts].
func (g *Genesis) Verify(contracts map[string]runtime.Contract) error {
	seen := make(map[runtime.AccountID]struct{}, len(g.Accounts))
	for _, account := range g.Accounts {
		if err := account.ID.Validate(); err != nil {
			return err
		}
		if _, ok := seen[account.ID]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAccount, account.ID)
		}
		seen[account.ID] = struct{}{}

		if _, err := ParseAmount(account.Balance); err != nil {
			return err
		}
		if account.Contract == "" {
			if account.Init != nil {
				return fmt.Errorf("%w: %s has init but no contract", errNoContract, account.ID)
			}
			continue
		}
		if _, ok := contracts[account.Contract]; !ok {
			return fmt.Errorf("%w: %s", errNoContract, account.Contract)
		}
	}
	return nil
}

// apply creates the genesis accounts and runs their init calls through [e].
func (g *Genesis) apply(e *executor) error {
	for _, ga := range g.Accounts {
		balance, err := ParseAmount(ga.Balance)
		if err != nil {
			return err
		}
		account := &Account{
			ID:       ga.ID,
			Balance:  balance,
			Contract: ga.Contract,
		}
		if err := e.world.PutAccount(account); err != nil {
			return err
		}
	}

	for i, ga := range g.Accounts {
		if ga.Init == nil {
			continue
		}
		receipt := &Receipt{
			ID:          promiseReceiptID(ids.Empty, uint32(i)),
			Predecessor: ga.ID,
			Signer:      ga.ID,
			Receiver:    ga.ID,
			Method:      ga.Init.Method,
			Args:        ga.Init.Args,
		}
		if err := e.initialize(receipt); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", ga.ID, err)
		}
	}
	return nil
}

func (g *Genesis) Time() time.Time { return time.Unix(g.Timestamp, 0) }

// initialize runs [receipt] to completion. It must not schedule anything.
func (e *executor) initialize(receipt *Receipt) error {
	layer := versiondb.New(e.db)
	env, result, err := e.invoke(newWorldState(layer), receipt, callDeploy)
	if err == nil && (result.IsPending() || len(env.promises) != 0) {
		err = errGenesisPromise
	}
	if err != nil {
		layer.Abort()
		return err
	}
	return layer.Commit()
}
