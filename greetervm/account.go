// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ava-labs/greetervm/runtime"
)

var errInsufficientBalance = errors.New("insufficient balance")

// Account is an account on the chain. Contract names the contract
// implementation deployed to it, empty for a plain account.
type Account struct {
	ID       runtime.AccountID `serialize:"true" json:"id"`
	Balance  Amount            `serialize:"true" json:"-"`
	Contract string            `serialize:"true" json:"contract"`
}

// Credit adds [amount] to the balance.
func (a *Account) Credit(amount *uint256.Int) error {
	balance, overflow := new(uint256.Int).AddOverflow(a.Balance.Int(), amount)
	if overflow {
		return fmt.Errorf("balance of %s overflows", a.ID)
	}
	a.Balance = AmountOf(balance)
	return nil
}

// Debit removes [amount] from the balance.
func (a *Account) Debit(amount *uint256.Int) error {
	balance := a.Balance.Int()
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", errInsufficientBalance, a.ID, balance.Dec(), amount.Dec())
	}
	a.Balance = AmountOf(balance.Sub(balance, amount))
	return nil
}
