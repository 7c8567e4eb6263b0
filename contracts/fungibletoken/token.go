// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fungibletoken implements a native fungible token contract serving
// the ft_metadata, ft_balance_of, ft_total_supply and ft_transfer methods.
package fungibletoken

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/holiman/uint256"

	"github.com/ava-labs/greetervm/runtime"
)

const Name = "fungible-token"

var (
	metadataKey   = []byte("metadata")
	supplyKey     = []byte("supply")
	balancePrefix = []byte("balance/")

	one = uint256.NewInt(1)

	ErrNotInitialized     = errors.New("contract is not initialized")
	ErrAlreadyInitialized = errors.New("contract is already initialized")
	ErrOneYocto           = errors.New("requires an attached deposit of exactly 1")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrZeroAmount         = errors.New("the amount should be a positive number")
	ErrSelfTransfer       = errors.New("sender and receiver should be different")
	ErrInsufficientFunds  = errors.New("the account doesn't have enough balance")

	_ runtime.Contract = (*Token)(nil)
)

// Token is the fungible token contract.
type Token struct{}

func New() *Token { return &Token{} }

func (*Token) Name() string { return Name }

func (t *Token) Methods() runtime.Methods {
	return runtime.Methods{
		"new":             {Handler: t.initialize, Private: true, Init: true},
		"ft_metadata":     {Handler: t.metadata, View: true},
		"ft_total_supply": {Handler: t.totalSupply, View: true},
		"ft_balance_of":   {Handler: t.balanceOf, View: true},
		"ft_transfer":     {Handler: t.transfer, Payable: true},
	}
}

// InitArgs are the arguments of the new method.
type InitArgs struct {
	OwnerID     runtime.AccountID `json:"owner_id"`
	TotalSupply string            `json:"total_supply"`
	Metadata    Metadata          `json:"metadata"`
}

// BalanceOfArgs are the arguments of ft_balance_of.
type BalanceOfArgs struct {
	AccountID runtime.AccountID `json:"account_id"`
}

// TransferArgs are the arguments of ft_transfer.
type TransferArgs struct {
	ReceiverID runtime.AccountID `json:"receiver_id"`
	Amount     string            `json:"amount"`
	Memo       *string           `json:"memo,omitempty"`
}

func (t *Token) initialize(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	storage := env.Storage()
	initialized, err := storage.Has(supplyKey)
	if err != nil {
		return runtime.Result{}, err
	}
	if initialized {
		return runtime.Result{}, ErrAlreadyInitialized
	}

	args, err := runtime.DecodeArgs[InitArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	if err := args.OwnerID.Validate(); err != nil {
		return runtime.Result{}, err
	}
	if err := args.Metadata.Verify(); err != nil {
		return runtime.Result{}, err
	}
	supply, err := parseAmount(args.TotalSupply)
	if err != nil {
		return runtime.Result{}, err
	}

	metadataBytes, err := json.Marshal(&args.Metadata)
	if err != nil {
		return runtime.Result{}, err
	}
	if err := storage.Put(metadataKey, metadataBytes); err != nil {
		return runtime.Result{}, err
	}
	if err := putAmount(storage, supplyKey, supply); err != nil {
		return runtime.Result{}, err
	}
	if err := putAmount(storage, balanceKey(args.OwnerID), supply); err != nil {
		return runtime.Result{}, err
	}

	env.Log(event("ft_mint", map[string]string{
		"owner_id": args.OwnerID.String(),
		"amount":   supply.Dec(),
	}))
	return runtime.Void(), nil
}

func (t *Token) metadata(env runtime.Env, _ []byte) (runtime.Result, error) {
	b, err := env.Storage().Get(metadataKey)
	if errors.Is(err, database.ErrNotFound) {
		return runtime.Result{}, ErrNotInitialized
	}
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Result{Value: b}, nil
}

func (t *Token) totalSupply(env runtime.Env, _ []byte) (runtime.Result, error) {
	supply, err := getAmount(env.Storage(), supplyKey)
	if errors.Is(err, database.ErrNotFound) {
		return runtime.Result{}, ErrNotInitialized
	}
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(supply.Dec())
}

func (t *Token) balanceOf(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	args, err := runtime.DecodeArgs[BalanceOfArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	if err := args.AccountID.Validate(); err != nil {
		return runtime.Result{}, err
	}
	balance, err := balanceOf(env.Storage(), args.AccountID)
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(balance.Dec())
}

func (t *Token) transfer(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	if !env.AttachedDeposit().Eq(one) {
		return runtime.Result{}, ErrOneYocto
	}
	storage := env.Storage()
	if initialized, err := storage.Has(supplyKey); err != nil {
		return runtime.Result{}, err
	} else if !initialized {
		return runtime.Result{}, ErrNotInitialized
	}

	args, err := runtime.DecodeArgs[TransferArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	if err := args.ReceiverID.Validate(); err != nil {
		return runtime.Result{}, err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return runtime.Result{}, err
	}
	if amount.IsZero() {
		return runtime.Result{}, ErrZeroAmount
	}
	sender := env.PredecessorAccountID()
	if sender == args.ReceiverID {
		return runtime.Result{}, ErrSelfTransfer
	}

	senderBalance, err := balanceOf(storage, sender)
	if err != nil {
		return runtime.Result{}, err
	}
	if senderBalance.Lt(amount) {
		return runtime.Result{}, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, sender, senderBalance.Dec(), amount.Dec())
	}
	receiverBalance, err := balanceOf(storage, args.ReceiverID)
	if err != nil {
		return runtime.Result{}, err
	}
	newReceiverBalance, overflow := new(uint256.Int).AddOverflow(receiverBalance, amount)
	if overflow {
		return runtime.Result{}, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}

	if err := putAmount(storage, balanceKey(sender), new(uint256.Int).Sub(senderBalance, amount)); err != nil {
		return runtime.Result{}, err
	}
	if err := putAmount(storage, balanceKey(args.ReceiverID), newReceiverBalance); err != nil {
		return runtime.Result{}, err
	}

	data := map[string]string{
		"old_owner_id": sender.String(),
		"new_owner_id": args.ReceiverID.String(),
		"amount":       amount.Dec(),
	}
	if args.Memo != nil {
		data["memo"] = *args.Memo
	}
	env.Log(event("ft_transfer", data))
	return runtime.Void(), nil
}

func balanceKey(account runtime.AccountID) []byte {
	return append(append([]byte(nil), balancePrefix...), account.String()...)
}

// balanceOf returns zero for accounts that never held tokens.
func balanceOf(storage runtime.Storage, account runtime.AccountID) (*uint256.Int, error) {
	balance, err := getAmount(storage, balanceKey(account))
	if errors.Is(err, database.ErrNotFound) {
		return uint256.NewInt(0), nil
	}
	return balance, err
}

func getAmount(storage runtime.Storage, key []byte) (*uint256.Int, error) {
	b, err := storage.Get(key)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("corrupt amount under %q", key)
	}
	return new(uint256.Int).SetBytes32(b), nil
}

func putAmount(storage runtime.Storage, key []byte, amount *uint256.Int) error {
	b := amount.Bytes32()
	return storage.Put(key, b[:])
}

func parseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidAmount, s, err)
	}
	return amount, nil
}

// event formats a NEP-297 event log line.
func event(name string, data map[string]string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"standard": "nep141",
		"version":  "1.0.0",
		"event":    name,
		"data":     []map[string]string{data},
	})
	return "EVENT_JSON:" + string(b)
}
