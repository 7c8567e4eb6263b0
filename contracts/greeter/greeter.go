// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package greeter implements a contract that stores a greeting and proxies
// metadata, balance and transfer calls to a fungible token contract.
package greeter

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/ava-labs/greetervm/contracts/fungibletoken"
	"github.com/ava-labs/greetervm/runtime"
)

const (
	Name = "greeter"

	TransferSuccessLog = "Transferring token success"
)

var (
	// ErrRemoteCall is the abort of every continuation whose outbound call
	// failed, timed out or returned something unreadable.
	ErrRemoteCall         = errors.New("there was an error contacting the token contract")
	ErrNoDeposit          = errors.New("requires an attached deposit")
	ErrAlreadyInitialized = errors.New("contract is already initialized")

	transferDeposit = uint256.NewInt(1)

	_ runtime.Contract = (*Greeter)(nil)
)

// Greeter is the greeter contract.
type Greeter struct{}

func New() *Greeter { return &Greeter{} }

func (*Greeter) Name() string { return Name }

func (g *Greeter) Methods() runtime.Methods {
	return runtime.Methods{
		"new":            {Handler: g.initialize, Private: true, Init: true},
		"get_greeting":   {Handler: g.getGreeting, View: true},
		"set_greeting":   {Handler: g.setGreeting},
		"get_metadata":   {Handler: g.getMetadata},
		"get_balance_of": {Handler: g.getBalanceOf},
		"transfer":       {Handler: g.transfer, Payable: true},

		"on_metadata_result": {Handler: g.onMetadataResult, Private: true},
		"on_balance_result":  {Handler: g.onBalanceResult, Private: true},
		"on_transfer_result": {Handler: g.onTransferResult, Private: true},
	}
}

// InitArgs are the arguments of new.
type InitArgs struct {
	TokenAccount runtime.AccountID `json:"token_account"`
	Message      *string           `json:"message,omitempty"`
}

type SetGreetingArgs struct {
	Message string `json:"message"`
}

type GetBalanceOfArgs struct {
	AccountID string `json:"account_id"`
}

type TransferArgs struct {
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
}

// initialize replaces the default state. It can only run before any state was
// written.
func (g *Greeter) initialize(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	storage := env.Storage()
	exists, err := storage.Has(stateKey)
	if err != nil {
		return runtime.Result{}, err
	}
	if exists {
		return runtime.Result{}, ErrAlreadyInitialized
	}
	args, err := runtime.DecodeArgs[InitArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	if err := args.TokenAccount.Validate(); err != nil {
		return runtime.Result{}, err
	}

	s := DefaultState()
	s.TokenAccount = args.TokenAccount
	if args.Message != nil {
		s.Message = []byte(*args.Message)
	}
	return runtime.Void(), saveState(storage, s)
}

func (g *Greeter) getGreeting(env runtime.Env, _ []byte) (runtime.Result, error) {
	s, err := loadState(env.Storage())
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(string(s.Message))
}

func (g *Greeter) setGreeting(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	args, err := runtime.DecodeArgs[SetGreetingArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	storage := env.Storage()
	s, err := loadState(storage)
	if err != nil {
		return runtime.Result{}, err
	}

	env.Log("Saving greeting " + args.Message)
	s.Message = []byte(args.Message)
	return runtime.Void(), saveState(storage, s)
}

func (g *Greeter) getMetadata(env runtime.Env, _ []byte) (runtime.Result, error) {
	s, err := loadState(env.Storage())
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Forward(env, runtime.Call{
		Receiver: s.TokenAccount,
		Method:   "ft_metadata",
	}, "on_metadata_result")
}

func (g *Greeter) onMetadataResult(env runtime.Env, _ []byte) (runtime.Result, error) {
	metadata, err := runtime.Unwrap[fungibletoken.Metadata](env, ErrRemoteCall)
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(&metadata)
}

func (g *Greeter) getBalanceOf(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	args, err := runtime.DecodeArgs[GetBalanceOfArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	s, err := loadState(env.Storage())
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Forward(env, runtime.Call{
		Receiver: s.TokenAccount,
		Method:   "ft_balance_of",
		Args:     &fungibletoken.BalanceOfArgs{AccountID: runtime.AccountID(args.AccountID)},
	}, "on_balance_result")
}

// onBalanceResult passes the balance through without parsing it.
func (g *Greeter) onBalanceResult(env runtime.Env, _ []byte) (runtime.Result, error) {
	balance, err := runtime.Unwrap[string](env, ErrRemoteCall)
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(balance)
}

func (g *Greeter) transfer(env runtime.Env, rawArgs []byte) (runtime.Result, error) {
	if env.AttachedDeposit().IsZero() {
		return runtime.Result{}, ErrNoDeposit
	}
	args, err := runtime.DecodeArgs[TransferArgs](rawArgs)
	if err != nil {
		return runtime.Result{}, err
	}
	s, err := loadState(env.Storage())
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Forward(env, runtime.Call{
		Receiver: s.TokenAccount,
		Method:   "ft_transfer",
		Args: &fungibletoken.TransferArgs{
			ReceiverID: runtime.AccountID(args.ReceiverID),
			Amount:     args.Amount,
		},
		Deposit: transferDeposit,
	}, "on_transfer_result")
}

// onTransferResult never returns false: a failed transfer aborts.
func (g *Greeter) onTransferResult(env runtime.Env, _ []byte) (runtime.Result, error) {
	if err := runtime.Check(env, ErrRemoteCall); err != nil {
		return runtime.Result{}, err
	}
	env.Log(TransferSuccessLog)
	return runtime.JSON(true)
}
