// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/ava-labs/greetervm/runtime"
)

var (
	errViewWrite      = errors.New("storage is read-only in a view call")
	errViewPromise    = errors.New("promises cannot be created in a view call")
	errUnknownPromise = errors.New("unknown promise index")

	_ runtime.Env     = (*hostEnv)(nil)
	_ runtime.Storage = (*readOnlyStorage)(nil)
)

// promise is a call requested by a running receipt. It becomes a receipt
// only if the invocation that requested it succeeds.
type promise struct {
	after    *runtime.PromiseIndex
	receiver runtime.AccountID
	method   string
	args     []byte
	deposit  *uint256.Int
}

// hostEnv is the runtime.Env of a single invocation.
type hostEnv struct {
	receipt   *Receipt
	height    uint64
	timestamp time.Time
	storage   runtime.Storage
	view      bool

	logs     []string
	promises []*promise
}

func (e *hostEnv) CurrentAccountID() runtime.AccountID     { return e.receipt.Receiver }
func (e *hostEnv) PredecessorAccountID() runtime.AccountID { return e.receipt.Predecessor }
func (e *hostEnv) SignerAccountID() runtime.AccountID      { return e.receipt.Signer }
func (e *hostEnv) AttachedDeposit() *uint256.Int           { return e.receipt.Deposit.Int() }
func (e *hostEnv) BlockHeight() uint64                     { return e.height }
func (e *hostEnv) BlockTimestamp() time.Time               { return e.timestamp }
func (e *hostEnv) Storage() runtime.Storage                { return e.storage }
func (e *hostEnv) Log(msg string)                          { e.logs = append(e.logs, msg) }
func (e *hostEnv) PromiseResults() []runtime.PromiseResult { return e.receipt.Results }
func (e *hostEnv) IsView() bool                            { return e.view }

func (e *hostEnv) PromiseCreate(receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	return e.addPromise(nil, receiver, method, args, deposit)
}

func (e *hostEnv) PromiseThen(index runtime.PromiseIndex, receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	if int(index) >= len(e.promises) {
		return 0, fmt.Errorf("%w: %d", errUnknownPromise, index)
	}
	return e.addPromise(&index, receiver, method, args, deposit)
}

func (e *hostEnv) addPromise(after *runtime.PromiseIndex, receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	if e.view {
		return 0, errViewPromise
	}
	if err := receiver.Validate(); err != nil {
		return 0, err
	}
	if method == "" {
		return 0, errEmptyMethod
	}
	if len(args) > maxArgsLen {
		return 0, fmt.Errorf("%w: %d > %d", errArgsTooLarge, len(args), maxArgsLen)
	}
	if deposit == nil {
		deposit = new(uint256.Int)
	}
	e.promises = append(e.promises, &promise{
		after:    after,
		receiver: receiver,
		method:   method,
		args:     args,
		deposit:  deposit.Clone(),
	})
	return runtime.PromiseIndex(len(e.promises) - 1), nil
}

// readOnlyStorage rejects every write to the storage it wraps.
type readOnlyStorage struct {
	runtime.Storage
}

func (readOnlyStorage) Put([]byte, []byte) error { return errViewWrite }

func (readOnlyStorage) Delete([]byte) error { return errViewWrite }
