// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runtimetest provides an in-memory runtime.Env for unit testing
// contracts without a VM.
package runtimetest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/holiman/uint256"

	"github.com/ava-labs/greetervm/runtime"
)

var (
	errViewPromise   = errors.New("promises cannot be created in a view call")
	errUnknownParent = errors.New("unknown promise index")

	_ runtime.Env = (*Env)(nil)
)

// Promise is a promise recorded by Env.
type Promise struct {
	Index runtime.PromiseIndex
	// After is the promise this one waits on, nil for an outbound call.
	After    *runtime.PromiseIndex
	Receiver runtime.AccountID
	Method   string
	Args     []byte
	Deposit  *uint256.Int
}

// Env records everything a contract asks of the host.
// Exported fields may be set freely between calls.
type Env struct {
	Current     runtime.AccountID
	Predecessor runtime.AccountID
	Signer      runtime.AccountID
	Deposit     *uint256.Int
	Height      uint64
	Timestamp   time.Time
	Results     []runtime.PromiseResult
	View        bool

	Logs     []string
	Promises []Promise

	db *memdb.Database
}

// New returns an Env for a contract deployed at [current], called by itself.
func New(current runtime.AccountID) *Env {
	return &Env{
		Current:     current,
		Predecessor: current,
		Signer:      current,
		Deposit:     uint256.NewInt(0),
		Timestamp:   time.Unix(0, 0),
		db:          memdb.New(),
	}
}

// Reset clears the per-invocation fields, keeping storage.
func (e *Env) Reset() {
	e.Predecessor = e.Current
	e.Signer = e.Current
	e.Deposit = uint256.NewInt(0)
	e.Results = nil
	e.View = false
	e.Logs = nil
	e.Promises = nil
}

// Resolve sets the single result delivered to the next continuation call.
// A nil [value] with [ok] true delivers an empty value.
func (e *Env) Resolve(ok bool, value interface{}) error {
	result := runtime.PromiseResult{Status: runtime.PromiseFailed}
	if ok {
		result.Status = runtime.PromiseSuccessful
		if value != nil {
			b, err := json.Marshal(value)
			if err != nil {
				return err
			}
			result.Value = b
		}
	}
	e.Results = []runtime.PromiseResult{result}
	return nil
}

// Dump returns a copy of every key/value pair in storage.
func (e *Env) Dump() (map[string][]byte, error) {
	it := e.db.NewIterator()
	defer it.Release()

	dump := make(map[string][]byte)
	for it.Next() {
		dump[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	return dump, it.Error()
}

func (e *Env) CurrentAccountID() runtime.AccountID     { return e.Current }
func (e *Env) PredecessorAccountID() runtime.AccountID { return e.Predecessor }
func (e *Env) SignerAccountID() runtime.AccountID      { return e.Signer }
func (e *Env) AttachedDeposit() *uint256.Int           { return e.Deposit.Clone() }
func (e *Env) BlockHeight() uint64                     { return e.Height }
func (e *Env) BlockTimestamp() time.Time               { return e.Timestamp }
func (e *Env) Storage() runtime.Storage                { return e.db }
func (e *Env) Log(msg string)                          { e.Logs = append(e.Logs, msg) }
func (e *Env) PromiseResults() []runtime.PromiseResult { return e.Results }
func (e *Env) IsView() bool                            { return e.View }

func (e *Env) PromiseCreate(receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	return e.addPromise(nil, receiver, method, args, deposit)
}

func (e *Env) PromiseThen(index runtime.PromiseIndex, receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	if int(index) >= len(e.Promises) {
		return 0, fmt.Errorf("%w: %d", errUnknownParent, index)
	}
	return e.addPromise(&index, receiver, method, args, deposit)
}

func (e *Env) addPromise(after *runtime.PromiseIndex, receiver runtime.AccountID, method string, args []byte, deposit *uint256.Int) (runtime.PromiseIndex, error) {
	if e.View {
		return 0, errViewPromise
	}
	if err := receiver.Validate(); err != nil {
		return 0, err
	}
	if deposit == nil {
		deposit = uint256.NewInt(0)
	}
	index := runtime.PromiseIndex(len(e.Promises))
	e.Promises = append(e.Promises, Promise{
		Index:    index,
		After:    after,
		Receiver: receiver,
		Method:   method,
		Args:     args,
		Deposit:  deposit.Clone(),
	})
	return index, nil
}
