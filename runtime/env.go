// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"time"

	"github.com/holiman/uint256"
)

// PromiseIndex refers to a promise created during the current invocation.
type PromiseIndex uint32

// PromiseStatus is how an outbound call resolved.
type PromiseStatus uint8

const (
	PromiseSuccessful PromiseStatus = iota
	PromiseFailed
)

func (s PromiseStatus) String() string {
	switch s {
	case PromiseSuccessful:
		return "successful"
	case PromiseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PromiseResult is delivered to a continuation once the call it waits on
// has resolved. Value holds the JSON encoded return value on success.
type PromiseResult struct {
	Status PromiseStatus `serialize:"true"`
	Value  []byte        `serialize:"true"`
}

// Storage is the contract's own key/value namespace.
// Get returns database.ErrNotFound when [key] is missing.
type Storage interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Env is the host interface available to a contract method while it runs.
type Env interface {
	// CurrentAccountID is the account whose contract is running.
	CurrentAccountID() AccountID
	// PredecessorAccountID is the account that made this call. It equals
	// CurrentAccountID when a contract calls itself.
	PredecessorAccountID() AccountID
	// SignerAccountID is the account that signed the originating transaction.
	SignerAccountID() AccountID
	// AttachedDeposit is the native amount attached to this call.
	AttachedDeposit() *uint256.Int

	BlockHeight() uint64
	BlockTimestamp() time.Time

	Storage() Storage

	// Log records [msg] in the outcome of this invocation.
	Log(msg string)

	// PromiseCreate schedules a call of [method] on [receiver].
	PromiseCreate(receiver AccountID, method string, args []byte, deposit *uint256.Int) (PromiseIndex, error)
	// PromiseThen schedules a call of [method] on [receiver] that runs once
	// the promise [index] has resolved, receiving its result.
	PromiseThen(index PromiseIndex, receiver AccountID, method string, args []byte, deposit *uint256.Int) (PromiseIndex, error)
	// PromiseResults returns the results delivered to this invocation.
	// It is empty unless this invocation is a continuation.
	PromiseResults() []PromiseResult

	// IsView reports whether this invocation is read-only.
	IsView() bool
}
