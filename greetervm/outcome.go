// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/greetervm/runtime"
)

type Status uint8

const (
	StatusSuccess Status = iota
	StatusFailure
	// StatusDelegated means the receipt returned a promise. Its value is the
	// value of the receipt [Outcome.Next].
	StatusDelegated
	// StatusPending is reported for txs whose call chain has not finished.
	// It is never stored.
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusDelegated:
		return "delegated"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing a receipt.
type Outcome struct {
	ReceiptID ids.ID   `serialize:"true"`
	Height    uint64   `serialize:"true"`
	Status    Status   `serialize:"true"`
	Value     []byte   `serialize:"true"`
	Error     string   `serialize:"true"`
	Logs      []string `serialize:"true"`
	// Receipts created by the invocation, in promise index order.
	Receipts []ids.ID `serialize:"true"`
	Next     ids.ID   `serialize:"true"`
}

// PromiseResult is what the receipts waiting on this outcome receive.
func (o *Outcome) PromiseResult() runtime.PromiseResult {
	if o.Status == StatusSuccess {
		return runtime.PromiseResult{Status: runtime.PromiseSuccessful, Value: o.Value}
	}
	return runtime.PromiseResult{Status: runtime.PromiseFailed}
}
