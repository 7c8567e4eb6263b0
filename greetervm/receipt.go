// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/greetervm/runtime"
)

// Receipt is a scheduled call. It is either ready, sitting in the queue, or
// waiting for [Pending] results from the receipts that list it as one of
// their DataReceivers.
type Receipt struct {
	ID          ids.ID            `serialize:"true" json:"id"`
	Predecessor runtime.AccountID `serialize:"true" json:"predecessor"`
	Signer      runtime.AccountID `serialize:"true" json:"signer"`
	Receiver    runtime.AccountID `serialize:"true" json:"receiver"`
	Method      string            `serialize:"true" json:"method"`
	Args        []byte            `serialize:"true" json:"args"`
	Deposit     Amount            `serialize:"true" json:"-"`
	// Deadline is the last height this receipt may run at. Zero means no
	// deadline.
	Deadline uint64                  `serialize:"true" json:"deadline"`
	Pending  uint32                  `serialize:"true" json:"pending"`
	Results  []runtime.PromiseResult `serialize:"true" json:"-"`
	// DataReceivers are the receipts waiting on this receipt's result.
	DataReceivers []ids.ID `serialize:"true" json:"dataReceivers"`
}

// Expired reports whether the receipt may no longer run at [height].
func (r *Receipt) Expired(height uint64) bool {
	return r.Deadline != 0 && height > r.Deadline
}
