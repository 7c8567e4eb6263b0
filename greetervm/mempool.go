// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/engine/common"
)

var errMempoolFull = errors.New("mempool is full")

// mempool holds submitted txs until the next block converts them into
// receipts. It is not safe for concurrent use.
type mempool struct {
	toEngine chan<- common.Message
	txs      chan *Tx
	// pending are the IDs of the txs in [txs]
	pending map[ids.ID]struct{}
}

func newMempool(size int, toEngine chan<- common.Message) *mempool {
	return &mempool{
		txs:      make(chan *Tx, size),
		toEngine: toEngine,
		pending:  make(map[ids.ID]struct{}, size),
	}
}

// Add queues [tx] and tells the engine a block can be built.
func (m *mempool) Add(tx *Tx) error {
	select {
	case m.txs <- tx:
		m.pending[tx.ID()] = struct{}{}
	default:
		return fmt.Errorf("%w: failed to add tx %s at size %d", errMempoolFull, tx.ID(), cap(m.txs))
	}

	m.notify()
	return nil
}

// Drain removes and returns every queued tx in submission order.
func (m *mempool) Drain() []*Tx {
	var txs []*Tx
	for {
		select {
		case tx := <-m.txs:
			delete(m.pending, tx.ID())
			txs = append(txs, tx)
		default:
			return txs
		}
	}
}

// Requeue puts back txs taken by Drain that did not end up in an accepted
// block. It returns how many were dropped because they no longer fit.
func (m *mempool) Requeue(txs []*Tx) int {
	dropped := 0
	for _, tx := range txs {
		if m.Has(tx.ID()) {
			continue
		}
		if err := m.Add(tx); err != nil {
			dropped++
		}
	}
	return dropped
}

// Has reports whether [txID] is waiting for a block.
func (m *mempool) Has(txID ids.ID) bool {
	_, ok := m.pending[txID]
	return ok
}

func (m *mempool) Len() int {
	return len(m.txs)
}

func (m *mempool) notify() {
	if m.toEngine == nil {
		return
	}
	select {
	case m.toEngine <- common.PendingTxs:
	default:
	}
}
