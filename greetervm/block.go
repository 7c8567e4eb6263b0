// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/ava-labs/avalanchego/snow/consensus/snowman"
	"github.com/ava-labs/avalanchego/utils/hashing"

	log "github.com/inconshreveable/log15"
)

var (
	errTimestampTooEarly = errors.New("block's timestamp is earlier than its parent's timestamp")
	errTimestampTooLate  = errors.New("block's timestamp is more than 1 hour ahead of local time")
	errWrongHeight       = errors.New("block's height is not its parent's height plus one")
	errStaleParent       = errors.New("block's parent is accepted but is not the last accepted block")
	errDuplicateTx       = errors.New("block contains a tx that was already included")
	errReceiptMismatch   = errors.New("block's receipts differ from the ones executed")
	errBlockNotVerified  = errors.New("block has not been verified")

	_ snowman.Block = &Block{}
)

// Block is a block on the chain.
// Each block contains:
// 1) The txs it turned into receipts
// 2) The receipts it executed, including those that timed out
// 3) A timestamp
type Block struct {
	PrntID   ids.ID   `serialize:"true" json:"parentID"`  // parent's ID
	Hght     uint64   `serialize:"true" json:"height"`    // This block's height. The genesis block is at height 0.
	Tmstmp   int64    `serialize:"true" json:"timestamp"` // Time this block was proposed at
	Txs      []*Tx    `serialize:"true" json:"txs"`
	Receipts []ids.ID `serialize:"true" json:"receipts"`

	id     ids.ID         // hold this block's ID
	bytes  []byte         // this block's encoded bytes
	status choices.Status // block's status
	vm     *VM            // the underlying VM reference, mostly used for state

	// layers holds this block's writes first, then those of its processing
	// ancestors. Set once the block is verified.
	layers []*versiondb.Database
}

func newBlock(parentID ids.ID, height uint64, timestamp time.Time, txs []*Tx, receipts []ids.ID) (*Block, error) {
	block := &Block{
		PrntID:   parentID,
		Hght:     height,
		Tmstmp:   timestamp.Unix(),
		Txs:      txs,
		Receipts: receipts,
		status:   choices.Processing,
	}

	bytes, err := Codec.Marshal(CodecVersion, block)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block: %w", err)
	}
	block.bytes = bytes
	block.id = hashing.ComputeHash256Array(bytes)
	return block, nil
}

// ParseBlock parses [b] into a Block
func ParseBlock(b []byte) (*Block, error) {
	block := &Block{}
	if err := parse(b, block); err != nil {
		return nil, err
	}
	for _, tx := range block.Txs {
		if err := tx.SyntacticVerify(); err != nil {
			return nil, err
		}
		if err := tx.initialize(); err != nil {
			return nil, err
		}
	}

	block.id = hashing.ComputeHash256Array(b)
	block.bytes = b
	block.status = choices.Processing
	return block, nil
}

// ID returns the ID of this block
func (b *Block) ID() ids.ID { return b.id }

// Parent returns [b]'s parent's ID
func (b *Block) Parent() ids.ID { return b.PrntID }

// Height returns this block's height. The genesis block has height 0.
func (b *Block) Height() uint64 { return b.Hght }

// Timestamp returns this block's time.
func (b *Block) Timestamp() time.Time { return time.Unix(b.Tmstmp, 0) }

// Bytes returns the byte repr. of this block
func (b *Block) Bytes() []byte { return b.bytes }

// Status returns the status of this block
func (b *Block) Status() choices.Status { return b.status }

// TxIDs returns the IDs of the txs in this block, in execution order.
func (b *Block) TxIDs() []ids.ID {
	txIDs := make([]ids.ID, len(b.Txs))
	for i, tx := range b.Txs {
		txIDs[i] = tx.ID()
	}
	return txIDs
}

// Verify returns nil iff this block is valid.
// To be valid, it must be that:
// b.parent.Timestamp <= b.Timestamp < [local time] + 1 hour
// and re-executing its txs on top of its parent yields the same receipts.
func (b *Block) Verify() error {
	b.vm.lock.Lock()
	defer b.vm.lock.Unlock()

	return b.vm.verifyBlock(b)
}

// Accept sets this block's status to Accepted and writes its changes to the
// database.
func (b *Block) Accept() error {
	b.vm.lock.Lock()
	defer b.vm.lock.Unlock()

	return b.vm.acceptBlock(b)
}

// Reject sets this block's status to Rejected, drops its changes and returns
// its txs to the mempool.
func (b *Block) Reject() error {
	b.vm.lock.Lock()
	defer b.vm.lock.Unlock()

	b.vm.rejectBlock(b)
	return nil
}

// verified reports whether [b] holds executed changes waiting for a decision.
func (b *Block) verified() bool { return len(b.layers) != 0 }

// commit flushes [b]'s changes into the accepted world state. Ancestors are
// accepted first, so their layers only pass [b]'s writes through.
func (b *Block) commit() error {
	if !b.verified() {
		return errBlockNotVerified
	}
	for _, layer := range b.layers {
		if err := layer.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) abort() {
	if b.verified() {
		b.layers[0].Abort()
	}
	b.layers = nil
}

func (b *Block) log(msg string) {
	log.Info(msg,
		"blkID", b.ID(),
		"height", b.Height(),
		"txs", len(b.Txs),
		"receipts", len(b.Receipts),
	)
}
