// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"context"
	"errors"
	"time"

	"github.com/ava-labs/avalanchego/snow/engine/common"

	log "github.com/inconshreveable/log15"
)

// Builder drives block production for a single node: it builds a block
// whenever the VM reports pending work and on every tick of [interval].
type Builder struct {
	vm       *VM
	toEngine <-chan common.Message
	interval time.Duration
}

// NewBuilder returns a builder for [vm]. [toEngine] must be the channel the
// VM was initialized with. A zero [interval] disables the ticker.
func NewBuilder(vm *VM, toEngine <-chan common.Message, interval time.Duration) *Builder {
	return &Builder{
		vm:       vm,
		toEngine: toEngine,
		interval: interval,
	}
}

// Run builds blocks until [ctx] is done.
func (b *Builder) Run(ctx context.Context) {
	var tick <-chan time.Time
	if b.interval > 0 {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.toEngine:
			if msg != common.PendingTxs {
				continue
			}
		case <-tick:
		}
		b.build(ctx)
	}
}

func (b *Builder) build(ctx context.Context) {
	blk, err := b.vm.BuildBlock(ctx)
	switch {
	case errors.Is(err, errNoPendingBlocks):
	case err != nil:
		log.Error("failed to build block", "err", err)
	default:
		log.Debug("built block", "blkID", blk.ID(), "height", blk.Height())
	}
}
