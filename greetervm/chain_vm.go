// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database/manager"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow"
	"github.com/ava-labs/avalanchego/snow/consensus/snowman"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ava-labs/avalanchego/snow/engine/snowman/block"
	"github.com/ava-labs/avalanchego/version"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"
)

var _ block.ChainVM = &ChainVM{}

// ChainVM runs a VM inside an avalanchego node. The consensus engine decides
// which built blocks get accepted.
type ChainVM struct {
	factory *Factory
	vm      *VM
}

func NewChainVM(factory *Factory) *ChainVM {
	return &ChainVM{
		factory: factory,
		vm:      factory.New(),
	}
}

// VM returns the wrapped VM.
func (c *ChainVM) VM() *VM { return c.vm }

// Initialize this vm
// [ctx] is this vm's context
// [dbManager] is the manager of this vm's database
// [toEngine] is used to notify the consensus engine that new blocks are
//   ready to be added to consensus
// The data in the genesis block is [genesisData]
func (c *ChainVM) Initialize(
	ctx *snow.Context,
	dbManager manager.Manager,
	genesisData []byte,
	_ []byte,
	configData []byte,
	toEngine chan<- common.Message,
	_ []*common.Fx,
	_ common.AppSender,
) error {
	registry := prometheus.NewRegistry()
	if err := ctx.Metrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register vm metrics: %w", err)
	}
	log.Info("initializing chain vm", "chainID", ctx.ChainID, "nodeID", ctx.NodeID)
	return c.vm.Initialize(
		context.Background(),
		dbManager.Current().Database,
		genesisData,
		configData,
		toEngine,
		registry,
	)
}

// SetState accepts every engine state. Blocks are executed the same way
// while bootstrapping and in normal operation.
func (*ChainVM) SetState(state snow.State) error {
	switch state {
	case snow.StateSyncing, snow.Bootstrapping, snow.NormalOp:
		log.Info("chain vm state changed", "state", state)
		return nil
	default:
		return snow.ErrUnknownState
	}
}

// Shutdown closes the database
func (c *ChainVM) Shutdown() error { return c.vm.Shutdown(context.Background()) }

// Returns this VM's version
func (c *ChainVM) Version() (string, error) { return c.vm.Version(context.Background()) }

// CreateStaticHandlers returns the handlers that need no chain state.
func (c *ChainVM) CreateStaticHandlers() (map[string]*common.HTTPHandler, error) {
	return c.factory.CreateStaticHandlers()
}

// CreateHandlers returns the VM's API handlers
func (c *ChainVM) CreateHandlers() (map[string]*common.HTTPHandler, error) {
	return c.vm.CreateHandlers(context.Background())
}

// HealthCheck reports the height of the last accepted block
func (c *ChainVM) HealthCheck() (interface{}, error) {
	return c.vm.HealthCheck(context.Background())
}

// BuildBlock returns a block built on the preferred block. It is verified
// and waits for consensus to accept or reject it.
func (c *ChainVM) BuildBlock() (snowman.Block, error) {
	c.vm.lock.Lock()
	defer c.vm.lock.Unlock()

	blk, err := c.vm.buildBlock()
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// GetBlock implements the snowman.ChainVM interface
func (c *ChainVM) GetBlock(blkID ids.ID) (snowman.Block, error) {
	blk, err := c.vm.GetBlock(context.Background(), blkID)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// ParseBlock implements the snowman.ChainVM interface
func (c *ChainVM) ParseBlock(b []byte) (snowman.Block, error) {
	blk, err := c.vm.ParseBlock(context.Background(), b)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// SetPreference sets the block new blocks are built on
func (c *ChainVM) SetPreference(blkID ids.ID) error {
	return c.vm.SetPreference(context.Background(), blkID)
}

// LastAccepted returns the block most recently accepted
func (c *ChainVM) LastAccepted() (ids.ID, error) {
	return c.vm.LastAccepted(context.Background())
}

// This VM doesn't (currently) have any app-specific messages
func (*ChainVM) AppRequest(nodeID ids.NodeID, requestID uint32, deadline time.Time, request []byte) error {
	return nil
}

// This VM doesn't (currently) have any app-specific messages
func (*ChainVM) AppResponse(nodeID ids.NodeID, requestID uint32, response []byte) error {
	return nil
}

// This VM doesn't (currently) have any app-specific messages
func (*ChainVM) AppRequestFailed(nodeID ids.NodeID, requestID uint32) error {
	return nil
}

// This VM doesn't (currently) have any app-specific messages
func (*ChainVM) AppGossip(nodeID ids.NodeID, msg []byte) error {
	return nil
}

func (*ChainVM) Connected(nodeID ids.NodeID, nodeVersion *version.Application) error {
	return nil
}

func (*ChainVM) Disconnected(nodeID ids.NodeID) error {
	return nil
}
