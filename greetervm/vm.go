// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/avalanchego/version"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/greetervm/runtime"
)

const Name = "greetervm"

var (
	Version = &version.Semantic{
		Major: 0,
		Minor: 1,
		Patch: 0,
	}

	errNoPendingBlocks = errors.New("there is no block to propose")
	errUnknownTx       = errors.New("unknown tx")
)

// VM is a chain that runs contracts. Blocks are built from the mempool and
// the receipt queue, executed on a layer over their parent and written out
// when accepted. BuildBlock accepts right away for a single node, ChainVM
// leaves the decision to consensus.
type VM struct {
	lock sync.Mutex

	// Clock used for block timestamps
	clock mockable.Clock

	config    Config
	contracts map[string]runtime.Contract

	state        State
	lastAccepted *Block
	// preferred is the block new blocks are built on
	preferred ids.ID
	// verifiedBlocks are processing blocks, keyed by ID
	verifiedBlocks map[ids.ID]*Block

	// Proposed txs that haven't been put into a block yet
	mempool *mempool
	metrics *metrics
}

// Initialize this vm
// [db] is this vm's database
// [toEngine] is notified when there is work for a new block
// [genesisBytes] is the JSON genesis, only used on an empty database
// [configBytes] is the JSON config, empty for the defaults
func (vm *VM) Initialize(
	_ context.Context,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	toEngine chan<- common.Message,
	registerer prometheus.Registerer,
) error {
	log.Info("Initializing Greeter VM", "Version", Version)

	config, err := ParseConfig(configBytes)
	if err != nil {
		return err
	}
	vm.config = config

	if vm.contracts == nil {
		vm.contracts = (&Factory{}).New().contracts
	}

	vm.metrics, err = newMetrics(registerer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	vm.state, err = NewState(db, config.BlockCacheSize)
	if err != nil {
		return err
	}
	vm.mempool = newMempool(config.MempoolSize, toEngine)
	vm.verifiedBlocks = make(map[ids.ID]*Block)

	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		if err := vm.initGenesis(genesisBytes); err != nil {
			log.Error("error while initializing genesis", "err", err)
			return err
		}
	}

	lastAcceptedID, err := vm.state.GetLastAccepted()
	if err != nil {
		return err
	}
	vm.lastAccepted, err = vm.getBlock(lastAcceptedID)
	if err != nil {
		return fmt.Errorf("failed to get last accepted block %s: %w", lastAcceptedID, err)
	}
	vm.preferred = lastAcceptedID
	log.Info("initialized vm", "lastAccepted", lastAcceptedID, "height", vm.lastAccepted.Height())

	// receipts may have been left in the queue by the last run
	return vm.notifyIfPending()
}

// initGenesis creates the genesis accounts and the genesis block.
func (vm *VM) initGenesis(genesisBytes []byte) error {
	genesis, err := ParseGenesis(genesisBytes)
	if err != nil {
		return err
	}
	if err := genesis.Verify(vm.contracts); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}

	layer := vm.state.NewLayer()
	exec := newExecutor(layer, vm.contracts, vm.config, 0, genesis.Time(), vm.metrics)
	if err := genesis.apply(exec); err != nil {
		layer.Abort()
		return err
	}

	// Create the genesis block
	// It has no parent and contains no txs.
	genesisBlock, err := newBlock(ids.Empty, 0, genesis.Time(), nil, nil)
	if err != nil {
		layer.Abort()
		return fmt.Errorf("error while creating genesis block: %w", err)
	}
	if err := layer.Commit(); err != nil {
		return err
	}
	genesisBlock.vm = vm
	genesisBlock.status = choices.Accepted
	if err := vm.putAccepted(genesisBlock); err != nil {
		return err
	}
	if err := vm.state.SetInitialized(); err != nil {
		vm.state.Abort()
		return fmt.Errorf("error while setting db to initialized: %w", err)
	}

	// Flush VM's database to underlying db
	if err := vm.state.Commit(); err != nil {
		log.Error("error while committing db", "err", err)
		return err
	}
	return nil
}

// putAccepted indexes [blk] and points the last accepted block at it. The
// caller commits.
func (vm *VM) putAccepted(blk *Block) error {
	if err := vm.state.PutBlock(blk); err != nil {
		vm.state.Abort()
		return err
	}
	if err := vm.state.SetLastAccepted(blk.ID()); err != nil {
		vm.state.Abort()
		return err
	}
	return nil
}

// SubmitTx adds [tx] to the mempool. Signer and receiver must exist.
func (vm *VM) SubmitTx(_ context.Context, tx *Tx) (ids.ID, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if err := tx.SyntacticVerify(); err != nil {
		return ids.Empty, err
	}
	world := vm.state.World()
	for _, id := range []runtime.AccountID{tx.Signer, tx.Receiver} {
		exists, err := world.HasAccount(id)
		if err != nil {
			return ids.Empty, err
		}
		if !exists {
			return ids.Empty, fmt.Errorf("%w: %s", errUnknownAccount, id)
		}
	}

	if err := vm.mempool.Add(tx); err != nil {
		return ids.Empty, err
	}
	vm.metrics.txsSubmitted.Inc()
	vm.metrics.mempoolLen.Set(float64(vm.mempool.Len()))
	log.Debug("added tx to mempool", "txID", tx.ID(), "receiver", tx.Receiver, "method", tx.Method)
	return tx.ID(), nil
}

// BuildBlock builds the next block and accepts it right away, standing in
// for consensus on a single node.
func (vm *VM) BuildBlock(context.Context) (*Block, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	blk, err := vm.buildBlock()
	if err != nil {
		return nil, err
	}
	if err := vm.acceptBlock(blk); err != nil {
		vm.rejectBlock(blk)
		return nil, err
	}
	return blk, nil
}

// buildBlock executes the mempool and the ready receipts on top of the
// preferred block. The result is verified but not yet accepted.
func (vm *VM) buildBlock() (*Block, error) {
	parent := vm.preferredBlock()
	layer, ancestors := vm.layerOn(parent)

	queueEmpty, err := newWorldState(layer).QueueEmpty()
	if err != nil {
		layer.Abort()
		return nil, err
	}
	if queueEmpty && vm.mempool.Len() == 0 {
		layer.Abort()
		return nil, errNoPendingBlocks
	}

	txs := vm.mempool.Drain()
	vm.metrics.mempoolLen.Set(0)

	height := parent.Height() + 1
	// blocks keep whole seconds, so execute with what will be stored
	timestamp := time.Unix(vm.clock.Time().Unix(), 0)
	if timestamp.Before(parent.Timestamp()) {
		timestamp = parent.Timestamp()
	}

	exec := newExecutor(layer, vm.contracts, vm.config, height, timestamp, vm.metrics)
	included, receiptIDs, err := exec.Execute(txs)
	var blk *Block
	if err == nil {
		blk, err = newBlock(parent.ID(), height, timestamp, included, receiptIDs)
	}
	if err != nil {
		layer.Abort()
		vm.requeue(txs)
		log.Error("failed to build block", "height", height, "err", err)
		return nil, err
	}

	blk.vm = vm
	blk.layers = append([]*versiondb.Database{layer}, ancestors...)
	vm.verifiedBlocks[blk.ID()] = blk
	vm.metrics.blocksBuilt.Inc()
	blk.log("built block")
	return blk, nil
}

// verifyBlock re-executes [blk] on top of its parent and checks it reaches
// the receipts it claims.
func (vm *VM) verifyBlock(blk *Block) error {
	if blk.verified() || blk.status == choices.Accepted {
		return nil
	}

	parent, err := vm.getBlock(blk.Parent())
	if err != nil {
		return fmt.Errorf("failed to get parent block %s: %w", blk.Parent(), err)
	}
	switch {
	case !parent.verified() && parent.ID() != vm.lastAccepted.ID():
		return errStaleParent
	case blk.Height() != parent.Height()+1:
		return errWrongHeight
	case blk.Timestamp().Before(parent.Timestamp()):
		return errTimestampTooEarly
	case !blk.Timestamp().Before(vm.clock.Time().Add(time.Hour)):
		return errTimestampTooLate
	}

	layer, ancestors := vm.layerOn(parent)
	exec := newExecutor(layer, vm.contracts, vm.config, blk.Height(), blk.Timestamp(), vm.metrics)
	included, receiptIDs, err := exec.Execute(blk.Txs)
	switch {
	case err != nil:
	case len(included) != len(blk.Txs):
		err = errDuplicateTx
	case !equalIDs(receiptIDs, blk.Receipts):
		err = errReceiptMismatch
	}
	if err != nil {
		layer.Abort()
		return err
	}

	blk.vm = vm
	blk.layers = append([]*versiondb.Database{layer}, ancestors...)
	vm.verifiedBlocks[blk.ID()] = blk
	return nil
}

// acceptBlock writes [blk]'s changes and makes it the last accepted block.
// [blk]'s parent must already be accepted.
func (vm *VM) acceptBlock(blk *Block) error {
	if err := blk.commit(); err != nil {
		vm.state.Abort()
		return err
	}
	blk.status = choices.Accepted
	if err := vm.putAccepted(blk); err != nil {
		blk.status = choices.Processing
		return err
	}
	if err := vm.state.Commit(); err != nil {
		vm.state.Abort()
		blk.status = choices.Processing
		return err
	}

	blk.layers = nil
	delete(vm.verifiedBlocks, blk.ID())
	vm.lastAccepted = blk
	vm.metrics.blocksAccepted.Inc()
	blk.log("accepted block")
	if err := vm.notifyIfPending(); err != nil {
		log.Error("failed to check for pending work", "err", err)
	}
	return nil
}

// rejectBlock drops [blk]'s changes and returns its txs to the mempool.
func (vm *VM) rejectBlock(blk *Block) {
	blk.abort()
	blk.status = choices.Rejected
	delete(vm.verifiedBlocks, blk.ID())
	vm.requeue(blk.Txs)
	vm.metrics.blocksRejected.Inc()
	blk.log("rejected block")
}

func (vm *VM) requeue(txs []*Tx) {
	if dropped := vm.mempool.Requeue(txs); dropped != 0 {
		log.Warn("dropped txs that no longer fit in the mempool", "dropped", dropped)
	}
	vm.metrics.mempoolLen.Set(float64(vm.mempool.Len()))
}

// preferredBlock is the block to build on: the preferred block while it is
// processing, the last accepted one otherwise.
func (vm *VM) preferredBlock() *Block {
	if blk, ok := vm.verifiedBlocks[vm.preferred]; ok {
		return blk
	}
	return vm.lastAccepted
}

// layerOn returns a fresh layer over [parent]'s state, along with the layers
// of [parent] and its processing ancestors, newest first.
func (vm *VM) layerOn(parent *Block) (*versiondb.Database, []*versiondb.Database) {
	if !parent.verified() {
		return vm.state.NewLayer(), nil
	}
	return versiondb.New(parent.layers[0]), parent.layers
}

// getBlock returns a processing or accepted block.
func (vm *VM) getBlock(blkID ids.ID) (*Block, error) {
	if blk, ok := vm.verifiedBlocks[blkID]; ok {
		return blk, nil
	}
	blk, err := vm.state.GetBlock(blkID)
	if err != nil {
		return nil, err
	}
	blk.vm = vm
	return blk, nil
}

// processing reports whether [txID] is in a block waiting for a decision.
func (vm *VM) processing(txID ids.ID) bool {
	for _, blk := range vm.verifiedBlocks {
		for _, tx := range blk.Txs {
			if tx.ID() == txID {
				return true
			}
		}
	}
	return false
}

func equalIDs(a, b []ids.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// notifyIfPending tells the engine to build again while receipts are ready.
func (vm *VM) notifyIfPending() error {
	queueEmpty, err := vm.state.World().QueueEmpty()
	if err != nil {
		return err
	}
	if !queueEmpty || vm.mempool.Len() > 0 {
		vm.mempool.notify()
	}
	return nil
}

// View calls the view method [method] of [receiver] against the last
// accepted state. Nothing it does is persisted.
func (vm *VM) View(_ context.Context, receiver runtime.AccountID, method string, args []byte) ([]byte, []string, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if err := receiver.Validate(); err != nil {
		return nil, nil, err
	}

	layer := vm.state.NewLayer()
	defer layer.Abort()

	exec := newExecutor(layer, vm.contracts, vm.config, vm.lastAccepted.Height(), vm.lastAccepted.Timestamp(), vm.metrics)
	receipt := &Receipt{
		Receiver: receiver,
		Method:   method,
		Args:     args,
	}
	env, result, err := exec.invoke(exec.world, receipt, callView)
	if err != nil {
		return nil, nil, err
	}
	if result.IsPending() {
		return nil, nil, errViewPromise
	}
	return result.Value, env.logs, nil
}

// TxResult is the final result of a tx's call chain.
type TxResult struct {
	Status Status
	Value  []byte
	Error  string
	// Logs of every receipt the tx led to, in execution order.
	Logs []string
}

// TxResult reports [txID] as pending until every receipt it led to has an
// outcome. The value is the one the tx resolved to through any delegations.
func (vm *VM) TxResult(_ context.Context, txID ids.ID) (*TxResult, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.mempool.Has(txID) || vm.processing(txID) {
		return &TxResult{Status: StatusPending}, nil
	}

	world := vm.state.World()
	if _, err := world.GetReceipt(txID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", errUnknownTx, txID)
		}
		return nil, err
	}

	var (
		outcomes []*Outcome
		byID     = make(map[ids.ID]*Outcome)
		queue    = []ids.ID{txID}
	)
	for len(queue) > 0 {
		receiptID := queue[0]
		queue = queue[1:]

		outcome, err := world.GetOutcome(receiptID)
		if errors.Is(err, database.ErrNotFound) {
			return &TxResult{Status: StatusPending}, nil
		}
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
		byID[receiptID] = outcome
		queue = append(queue, outcome.Receipts...)
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Height < outcomes[j].Height
	})
	result := &TxResult{}
	for _, outcome := range outcomes {
		result.Logs = append(result.Logs, outcome.Logs...)
	}

	final := byID[txID]
	for final.Status == StatusDelegated {
		final = byID[final.Next]
	}
	result.Status = final.Status
	result.Value = final.Value
	result.Error = final.Error
	return result, nil
}

// GetAccount returns the account [id] as of the last accepted block.
func (vm *VM) GetAccount(_ context.Context, id runtime.AccountID) (*Account, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return vm.state.World().GetAccount(id)
}

// GetBlock returns the processing or accepted block [blkID]
func (vm *VM) GetBlock(_ context.Context, blkID ids.ID) (*Block, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return vm.getBlock(blkID)
}

func (vm *VM) GetBlockIDAtHeight(_ context.Context, height uint64) (ids.ID, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return vm.state.GetBlockIDAtHeight(height)
}

// ParseBlock parses [b] into a block of this chain. Known blocks are
// returned as they are.
func (vm *VM) ParseBlock(_ context.Context, b []byte) (*Block, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	blk, err := ParseBlock(b)
	if err != nil {
		return nil, err
	}
	if known, err := vm.getBlock(blk.ID()); err == nil {
		return known, nil
	}
	blk.vm = vm
	return blk, nil
}

// SetPreference sets the block new blocks are built on.
func (vm *VM) SetPreference(_ context.Context, blkID ids.ID) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	vm.preferred = blkID
	return nil
}

// LastAccepted returns the block most recently accepted
func (vm *VM) LastAccepted(context.Context) (ids.ID, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return vm.lastAccepted.ID(), nil
}

// CreateHandlers returns a map where:
// Keys: The path extension for this VM's API (empty in this case)
// Values: The handler for the API
func (vm *VM) CreateHandlers(context.Context) (map[string]*common.HTTPHandler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return map[string]*common.HTTPHandler{
		"": {LockOptions: common.NoLock, Handler: server},
	}, server.RegisterService(&Service{vm: vm}, Name)
}

// HealthCheck reports the height of the last accepted block
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	return map[string]uint64{"height": vm.lastAccepted.Height()}, nil
}

// Shutdown closes the database
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == nil {
		return nil
	}
	return vm.state.Close()
}

// Returns this VM's version
func (vm *VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}
