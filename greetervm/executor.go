// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/greetervm/runtime"
)

var (
	errTimedOut      = errors.New("receipt timed out")
	errNoContract    = errors.New("no contract deployed")
	errUnknownMethod = errors.New("unknown method")
	errPrivateMethod = errors.New("method can only be called by the contract itself")
	errNotPayable    = errors.New("method does not accept a deposit")
	errNotViewMethod = errors.New("method is not a view")
	errInitMethod    = errors.New("method can only be called when the contract is deployed")
	errContractPanic = errors.New("contract panicked")
)

// executor applies txs and ready receipts at a single height. Every write
// goes to [db], normally a versiondb layer over the accepted state, so a
// block is applied all at once or not at all.
type executor struct {
	db        database.Database
	world     *worldState
	contracts map[string]runtime.Contract
	config    Config
	height    uint64
	timestamp time.Time
	metrics   *metrics

	// seq orders the receipts queued at [height]
	seq uint32
}

func newExecutor(
	db database.Database,
	contracts map[string]runtime.Contract,
	config Config,
	height uint64,
	timestamp time.Time,
	metrics *metrics,
) *executor {
	return &executor{
		db:        db,
		world:     newWorldState(db),
		contracts: contracts,
		config:    config,
		height:    height,
		timestamp: timestamp,
		metrics:   metrics,
	}
}

// Execute converts [txs] into receipts, then runs the receipts that were
// ready when the block started. Receipts scheduled while running are left
// for a later block. It returns the txs that were not already known, in
// order, and the receipts it ran.
func (e *executor) Execute(txs []*Tx) ([]*Tx, []ids.ID, error) {
	included := make([]*Tx, 0, len(txs))
	for _, tx := range txs {
		ok, err := e.convertTx(tx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to convert tx %s: %w", tx.ID(), err)
		}
		if ok {
			included = append(included, tx)
		}
	}

	receiptIDs, err := e.world.Dequeue(e.config.MaxReceiptsPerBlock)
	if err != nil {
		return nil, nil, err
	}
	for _, receiptID := range receiptIDs {
		if err := e.executeReceipt(receiptID); err != nil {
			return nil, nil, fmt.Errorf("failed to execute receipt %s: %w", receiptID, err)
		}
	}
	return included, receiptIDs, nil
}

// convertTx turns [tx] into a ready receipt, paying its deposit from the
// signer. A tx whose deposit cannot be paid resolves as failed right away.
func (e *executor) convertTx(tx *Tx) (bool, error) {
	_, err := e.world.GetReceipt(tx.ID())
	switch {
	case err == nil:
		log.Debug("dropping duplicate tx", "txID", tx.ID())
		return false, nil
	case !errors.Is(err, database.ErrNotFound):
		return false, err
	}

	receipt := tx.Receipt()
	if err := e.world.PutReceipt(receipt); err != nil {
		return false, err
	}

	if err := debit(e.world, receipt.Signer, receipt.Deposit.Int()); err != nil {
		if !errors.Is(err, errUnknownAccount) && !errors.Is(err, errInsufficientBalance) {
			return false, err
		}
		e.metrics.receiptsFailed.Inc()
		return true, e.world.PutOutcome(&Outcome{
			ReceiptID: receipt.ID,
			Height:    e.height,
			Status:    StatusFailure,
			Error:     err.Error(),
		})
	}
	return true, e.enqueue(e.world, receipt.ID)
}

func (e *executor) executeReceipt(receiptID ids.ID) error {
	receipt, err := e.world.GetReceipt(receiptID)
	if err != nil {
		return err
	}

	if receipt.Expired(e.height) {
		e.metrics.receiptsTimedOut.Inc()
		return e.fail(receipt, errTimedOut)
	}

	e.metrics.receiptsExecuted.Inc()
	layer := versiondb.New(e.db)
	outcome, err := e.run(newWorldState(layer), receipt)
	if err != nil {
		layer.Abort()
		return e.fail(receipt, err)
	}
	if err := layer.Commit(); err != nil {
		return err
	}

	for _, msg := range outcome.Logs {
		log.Debug("contract log", "account", receipt.Receiver, "receiptID", receipt.ID, "msg", msg)
	}
	if err := e.world.PutOutcome(outcome); err != nil {
		return err
	}
	if outcome.Status == StatusDelegated {
		return nil
	}
	return e.resolve(receipt.DataReceivers, outcome.PromiseResult())
}

// run invokes [receipt] on [world] and schedules the promises it made.
func (e *executor) run(world *worldState, receipt *Receipt) (*Outcome, error) {
	env, result, err := e.invoke(world, receipt, callMutable)
	if err != nil {
		return nil, err
	}

	created, err := e.createReceipts(world, receipt, env.promises)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		ReceiptID: receipt.ID,
		Height:    e.height,
		Status:    StatusSuccess,
		Value:     result.Value,
		Logs:      env.logs,
		Receipts:  make([]ids.ID, len(created)),
	}
	for i, r := range created {
		outcome.Receipts[i] = r.ID
	}
	if result.IsPending() {
		index := int(*result.Promise)
		if index >= len(created) {
			return nil, fmt.Errorf("%w: returned %d", errUnknownPromise, index)
		}
		// whoever waits on this receipt now waits on the returned promise
		tail := created[index]
		tail.DataReceivers = append(tail.DataReceivers, receipt.DataReceivers...)
		outcome.Status = StatusDelegated
		outcome.Value = nil
		outcome.Next = tail.ID
	}

	for _, r := range created {
		if err := world.PutReceipt(r); err != nil {
			return nil, err
		}
		if r.Pending != 0 {
			continue
		}
		if err := e.enqueue(world, r.ID); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// callMode is how a receipt's method is invoked.
type callMode uint8

const (
	callMutable callMode = iota
	callView
	// callDeploy runs a genesis account's init call
	callDeploy
)

// invoke calls the method named by [receipt] with the receipt's deposit
// credited to the receiver.
func (e *executor) invoke(world *worldState, receipt *Receipt, mode callMode) (*hostEnv, runtime.Result, error) {
	account, err := world.GetAccount(receipt.Receiver)
	if err != nil {
		return nil, runtime.Result{}, err
	}
	contract, ok := e.contracts[account.Contract]
	if account.Contract == "" || !ok {
		return nil, runtime.Result{}, fmt.Errorf("%w: %s", errNoContract, receipt.Receiver)
	}
	method, ok := contract.Methods()[receipt.Method]
	if !ok {
		return nil, runtime.Result{}, fmt.Errorf("%w: %s on %s", errUnknownMethod, receipt.Method, contract.Name())
	}

	view := mode == callView
	switch {
	case view && !method.View:
		return nil, runtime.Result{}, fmt.Errorf("%w: %s", errNotViewMethod, receipt.Method)
	case method.Init && mode != callDeploy:
		return nil, runtime.Result{}, fmt.Errorf("%w: %s", errInitMethod, receipt.Method)
	case method.Private && receipt.Predecessor != receipt.Receiver:
		return nil, runtime.Result{}, fmt.Errorf("%w: %s", errPrivateMethod, receipt.Method)
	case !method.Payable && !receipt.Deposit.IsZero():
		return nil, runtime.Result{}, fmt.Errorf("%w: %s", errNotPayable, receipt.Method)
	}

	if !receipt.Deposit.IsZero() {
		if err := account.Credit(receipt.Deposit.Int()); err != nil {
			return nil, runtime.Result{}, err
		}
		if err := world.PutAccount(account); err != nil {
			return nil, runtime.Result{}, err
		}
	}

	var storage runtime.Storage = world.ContractStorage(receipt.Receiver)
	if view {
		storage = readOnlyStorage{Storage: storage}
	}
	env := &hostEnv{
		receipt:   receipt,
		height:    e.height,
		timestamp: e.timestamp,
		storage:   storage,
		view:      view,
	}
	result, err := callHandler(method.Handler, env, receipt.Args)
	return env, result, err
}

// createReceipts turns the promises made by [parent] into receipts, paying
// their deposits from the parent's receiver.
func (e *executor) createReceipts(world *worldState, parent *Receipt, promises []*promise) ([]*Receipt, error) {
	created := make([]*Receipt, len(promises))
	for i, p := range promises {
		if err := debit(world, parent.Receiver, p.deposit); err != nil {
			return nil, err
		}

		r := &Receipt{
			ID:          promiseReceiptID(parent.ID, uint32(i)),
			Predecessor: parent.Receiver,
			Signer:      parent.Signer,
			Receiver:    p.receiver,
			Method:      p.method,
			Args:        p.args,
			Deposit:     AmountOf(p.deposit),
		}
		if p.after == nil {
			r.Deadline = e.height + e.config.ReceiptTimeout
		} else {
			r.Pending = 1
			dependency := created[*p.after]
			dependency.DataReceivers = append(dependency.DataReceivers, r.ID)
		}
		created[i] = r
	}
	return created, nil
}

// fail resolves [receipt] as failed without running it again. Its deposit
// goes back to the predecessor and its data receivers get a failed result.
func (e *executor) fail(receipt *Receipt, cause error) error {
	log.Debug("receipt failed",
		"receiptID", receipt.ID,
		"receiver", receipt.Receiver,
		"method", receipt.Method,
		"err", cause,
	)
	e.metrics.receiptsFailed.Inc()

	if err := credit(e.world, receipt.Predecessor, receipt.Deposit.Int()); err != nil {
		return fmt.Errorf("failed to refund %s: %w", receipt.Predecessor, err)
	}
	outcome := &Outcome{
		ReceiptID: receipt.ID,
		Height:    e.height,
		Status:    StatusFailure,
		Error:     cause.Error(),
	}
	if err := e.world.PutOutcome(outcome); err != nil {
		return err
	}
	return e.resolve(receipt.DataReceivers, outcome.PromiseResult())
}

// resolve delivers [result] to each receipt in [receivers], queueing those
// with nothing left to wait on.
func (e *executor) resolve(receivers []ids.ID, result runtime.PromiseResult) error {
	for _, receiverID := range receivers {
		r, err := e.world.GetReceipt(receiverID)
		if err != nil {
			return fmt.Errorf("failed to get data receiver %s: %w", receiverID, err)
		}
		r.Results = append(r.Results, result)
		if r.Pending > 0 {
			r.Pending--
		}
		if err := e.world.PutReceipt(r); err != nil {
			return err
		}
		if r.Pending != 0 {
			continue
		}
		if err := e.enqueue(e.world, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// enqueue queues [id] behind everything queued so far at this height.
func (e *executor) enqueue(world *worldState, id ids.ID) error {
	seq := e.seq
	e.seq++
	return world.Enqueue(e.height, seq, id)
}

func callHandler(handler runtime.Handler, env runtime.Env, args []byte) (result runtime.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errContractPanic, r)
		}
	}()
	return handler(env, args)
}

func credit(world *worldState, id runtime.AccountID, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	account, err := world.GetAccount(id)
	if err != nil {
		return err
	}
	if err := account.Credit(amount); err != nil {
		return err
	}
	return world.PutAccount(account)
}

func debit(world *worldState, id runtime.AccountID, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	account, err := world.GetAccount(id)
	if err != nil {
		return err
	}
	if err := account.Debit(amount); err != nil {
		return err
	}
	return world.PutAccount(account)
}
