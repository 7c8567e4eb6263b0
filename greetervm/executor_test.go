// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/greetervm/contracts/greeter"
	"github.com/ava-labs/greetervm/runtime"
)

const testContractName = "test-contract"

var (
	errTestAbort = errors.New("test abort")
	testKey      = []byte("k")
)

// testContract exercises the host through methods that misbehave on purpose.
type testContract struct{}

func (*testContract) Name() string { return testContractName }

func (c *testContract) Methods() runtime.Methods {
	return runtime.Methods{
		"noop":    {Handler: c.noop},
		"private": {Handler: c.noop, Private: true},
		"payable": {Handler: c.noop, Payable: true},
		"init":    {Handler: c.write, Init: true},
		"write":   {Handler: c.write},
		"read":    {Handler: c.read, View: true},
		"echo":    {Handler: c.echo},

		"write_then_fail": {Handler: c.writeThenFail},
		"panic":           {Handler: c.explode},
		"bad_promise":     {Handler: c.badPromise},
		"delegate":        {Handler: c.delegate},
		"call_self":       {Handler: c.callSelf},
		"call_missing":    {Handler: c.callMissing},
		"record_result":   {Handler: c.recordResult, Private: true},

		"view_write":   {Handler: c.write, View: true},
		"view_promise": {Handler: c.callSelf, View: true},
	}
}

func (*testContract) noop(runtime.Env, []byte) (runtime.Result, error) {
	return runtime.Void(), nil
}

func (*testContract) write(env runtime.Env, args []byte) (runtime.Result, error) {
	return runtime.Void(), env.Storage().Put(testKey, args)
}

func (*testContract) read(env runtime.Env, _ []byte) (runtime.Result, error) {
	value, err := env.Storage().Get(testKey)
	if errors.Is(err, database.ErrNotFound) {
		return runtime.JSON(nil)
	}
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Result{Value: value}, nil
}

func (*testContract) echo(_ runtime.Env, args []byte) (runtime.Result, error) {
	return runtime.Result{Value: args}, nil
}

func (c *testContract) writeThenFail(env runtime.Env, args []byte) (runtime.Result, error) {
	if _, err := c.write(env, args); err != nil {
		return runtime.Result{}, err
	}
	if _, err := env.PromiseCreate(env.CurrentAccountID(), "noop", nil, nil); err != nil {
		return runtime.Result{}, err
	}
	env.Log("never seen")
	return runtime.Result{}, errTestAbort
}

func (*testContract) explode(runtime.Env, []byte) (runtime.Result, error) {
	panic("boom")
}

func (*testContract) badPromise(runtime.Env, []byte) (runtime.Result, error) {
	return runtime.Pending(3), nil
}

func (*testContract) delegate(env runtime.Env, args []byte) (runtime.Result, error) {
	env.Log("delegating")
	index, err := env.PromiseCreate(env.CurrentAccountID(), "echo", args, nil)
	if err != nil {
		return runtime.Result{}, err
	}
	return runtime.Pending(index), nil
}

func (*testContract) callSelf(env runtime.Env, _ []byte) (runtime.Result, error) {
	_, err := env.PromiseCreate(env.CurrentAccountID(), "noop", nil, nil)
	return runtime.Void(), err
}

func (c *testContract) callMissing(env runtime.Env, _ []byte) (runtime.Result, error) {
	return runtime.Forward(env, runtime.Call{Receiver: "nobody.test", Method: "noop"}, "record_result")
}

func (*testContract) recordResult(env runtime.Env, _ []byte) (runtime.Result, error) {
	results := env.PromiseResults()
	if len(results) != 1 {
		return runtime.Result{}, errTestAbort
	}
	status := results[0].Status.String()
	if err := env.Storage().Put(testKey, []byte(`"`+status+`"`)); err != nil {
		return runtime.Result{}, err
	}
	return runtime.JSON(status)
}

func TestReceiptAbortIsAtomic(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "write", "kept", 0)
	settle(t, vm, txID)

	txID = submit(t, vm, alice, testAccount, "write_then_fail", "lost", 0)
	result := settle(t, vm, txID)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errTestAbort.Error())
	require.Empty(result.Logs)

	require.Equal("kept", view[string](t, vm, testAccount, "read", nil))

	// the promise made before failing was never scheduled
	_, err := vm.BuildBlock(ctx)
	require.ErrorIs(err, errNoPendingBlocks)
}

func TestContractPanicFails(t *testing.T) {
	require := require.New(t)
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "panic", nil, 0)
	result := settle(t, vm, txID)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errContractPanic.Error())
	require.Contains(result.Error, "boom")

	// the chain keeps going
	txID = submit(t, vm, alice, testAccount, "noop", nil, 0)
	require.Equal(StatusSuccess, settle(t, vm, txID).Status)
}

func TestReturnUnknownPromise(t *testing.T) {
	require := require.New(t)
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "bad_promise", nil, 0)
	result := settle(t, vm, txID)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errUnknownPromise.Error())
}

func TestDelegatedValue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "delegate", map[string]int{"n": 7}, 0)
	_, err := vm.BuildBlock(ctx)
	require.NoError(err)
	result, err := vm.TxResult(ctx, txID)
	require.NoError(err)
	require.Equal(StatusPending, result.Status)

	result = settle(t, vm, txID)
	require.Equal(StatusSuccess, result.Status)
	require.JSONEq(`{"n":7}`, string(result.Value))
	require.Equal([]string{"delegating"}, result.Logs)
}

func TestFailedCallReachesContinuation(t *testing.T) {
	require := require.New(t)
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "call_missing", nil, 0)
	result := settle(t, vm, txID)
	require.Equal(StatusSuccess, result.Status)
	require.Equal(`"failed"`, string(result.Value))
	require.Equal("failed", view[string](t, vm, testAccount, "read", nil))
}

func TestMethodAccess(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		deposit  uint64
		expected error
	}{
		{name: "private", method: "private", expected: errPrivateMethod},
		{name: "continuation", method: "record_result", expected: errPrivateMethod},
		{name: "not payable", method: "noop", deposit: 5, expected: errNotPayable},
		{name: "init", method: "init", expected: errInitMethod},
		{name: "unknown method", method: "missing", expected: errUnknownMethod},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			vm, _, _ := newTestVM(t, testGenesis(t), nil)

			txID := submit(t, vm, alice, testAccount, test.method, nil, test.deposit)
			result := settle(t, vm, txID)
			require.Equal(StatusFailure, result.Status)
			require.Contains(result.Error, test.expected.Error())

			// deposits come back on failure
			require.Equal(uint64(1000), balance(t, vm, alice))
			require.Equal(uint64(0), balance(t, vm, testAccount))
		})
	}
}

func TestInitMethodOnlyAtDeploy(t *testing.T) {
	require := require.New(t)
	genesis := testGenesis(t)
	genesis.Accounts[4].Init = &GenesisInit{Method: "init", Args: mustJSON(t, "deployed")}
	vm, _, _ := newTestVM(t, genesis, nil)
	require.Equal("deployed", view[string](t, vm, testAccount, "read", nil))

	// not even the contract itself may run it again
	txID := submit(t, vm, testAccount, testAccount, "init", "again", 0)
	result := settle(t, vm, txID)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errInitMethod.Error())
	require.Equal("deployed", view[string](t, vm, testAccount, "read", nil))

	txID = submit(t, vm, alice, greeterAcct, "new", &greeter.InitArgs{TokenAccount: tokenAccount}, 0)
	result = settle(t, vm, txID)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errInitMethod.Error())
}

func TestPayableDeposit(t *testing.T) {
	require := require.New(t)
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "payable", nil, 5)
	require.Equal(StatusSuccess, settle(t, vm, txID).Status)
	require.Equal(uint64(995), balance(t, vm, alice))
	require.Equal(uint64(5), balance(t, vm, testAccount))
}

func TestDepositExceedsBalance(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	txID := submit(t, vm, alice, testAccount, "payable", nil, 5000)
	block, err := vm.BuildBlock(ctx)
	require.NoError(err)
	require.Equal([]ids.ID{txID}, block.TxIDs())
	require.Empty(block.Receipts)

	result, err := vm.TxResult(ctx, txID)
	require.NoError(err)
	require.Equal(StatusFailure, result.Status)
	require.Contains(result.Error, errInsufficientBalance.Error())
	require.Equal(uint64(1000), balance(t, vm, alice))
}

func TestMaxReceiptsPerBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	vm, _, toEngine := newTestVM(t, testGenesis(t), []byte(`{"maxReceiptsPerBlock": 1}`))

	txIDs := []ids.ID{
		submit(t, vm, alice, testAccount, "noop", nil, 0),
		submit(t, vm, alice, testAccount, "noop", nil, 0),
		submit(t, vm, alice, testAccount, "noop", nil, 0),
	}
	<-toEngine

	block, err := vm.BuildBlock(ctx)
	require.NoError(err)
	require.Len(block.Txs, 3)
	require.Len(block.Receipts, 1)
	// receipts are still queued, so the engine is asked for another block
	<-toEngine

	for i := 0; i < 2; i++ {
		block, err = vm.BuildBlock(ctx)
		require.NoError(err)
		require.Empty(block.Txs)
		require.Len(block.Receipts, 1)
	}
	for _, txID := range txIDs {
		result, err := vm.TxResult(ctx, txID)
		require.NoError(err)
		require.Equal(StatusSuccess, result.Status)
	}
	_, err = vm.BuildBlock(ctx)
	require.ErrorIs(err, errNoPendingBlocks)
}

func newTestExecutor(t *testing.T, db database.Database, height uint64) *executor {
	t.Helper()
	metrics, err := newMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	contracts := map[string]runtime.Contract{testContractName: &testContract{}}
	return newExecutor(db, contracts, DefaultConfig(), height, time.Unix(genesisTimestamp, 0), metrics)
}

func TestExpiredReceiptTimesOut(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	world := newWorldState(db)

	require.NoError(world.PutAccount(&Account{ID: alice}))
	require.NoError(world.PutAccount(&Account{ID: testAccount, Contract: testContractName}))

	waiter := &Receipt{
		ID:          ids.GenerateTestID(),
		Predecessor: alice,
		Signer:      alice,
		Receiver:    alice,
		Method:      "record_result",
		Pending:     1,
	}
	expired := &Receipt{
		ID:            ids.GenerateTestID(),
		Predecessor:   alice,
		Signer:        alice,
		Receiver:      testAccount,
		Method:        "write",
		Deposit:       AmountOf(uint256.NewInt(5)),
		Deadline:      2,
		DataReceivers: []ids.ID{waiter.ID},
	}
	require.NoError(world.PutReceipt(waiter))
	require.NoError(world.PutReceipt(expired))
	require.NoError(world.Enqueue(1, 0, expired.ID))

	exec := newTestExecutor(t, db, 3)
	txs, receiptIDs, err := exec.Execute(nil)
	require.NoError(err)
	require.Empty(txs)
	require.Equal([]ids.ID{expired.ID}, receiptIDs)

	outcome, err := world.GetOutcome(expired.ID)
	require.NoError(err)
	require.Equal(StatusFailure, outcome.Status)
	require.Equal(errTimedOut.Error(), outcome.Error)

	// the receipt never ran
	_, err = world.ContractStorage(testAccount).Get(testKey)
	require.ErrorIs(err, database.ErrNotFound)

	account, err := world.GetAccount(alice)
	require.NoError(err)
	require.Equal(uint64(5), account.Balance.Int().Uint64())

	resolved, err := world.GetReceipt(waiter.ID)
	require.NoError(err)
	require.Zero(resolved.Pending)
	require.Len(resolved.Results, 1)
	require.Equal(runtime.PromiseFailed, resolved.Results[0].Status)

	ready, err := world.Dequeue(10)
	require.NoError(err)
	require.Equal([]ids.ID{waiter.ID}, ready)
}

func TestReceiptAtDeadlineRuns(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	world := newWorldState(db)

	require.NoError(world.PutAccount(&Account{ID: alice}))
	require.NoError(world.PutAccount(&Account{ID: testAccount, Contract: testContractName}))
	receipt := &Receipt{
		ID:          ids.GenerateTestID(),
		Predecessor: alice,
		Signer:      alice,
		Receiver:    testAccount,
		Method:      "write",
		Args:        []byte(`"v"`),
		Deadline:    3,
	}
	require.NoError(world.PutReceipt(receipt))
	require.NoError(world.Enqueue(1, 0, receipt.ID))

	_, _, err := newTestExecutor(t, db, 3).Execute(nil)
	require.NoError(err)

	outcome, err := world.GetOutcome(receipt.ID)
	require.NoError(err)
	require.Equal(StatusSuccess, outcome.Status)
	value, err := world.ContractStorage(testAccount).Get(testKey)
	require.NoError(err)
	require.Equal([]byte(`"v"`), value)
}

func TestPromiseDeadline(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	world := newWorldState(db)

	require.NoError(world.PutAccount(&Account{ID: alice}))
	require.NoError(world.PutAccount(&Account{ID: testAccount, Contract: testContractName}))
	receipt := &Receipt{
		ID:          ids.GenerateTestID(),
		Predecessor: alice,
		Signer:      alice,
		Receiver:    testAccount,
		Method:      "call_missing",
	}
	require.NoError(world.PutReceipt(receipt))
	require.NoError(world.Enqueue(4, 0, receipt.ID))

	_, _, err := newTestExecutor(t, db, 4).Execute(nil)
	require.NoError(err)

	outcome, err := world.GetOutcome(receipt.ID)
	require.NoError(err)
	require.Equal(StatusDelegated, outcome.Status)
	require.Len(outcome.Receipts, 2)
	require.Equal(outcome.Receipts[1], outcome.Next)

	outbound, err := world.GetReceipt(outcome.Receipts[0])
	require.NoError(err)
	require.Equal(uint64(4)+DefaultConfig().ReceiptTimeout, outbound.Deadline)
	require.Equal(testAccount, outbound.Predecessor)
	require.Equal(alice, outbound.Signer)
	require.Equal([]ids.ID{outcome.Next}, outbound.DataReceivers)

	continuation, err := world.GetReceipt(outcome.Next)
	require.NoError(err)
	require.Equal(uint32(1), continuation.Pending)
	require.Zero(continuation.Deadline)

	ready, err := world.Dequeue(10)
	require.NoError(err)
	require.Equal([]ids.ID{outbound.ID}, ready)
}

func TestCallHandlerRecoversPanic(t *testing.T) {
	_, err := callHandler(func(runtime.Env, []byte) (runtime.Result, error) {
		panic(errTestAbort)
	}, nil, nil)
	require.ErrorIs(t, err, errContractPanic)
}

func TestOutcomeCodec(t *testing.T) {
	require := require.New(t)
	outcome := &Outcome{
		ReceiptID: ids.GenerateTestID(),
		Height:    7,
		Status:    StatusDelegated,
		Logs:      []string{"a", "b"},
		Receipts:  []ids.ID{ids.GenerateTestID()},
		Next:      ids.GenerateTestID(),
	}
	b, err := Codec.Marshal(CodecVersion, outcome)
	require.NoError(err)
	parsed := &Outcome{}
	require.NoError(parse(b, parsed))
	require.Equal(outcome.Next, parsed.Next)
	require.Equal(outcome.Logs, parsed.Logs)
	require.Equal("delegated", parsed.Status.String())
	// only a successful outcome delivers its value
	require.Equal(runtime.PromiseFailed, parsed.PromiseResult().Status)
}
