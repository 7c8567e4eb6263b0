// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/greetervm/contracts/greeter"
)

func TestBuilderSettlesCallChains(t *testing.T) {
	require := require.New(t)
	vm, _, toEngine := newTestVM(t, testGenesis(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewBuilder(vm, toEngine, 0).Run(ctx)
	}()

	txID := submit(t, vm, alice, greeterAcct, "transfer", &greeter.TransferArgs{ReceiverID: bob.String(), Amount: "5"}, 1)
	require.Eventually(func() bool {
		result, err := vm.TxResult(ctx, txID)
		return err == nil && result.Status == StatusSuccess
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	lastAccepted, err := vm.LastAccepted(context.Background())
	require.NoError(err)
	blk, err := vm.GetBlock(context.Background(), lastAccepted)
	require.NoError(err)
	require.Equal(uint64(3), blk.Height())
}
