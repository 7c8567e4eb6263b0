// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/greetervm/greetervm"
	"github.com/ava-labs/greetervm/runtime"
)

// Client defines greetervm client operations.
type Client interface {
	// SubmitTx signs a call as [signer] and returns its tx ID
	SubmitTx(ctx context.Context, signer, receiver runtime.AccountID, method string, args interface{}, deposit string) (ids.ID, error)

	// View calls a view method and decodes its result into [result]
	View(ctx context.Context, receiver runtime.AccountID, method string, args interface{}, result interface{}) ([]string, error)

	// GetTxResult fetches the status and result of a tx
	GetTxResult(ctx context.Context, txID ids.ID) (*greetervm.GetTxResultReply, error)

	// WaitForTx polls every [interval] until [txID] is no longer pending
	WaitForTx(ctx context.Context, txID ids.ID, interval time.Duration) (*greetervm.GetTxResultReply, error)

	// GetBlock fetches the contents of a block, the last accepted one if
	// [blockID] is nil
	GetBlock(ctx context.Context, blockID *ids.ID) (*greetervm.GetBlockReply, error)

	GetAccount(ctx context.Context, id runtime.AccountID) (*greetervm.GetAccountReply, error)

	// BuildBlock asks the node to build a block right away
	BuildBlock(ctx context.Context) (ids.ID, uint64, error)

	// Health returns the height of the last accepted block
	Health(ctx context.Context) (uint64, error)
}

// New creates a new client object for the endpoint at [uri].
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri, greetervm.Name)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) SubmitTx(ctx context.Context, signer, receiver runtime.AccountID, method string, args interface{}, deposit string) (ids.ID, error) {
	rawArgs, err := runtime.EncodeArgs(args)
	if err != nil {
		return ids.Empty, err
	}
	resp := new(greetervm.SubmitTxReply)
	err = cli.req.SendRequest(ctx,
		"submitTx",
		&greetervm.SubmitTxArgs{
			Signer:   signer,
			Receiver: receiver,
			Method:   method,
			Args:     rawArgs,
			Deposit:  deposit,
		},
		resp,
	)
	if err != nil {
		return ids.Empty, err
	}
	return resp.TxID, nil
}

func (cli *client) View(ctx context.Context, receiver runtime.AccountID, method string, args interface{}, result interface{}) ([]string, error) {
	rawArgs, err := runtime.EncodeArgs(args)
	if err != nil {
		return nil, err
	}
	resp := new(greetervm.ViewReply)
	err = cli.req.SendRequest(ctx,
		"view",
		&greetervm.ViewArgs{Receiver: receiver, Method: method, Args: rawArgs},
		resp,
	)
	if err != nil {
		return nil, err
	}
	if result != nil && len(resp.Result) != 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return resp.Logs, nil
}

func (cli *client) GetTxResult(ctx context.Context, txID ids.ID) (*greetervm.GetTxResultReply, error) {
	resp := new(greetervm.GetTxResultReply)
	err := cli.req.SendRequest(ctx,
		"getTxResult",
		&greetervm.TxIDArgs{TxID: txID},
		resp,
	)
	return resp, err
}

func (cli *client) WaitForTx(ctx context.Context, txID ids.ID, interval time.Duration) (*greetervm.GetTxResultReply, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := cli.GetTxResult(ctx, txID)
		if err != nil {
			return nil, err
		}
		if resp.Status != greetervm.StatusPending.String() {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (cli *client) GetBlock(ctx context.Context, blockID *ids.ID) (*greetervm.GetBlockReply, error) {
	resp := new(greetervm.GetBlockReply)
	err := cli.req.SendRequest(ctx,
		"getBlock",
		&greetervm.GetBlockArgs{ID: blockID},
		resp,
	)
	return resp, err
}

func (cli *client) GetAccount(ctx context.Context, id runtime.AccountID) (*greetervm.GetAccountReply, error) {
	resp := new(greetervm.GetAccountReply)
	err := cli.req.SendRequest(ctx,
		"getAccount",
		&greetervm.GetAccountArgs{ID: id},
		resp,
	)
	return resp, err
}

func (cli *client) BuildBlock(ctx context.Context) (ids.ID, uint64, error) {
	resp := new(greetervm.BuildBlockReply)
	if err := cli.req.SendRequest(ctx, "buildBlock", struct{}{}, resp); err != nil {
		return ids.Empty, 0, err
	}
	return resp.ID, uint64(resp.Height), nil
}

func (cli *client) Health(ctx context.Context) (uint64, error) {
	resp := new(greetervm.HealthReply)
	if err := cli.req.SendRequest(ctx, "health", struct{}{}, resp); err != nil {
		return 0, err
	}
	return uint64(resp.Height), nil
}
