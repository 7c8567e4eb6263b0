// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/ids"

	log "github.com/inconshreveable/log15"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/greetervm/runtime"
)

var errCannotGetLastAccepted = errors.New("cannot get last accepted block")

// Service is the API service for this VM
type Service struct{ vm *VM }

// SubmitTxArgs are the arguments to SubmitTx
type SubmitTxArgs struct {
	Signer   runtime.AccountID `json:"signer"`
	Receiver runtime.AccountID `json:"receiver"`
	Method   string            `json:"method"`
	Args     json.RawMessage   `json:"args,omitempty"`
	// Deposit in base units, as a decimal string
	Deposit string `json:"deposit,omitempty"`
}

// SubmitTxReply is the reply from SubmitTx
type SubmitTxReply struct {
	TxID ids.ID `json:"txID"`
}

// SubmitTx signs a call as [args.Signer] and adds it to the mempool
func (s *Service) SubmitTx(r *http.Request, args *SubmitTxArgs, reply *SubmitTxReply) error {
	log.Debug("greetervm: SubmitTx called", "signer", args.Signer, "receiver", args.Receiver, "method", args.Method)

	deposit, err := ParseAmount(args.Deposit)
	if err != nil {
		return err
	}
	tx, err := NewTx(args.Signer, args.Receiver, args.Method, args.Args, deposit)
	if err != nil {
		return err
	}
	reply.TxID, err = s.vm.SubmitTx(r.Context(), tx)
	return err
}

// ViewArgs are the arguments to View
type ViewArgs struct {
	Receiver runtime.AccountID `json:"receiver"`
	Method   string            `json:"method"`
	Args     json.RawMessage   `json:"args,omitempty"`
}

// ViewReply is the reply from View
type ViewReply struct {
	Result json.RawMessage `json:"result"`
	Logs   []string        `json:"logs"`
}

// View calls a view method against the last accepted state
func (s *Service) View(r *http.Request, args *ViewArgs, reply *ViewReply) error {
	value, logs, err := s.vm.View(r.Context(), args.Receiver, args.Method, args.Args)
	if err != nil {
		return err
	}
	reply.Result = value
	reply.Logs = logs
	return nil
}

// TxIDArgs is an API request where the only argument is a tx ID
type TxIDArgs struct {
	TxID ids.ID `json:"txID"`
}

// GetTxResultReply is the reply from GetTxResult
type GetTxResultReply struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Logs   []string        `json:"logs"`
}

// GetTxResult returns the status of a tx and, once its call chain has
// finished, the value it resolved to
func (s *Service) GetTxResult(r *http.Request, args *TxIDArgs, reply *GetTxResultReply) error {
	result, err := s.vm.TxResult(r.Context(), args.TxID)
	if err != nil {
		return err
	}
	reply.Status = result.Status.String()
	reply.Result = result.Value
	reply.Error = result.Error
	reply.Logs = result.Logs
	return nil
}

// GetBlockArgs are the arguments to GetBlock
type GetBlockArgs struct {
	// ID of the block we're getting.
	// If left blank, gets the latest block
	ID *ids.ID `json:"id"`
}

// GetBlockReply is the reply from GetBlock
type GetBlockReply struct {
	ID        ids.ID       `json:"id"`
	ParentID  ids.ID       `json:"parentID"`
	Height    cjson.Uint64 `json:"height"`
	Timestamp cjson.Uint64 `json:"timestamp"`
	Txs       []ids.ID     `json:"txs"`
	Receipts  []ids.ID     `json:"receipts"`
}

// GetBlock gets the block whose ID is [args.ID]
// If [args.ID] is empty, get the latest block
func (s *Service) GetBlock(r *http.Request, args *GetBlockArgs, reply *GetBlockReply) error {
	// If an ID is given, parse its string representation to an ids.ID
	// If no ID is given, ID becomes the ID of last accepted block
	var (
		id  ids.ID
		err error
	)

	if args.ID == nil {
		id, err = s.vm.LastAccepted(r.Context())
		if err != nil {
			return errCannotGetLastAccepted
		}
	} else {
		id = *args.ID
	}

	block, err := s.vm.GetBlock(r.Context(), id)
	if err != nil {
		return err
	}

	reply.ID = block.ID()
	reply.ParentID = block.Parent()
	reply.Height = cjson.Uint64(block.Height())
	reply.Timestamp = cjson.Uint64(block.Tmstmp)
	reply.Txs = block.TxIDs()
	reply.Receipts = block.Receipts
	return nil
}

// GetAccountArgs are the arguments to GetAccount
type GetAccountArgs struct {
	ID runtime.AccountID `json:"id"`
}

// GetAccountReply is the reply from GetAccount
type GetAccountReply struct {
	ID       runtime.AccountID `json:"id"`
	Balance  string            `json:"balance"`
	Contract string            `json:"contract"`
}

// GetAccount returns the balance and contract of an account
func (s *Service) GetAccount(r *http.Request, args *GetAccountArgs, reply *GetAccountReply) error {
	account, err := s.vm.GetAccount(r.Context(), args.ID)
	if err != nil {
		return err
	}
	reply.ID = account.ID
	reply.Balance = account.Balance.String()
	reply.Contract = account.Contract
	return nil
}

// BuildBlockReply is the reply from BuildBlock
type BuildBlockReply struct {
	ID     ids.ID       `json:"id"`
	Height cjson.Uint64 `json:"height"`
}

// BuildBlock builds a block right away instead of waiting for the next tick
func (s *Service) BuildBlock(r *http.Request, _ *struct{}, reply *BuildBlockReply) error {
	block, err := s.vm.BuildBlock(r.Context())
	if err != nil {
		return err
	}
	reply.ID = block.ID()
	reply.Height = cjson.Uint64(block.Height())
	return nil
}

// HealthReply is the reply from Health
type HealthReply struct {
	Height cjson.Uint64 `json:"height"`
}

// Health returns the height of the last accepted block
func (s *Service) Health(r *http.Request, _ *struct{}, reply *HealthReply) error {
	id, err := s.vm.LastAccepted(r.Context())
	if err != nil {
		return errCannotGetLastAccepted
	}
	block, err := s.vm.GetBlock(r.Context(), id)
	if err != nil {
		return err
	}
	reply.Height = cjson.Uint64(block.Height())
	return nil
}
