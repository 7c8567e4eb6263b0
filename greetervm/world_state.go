// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"

	"github.com/ava-labs/greetervm/runtime"
)

var (
	accountPrefix  = []byte("account")
	contractPrefix = []byte("contract")
	receiptPrefix  = []byte("receipt")
	queuePrefix    = []byte("queue")
	outcomePrefix  = []byte("outcome")

	errUnknownAccount = errors.New("unknown account")
)

// worldState is everything blocks change: accounts, contract storage and the
// receipt scheduler. It reads and writes through whatever database it is
// built on, so a versiondb layer makes a set of changes atomic.
type worldState struct {
	db         database.Database
	accountDB  database.Database
	contractDB database.Database
	receiptDB  database.Database
	queueDB    database.Database
	outcomeDB  database.Database
}

func newWorldState(db database.Database) *worldState {
	return &worldState{
		db:         db,
		accountDB:  prefixdb.New(accountPrefix, db),
		contractDB: prefixdb.New(contractPrefix, db),
		receiptDB:  prefixdb.New(receiptPrefix, db),
		queueDB:    prefixdb.New(queuePrefix, db),
		outcomeDB:  prefixdb.New(outcomePrefix, db),
	}
}

func (w *worldState) GetAccount(id runtime.AccountID) (*Account, error) {
	b, err := w.accountDB.Get([]byte(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", errUnknownAccount, id)
	}
	if err != nil {
		return nil, err
	}
	account := &Account{}
	if err := parse(b, account); err != nil {
		return nil, fmt.Errorf("failed to parse account %s: %w", id, err)
	}
	return account, nil
}

func (w *worldState) HasAccount(id runtime.AccountID) (bool, error) {
	return w.accountDB.Has([]byte(id))
}

func (w *worldState) PutAccount(account *Account) error {
	b, err := Codec.Marshal(CodecVersion, account)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", account.ID, err)
	}
	return w.accountDB.Put([]byte(account.ID), b)
}

// ContractStorage is the storage namespace of the contract deployed to [id].
func (w *worldState) ContractStorage(id runtime.AccountID) database.Database {
	return prefixdb.New([]byte(id), w.contractDB)
}

func (w *worldState) GetReceipt(id ids.ID) (*Receipt, error) {
	b, err := w.receiptDB.Get(id[:])
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{}
	if err := parse(b, receipt); err != nil {
		return nil, fmt.Errorf("failed to parse receipt %s: %w", id, err)
	}
	return receipt, nil
}

func (w *worldState) PutReceipt(receipt *Receipt) error {
	b, err := Codec.Marshal(CodecVersion, receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt %s: %w", receipt.ID, err)
	}
	return w.receiptDB.Put(receipt.ID[:], b)
}

// Enqueue marks [id] ready to run. Receipts run ordered by the height they
// became ready at, then by [seq] within that height.
func (w *worldState) Enqueue(height uint64, seq uint32, id ids.ID) error {
	return w.queueDB.Put(queueKey(height, seq, id), nil)
}

// Dequeue removes and returns at most [limit] ready receipt IDs.
func (w *worldState) Dequeue(limit int) ([]ids.ID, error) {
	it := w.queueDB.NewIterator()
	var keys [][]byte
	for len(keys) < limit && it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate receipt queue: %w", err)
	}

	receiptIDs := make([]ids.ID, 0, len(keys))
	for _, key := range keys {
		receiptID, err := ids.ToID(key[len(key)-len(ids.Empty):])
		if err != nil {
			return nil, err
		}
		if err := w.queueDB.Delete(key); err != nil {
			return nil, err
		}
		receiptIDs = append(receiptIDs, receiptID)
	}
	return receiptIDs, nil
}

// QueueEmpty reports whether no receipt is ready to run.
func (w *worldState) QueueEmpty() (bool, error) {
	it := w.queueDB.NewIterator()
	defer it.Release()

	hasNext := it.Next()
	return !hasNext, it.Error()
}

func (w *worldState) GetOutcome(receiptID ids.ID) (*Outcome, error) {
	b, err := w.outcomeDB.Get(receiptID[:])
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{}
	if err := parse(b, outcome); err != nil {
		return nil, fmt.Errorf("failed to parse outcome of %s: %w", receiptID, err)
	}
	return outcome, nil
}

func (w *worldState) HasOutcome(receiptID ids.ID) (bool, error) {
	return w.outcomeDB.Has(receiptID[:])
}

func (w *worldState) PutOutcome(outcome *Outcome) error {
	b, err := Codec.Marshal(CodecVersion, outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome of %s: %w", outcome.ReceiptID, err)
	}
	return w.outcomeDB.Put(outcome.ReceiptID[:], b)
}

func queueKey(height uint64, seq uint32, id ids.ID) []byte {
	key := make([]byte, 0, wrappers.LongLen+wrappers.IntLen+len(id))
	key = append(key, heightKey(height)...)
	key = binary.BigEndian.AppendUint32(key, seq)
	return append(key, id[:]...)
}
