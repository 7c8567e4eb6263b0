// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/google/uuid"

	"github.com/ava-labs/greetervm/runtime"
)

// maxArgsLen bounds the JSON arguments of a single call.
const maxArgsLen = 64 * 1024

var (
	errEmptyMethod  = errors.New("empty method name")
	errArgsTooLarge = errors.New("arguments too large")
)

// Tx is a function call signed by [Signer]. A tx becomes the first receipt
// of its call chain and shares its ID.
type Tx struct {
	Signer   runtime.AccountID `serialize:"true" json:"signer"`
	Receiver runtime.AccountID `serialize:"true" json:"receiver"`
	Method   string            `serialize:"true" json:"method"`
	Args     []byte            `serialize:"true" json:"args"`
	Deposit  Amount            `serialize:"true" json:"-"`
	// Nonce keeps otherwise identical calls apart.
	Nonce [16]byte `serialize:"true" json:"nonce"`

	id    ids.ID
	bytes []byte
}

// NewTx returns a tx with a fresh random nonce.
func NewTx(signer, receiver runtime.AccountID, method string, args []byte, deposit Amount) (*Tx, error) {
	tx := &Tx{
		Signer:   signer,
		Receiver: receiver,
		Method:   method,
		Args:     args,
		Deposit:  deposit,
		Nonce:    [16]byte(uuid.New()),
	}
	if err := tx.SyntacticVerify(); err != nil {
		return nil, err
	}
	return tx, tx.initialize()
}

func (tx *Tx) initialize() error {
	bytes, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return fmt.Errorf("failed to marshal tx: %w", err)
	}
	tx.bytes = bytes
	tx.id = hashing.ComputeHash256Array(bytes)
	return nil
}

// SyntacticVerify checks the tx without looking at state.
func (tx *Tx) SyntacticVerify() error {
	if err := tx.Signer.Validate(); err != nil {
		return fmt.Errorf("invalid signer: %w", err)
	}
	if err := tx.Receiver.Validate(); err != nil {
		return fmt.Errorf("invalid receiver: %w", err)
	}
	if tx.Method == "" {
		return errEmptyMethod
	}
	if len(tx.Args) > maxArgsLen {
		return fmt.Errorf("%w: %d > %d", errArgsTooLarge, len(tx.Args), maxArgsLen)
	}
	return nil
}

func (tx *Tx) ID() ids.ID { return tx.id }

func (tx *Tx) Bytes() []byte { return tx.bytes }

// Receipt returns the receipt that executes this tx.
func (tx *Tx) Receipt() *Receipt {
	return &Receipt{
		ID:          tx.id,
		Predecessor: tx.Signer,
		Signer:      tx.Signer,
		Receiver:    tx.Receiver,
		Method:      tx.Method,
		Args:        tx.Args,
		Deposit:     tx.Deposit,
	}
}
