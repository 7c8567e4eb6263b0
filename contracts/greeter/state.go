// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greeter

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/greetervm/runtime"
)

const (
	// CodecVersion is the version of the persisted state record
	CodecVersion = 0

	DefaultMessage                        = "Hello"
	DefaultTokenAccount runtime.AccountID = "dev-1661607508862-21282125247023"
)

var (
	stateKey = []byte("STATE")

	Codec codec.Manager
)

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()
	if err := Codec.RegisterCodec(CodecVersion, c); err != nil {
		panic(err)
	}
}

// State is the contract's single persisted record.
// The message is kept as bytes so greetings are not capped at the codec's
// string length limit.
type State struct {
	TokenAccount runtime.AccountID `serialize:"true"`
	Message      []byte            `serialize:"true"`
}

// DefaultState is the state of a contract nobody initialized.
func DefaultState() *State {
	return &State{
		TokenAccount: DefaultTokenAccount,
		Message:      []byte(DefaultMessage),
	}
}

func loadState(storage runtime.Storage) (*State, error) {
	b, err := storage.Get(stateKey)
	if errors.Is(err, database.ErrNotFound) {
		return DefaultState(), nil
	}
	if err != nil {
		return nil, err
	}
	s := &State{}
	if _, err := Codec.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to parse contract state: %w", err)
	}
	return s, nil
}

func saveState(storage runtime.Storage, s *State) error {
	b, err := Codec.Marshal(CodecVersion, s)
	if err != nil {
		return fmt.Errorf("failed to marshal contract state: %w", err)
	}
	return storage.Put(stateKey, b)
}
