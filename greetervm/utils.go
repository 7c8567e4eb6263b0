// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"encoding/binary"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/holiman/uint256"
)

// Amount is a native amount as stored by the codec: 32 bytes, big endian.
type Amount [32]byte

func AmountOf(i *uint256.Int) Amount {
	if i == nil {
		return Amount{}
	}
	return Amount(i.Bytes32())
}

func (a Amount) Int() *uint256.Int { return new(uint256.Int).SetBytes32(a[:]) }

func (a Amount) IsZero() bool { return a == Amount{} }

func (a Amount) String() string { return a.Int().Dec() }

// ParseAmount parses a decimal amount. The empty string is zero.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, nil
	}
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return AmountOf(i), nil
}

func heightKey(height uint64) []byte {
	heightBytes := make([]byte, wrappers.LongLen)
	binary.BigEndian.PutUint64(heightBytes, height)
	return heightBytes
}

// promiseReceiptID derives the ID of the receipt created by the [index]th
// promise of receipt [parent].
func promiseReceiptID(parent ids.ID, index uint32) ids.ID {
	b := make([]byte, len(parent)+wrappers.IntLen)
	copy(b, parent[:])
	binary.BigEndian.PutUint32(b[len(parent):], index)
	return hashing.ComputeHash256Array(b)
}
