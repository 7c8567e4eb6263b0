// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"errors"
	"fmt"
)

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

var (
	ErrAccountIDTooShort = errors.New("account ID is too short")
	ErrAccountIDTooLong  = errors.New("account ID is too long")
	ErrInvalidAccountID  = errors.New("invalid account ID")
)

// AccountID identifies an account on the chain.
// Valid IDs are lowercase alphanumeric parts joined by single '.', '-' or
// '_' separators, between 2 and 64 characters long.
type AccountID string

// ParseAccountID returns [s] as an AccountID if it is valid.
func ParseAccountID(s string) (AccountID, error) {
	id := AccountID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate returns nil iff [id] is a syntactically valid account ID.
func (id AccountID) Validate() error {
	switch {
	case len(id) < MinAccountIDLen:
		return fmt.Errorf("%w: %q", ErrAccountIDTooShort, string(id))
	case len(id) > MaxAccountIDLen:
		return fmt.Errorf("%w: %q", ErrAccountIDTooLong, string(id))
	}

	// A separator may not start the ID, so begin as if we just saw one.
	lastWasSeparator := true
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			lastWasSeparator = false
		case c == '.' || c == '-' || c == '_':
			if lastWasSeparator {
				return fmt.Errorf("%w: %q has a misplaced separator at %d", ErrInvalidAccountID, string(id), i)
			}
			lastWasSeparator = true
		default:
			return fmt.Errorf("%w: %q has an invalid character at %d", ErrInvalidAccountID, string(id), i)
		}
	}
	if lastWasSeparator {
		return fmt.Errorf("%w: %q ends with a separator", ErrInvalidAccountID, string(id))
	}
	return nil
}

func (id AccountID) String() string { return string(id) }
