// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var ErrInvalidArgs = errors.New("invalid arguments")

// DecodeArgs decodes JSON [args] into a T. Empty args decode to the zero T.
func DecodeArgs[T any](args []byte) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("%w: %s", ErrInvalidArgs, err)
	}
	return v, nil
}

// EncodeArgs encodes [args] as JSON. Nil encodes to no arguments.
func EncodeArgs(args interface{}) ([]byte, error) {
	if args == nil {
		return nil, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgs, err)
	}
	return b, nil
}

// Call is an outbound call to another contract.
type Call struct {
	Receiver AccountID
	Method   string
	// Args are JSON encoded before sending.
	Args interface{}
	// Deposit attached to the call. Nil attaches nothing.
	Deposit *uint256.Int
}

// Forward issues [call] and chains the private continuation [callback] on
// the current account. The returned result resolves to whatever the
// continuation returns.
func Forward(env Env, call Call, callback string) (Result, error) {
	args, err := EncodeArgs(call.Args)
	if err != nil {
		return Result{}, err
	}
	outbound, err := env.PromiseCreate(call.Receiver, call.Method, args, call.Deposit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to call %s on %s: %w", call.Method, call.Receiver, err)
	}
	continuation, err := env.PromiseThen(outbound, env.CurrentAccountID(), callback, nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to attach %s: %w", callback, err)
	}
	return Pending(continuation), nil
}

// Unwrap decodes the single result delivered to a continuation.
// It returns [failure] if the call failed, no result was delivered, or the
// value does not decode into a T.
func Unwrap[T any](env Env, failure error) (T, error) {
	var v T
	value, err := singleResult(env, failure)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(value, &v); err != nil {
		return v, failure
	}
	return v, nil
}

// Check is Unwrap for calls that return nothing.
func Check(env Env, failure error) error {
	_, err := singleResult(env, failure)
	return err
}

func singleResult(env Env, failure error) ([]byte, error) {
	results := env.PromiseResults()
	if len(results) != 1 || results[0].Status != PromiseSuccessful {
		return nil, failure
	}
	return results[0].Value, nil
}
