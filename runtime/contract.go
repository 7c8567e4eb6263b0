// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"encoding/json"
	"fmt"
)

// Result is the return of a contract method: either a JSON value (possibly
// empty, for methods returning nothing) or a pending promise whose eventual
// value becomes the value of this call.
type Result struct {
	Value   []byte
	Promise *PromiseIndex
}

// JSON returns [v] encoded as the method's return value.
func JSON(v interface{}) (Result, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode return value: %w", err)
	}
	return Result{Value: b}, nil
}

// Void is the result of a method that returns nothing.
func Void() Result { return Result{} }

// Pending returns a result that resolves to the value of [index].
func Pending(index PromiseIndex) Result {
	return Result{Promise: &index}
}

// IsPending reports whether the result is delegated to a promise.
func (r Result) IsPending() bool { return r.Promise != nil }

// Handler executes a method with its JSON encoded [args].
// A returned error aborts the invocation: nothing it wrote is persisted and
// none of its promises are scheduled.
type Handler func(env Env, args []byte) (Result, error)

// Method describes a contract entry point and what the host allows for it.
type Method struct {
	Handler Handler
	// View methods may be called read-only. They cannot write storage or
	// create promises.
	View bool
	// Private methods may only be called by the contract itself.
	Private bool
	// Payable methods accept a non-zero attached deposit.
	Payable bool
	// Init methods only run while the contract is deployed.
	Init bool
}

// Methods maps method names to entry points.
type Methods map[string]Method

// Contract is a native contract implementation that can be deployed to an
// account.
type Contract interface {
	Name() string
	Methods() Methods
}
