// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	cjson "github.com/ava-labs/avalanchego/utils/json"
	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/greetervm/contracts/fungibletoken"
	"github.com/ava-labs/greetervm/contracts/greeter"
	"github.com/ava-labs/greetervm/runtime"
)

// ID is a unique identifier for this VM
var ID = ids.ID{'g', 'r', 'e', 'e', 't', 'e', 'r', 'v', 'm'}

// Factory creates VMs that can deploy [Contracts].
type Factory struct {
	// Contracts defaults to DefaultContracts when empty.
	Contracts []runtime.Contract
}

// DefaultContracts are the contracts every VM can deploy unless told otherwise.
func DefaultContracts() []runtime.Contract {
	return []runtime.Contract{
		greeter.New(),
		fungibletoken.New(),
	}
}

// New returns an uninitialized VM.
func (f *Factory) New() *VM {
	return &VM{contracts: f.registry()}
}

func (f *Factory) registry() map[string]runtime.Contract {
	contracts := f.Contracts
	if len(contracts) == 0 {
		contracts = DefaultContracts()
	}
	registry := make(map[string]runtime.Contract, len(contracts))
	for _, c := range contracts {
		registry[c.Name()] = c
	}
	return registry
}

// CreateStaticHandlers returns the handlers that need no chain state.
func (f *Factory) CreateStaticHandlers() (map[string]*common.HTTPHandler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return map[string]*common.HTTPHandler{
		"": {LockOptions: common.NoLock, Handler: server},
	}, server.RegisterService(CreateStaticService(f), Name)
}
