// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/ava-labs/avalanchego/vms/rpcchainvm"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/greetervm/greetervm"
)

func main() {
	printVMID, err := PrintVMID()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	if printVMID {
		fmt.Println(greetervm.ID)
		os.Exit(0)
	}

	// the node reads the plugin's stdout, so log to stderr
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat())))
	rpcchainvm.Serve(greetervm.NewChainVM(&greetervm.Factory{}))
}
