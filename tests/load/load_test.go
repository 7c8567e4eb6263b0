// Copyright (C) 2019-2022, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// load implements the load tests.
package load_test

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	log "github.com/inconshreveable/log15"
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/formatter"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/greetervm/client"
	"github.com/ava-labs/greetervm/contracts/fungibletoken"
	"github.com/ava-labs/greetervm/contracts/greeter"
	"github.com/ava-labs/greetervm/greetervm"
	"github.com/ava-labs/greetervm/runtime"
)

func TestLoad(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "greetervm load test suites")
}

var (
	requestTimeout time.Duration
	blockInterval  time.Duration
	producers      int
	terminalHeight uint64
)

func init() {
	flag.DurationVar(
		&requestTimeout,
		"request-timeout",
		120*time.Second,
		"timeout for transaction issuance and confirmation",
	)
	flag.DurationVar(
		&blockInterval,
		"block-interval",
		10*time.Millisecond,
		"interval between block building attempts",
	)
	flag.IntVar(
		&producers,
		"producers",
		4,
		"number of concurrent tx producers",
	)
	flag.Uint64Var(
		&terminalHeight,
		"terminal-height",
		50,
		"height to quit at",
	)
}

const (
	sender       runtime.AccountID = "load.test"
	receiver     runtime.AccountID = "sink.test"
	tokenAccount runtime.AccountID = "token.test"
	greeterAcct  runtime.AccountID = "greeter.test"
)

var (
	vm     *greetervm.VM
	server *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
	cli    client.Client
)

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	gomega.Expect(err).Should(gomega.BeNil())
	return b
}

var _ = ginkgo.BeforeSuite(func() {
	genesis := &greetervm.Genesis{
		Accounts: []greetervm.GenesisAccount{
			{ID: sender, Balance: "1000000000"},
			{ID: receiver},
			{
				ID:       tokenAccount,
				Contract: fungibletoken.Name,
				Init: &greetervm.GenesisInit{
					Method: "new",
					Args: mustJSON(&fungibletoken.InitArgs{
						OwnerID:     greeterAcct,
						TotalSupply: "1000000000000",
						Metadata: fungibletoken.Metadata{
							Spec:   fungibletoken.MetadataSpec,
							Name:   "Load Token",
							Symbol: "LOAD",
						},
					}),
				},
			},
			{
				ID:       greeterAcct,
				Contract: greeter.Name,
				Init: &greetervm.GenesisInit{
					Method: "new",
					Args:   mustJSON(&greeter.InitArgs{TokenAccount: tokenAccount}),
				},
			},
		},
	}

	toEngine := make(chan common.Message, 1)
	vm = (&greetervm.Factory{}).New()
	err := vm.Initialize(context.Background(), memdb.New(), mustJSON(genesis), nil, toEngine, prometheus.NewRegistry())
	gomega.Expect(err).Should(gomega.BeNil())

	handlers, err := vm.CreateHandlers(context.Background())
	gomega.Expect(err).Should(gomega.BeNil())
	server = httptest.NewServer(handlers[""].Handler)
	outf("{{blue}}greetervm RPC:{{/}} %q\n", server.URL)

	var ctx context.Context
	ctx, cancel = context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		defer close(done)
		greetervm.NewBuilder(vm, toEngine, blockInterval).Run(ctx)
	}()

	cli = client.New(server.URL)
})

var _ = ginkgo.AfterSuite(func() {
	outf("{{red}}shutting down vm{{/}}\n")
	cancel()
	<-done
	server.Close()
	err := vm.Shutdown(context.Background())
	gomega.Expect(err).Should(gomega.BeNil())
	log.Warn("vm shutdown result", "err", err)
})

var _ = ginkgo.Describe("[Calls]", func() {
	ginkgo.It("get genesis block", func() {
		block, err := cli.GetBlock(context.Background(), nil)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(uint64(block.Height)).Should(gomega.Equal(uint64(0)))
	})

	ginkgo.It("create new blocks", func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		var (
			submitted uint64
			lastTxID  atomic.Value
		)
		for i := 0; i < producers; i++ {
			i := i
			g.Go(func() error {
				defer ginkgo.GinkgoRecover()
				for n := 0; gctx.Err() == nil; n++ {
					method, args, deposit := "set_greeting", interface{}(&greeter.SetGreetingArgs{Message: fmt.Sprintf("%d-%d", i, n)}), ""
					if n%2 == 1 {
						method, args, deposit = "transfer", &greeter.TransferArgs{ReceiverID: receiver.String(), Amount: "1"}, "1"
					}
					txID, err := cli.SubmitTx(gctx, sender, greeterAcct, method, args, deposit)
					if err != nil {
						if gctx.Err() != nil {
							break
						}
						// If the mempool is full, pause before submitting more calls
						gomega.Ω(err.Error()).Should(gomega.ContainSubstring("mempool is full"))
						time.Sleep(10 * time.Millisecond)
						continue
					}
					atomic.AddUint64(&submitted, 1)
					lastTxID.Store(txID)
				}
				return nil
			})
		}

		start := time.Now()
		g.Go(func() error {
			defer ginkgo.GinkgoRecover()
			last := uint64(0)
			for gctx.Err() == nil {
				lastHeight, err := cli.Health(gctx)
				if err != nil {
					continue
				}
				log.Info("performance", "height", lastHeight,
					"avg bps", float64(lastHeight)/time.Since(start).Seconds(),
					"last bps", float64(lastHeight-last)/0.5,
					"submitted", atomic.LoadUint64(&submitted),
				)
				if lastHeight > terminalHeight {
					log.Info("exiting at terminal height")
					cancel()
					return nil
				}
				last = lastHeight
				time.Sleep(500 * time.Millisecond)
			}
			return gctx.Err()
		})
		err := g.Wait()
		log.Warn("exiting producer loop", "err", err)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(atomic.LoadUint64(&submitted)).Should(gomega.BeNumerically(">", 0))

		// the chain drains the last call once producers stop
		waitCtx, waitCancel := context.WithTimeout(context.Background(), requestTimeout)
		defer waitCancel()
		result, err := cli.WaitForTx(waitCtx, lastTxID.Load().(ids.ID), 10*time.Millisecond)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(strings.ToLower(result.Status)).Should(gomega.Equal("success"))
	})
})

// Outputs to stdout.
//
// e.g.,
//
//	Out("{{green}}{{bold}}hi there %q{{/}}", "aa")
//	Out("{{magenta}}{{bold}}hi therea{{/}} {{cyan}}{{underline}}b{{/}}")
//
// ref.
// https://github.com/onsi/ginkgo/blob/v2.0.0/formatter/formatter.go#L52-L73
func outf(format string, args ...interface{}) {
	s := formatter.F(format, args...)
	fmt.Fprint(formatter.ColorableStdOut, s)
}
