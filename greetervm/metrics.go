// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "greetervm"

type metrics struct {
	blocksBuilt      prometheus.Counter
	blocksAccepted   prometheus.Counter
	blocksRejected   prometheus.Counter
	txsSubmitted     prometheus.Counter
	receiptsExecuted prometheus.Counter
	receiptsFailed   prometheus.Counter
	receiptsTimedOut prometheus.Counter
	mempoolLen       prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		blocksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_built",
			Help:      "Number of blocks built by this node",
		}),
		blocksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_accepted",
			Help:      "Number of blocks accepted",
		}),
		blocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_rejected",
			Help:      "Number of blocks rejected",
		}),
		txsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs_submitted",
			Help:      "Number of txs added to the mempool",
		}),
		receiptsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "receipts_executed",
			Help:      "Number of receipts that ran",
		}),
		receiptsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "receipts_failed",
			Help:      "Number of receipts that resolved as failed",
		}),
		receiptsTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "receipts_timed_out",
			Help:      "Number of receipts that expired before running",
		}),
		mempoolLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mempool_len",
			Help:      "Number of txs waiting in the mempool",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.blocksBuilt),
		registerer.Register(m.blocksAccepted),
		registerer.Register(m.blocksRejected),
		registerer.Register(m.txsSubmitted),
		registerer.Register(m.receiptsExecuted),
		registerer.Register(m.receiptsFailed),
		registerer.Register(m.receiptsTimedOut),
		registerer.Register(m.mempoolLen),
	)
	return m, errs.Err
}
