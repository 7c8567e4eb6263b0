// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	defaultReceiptTimeout      = 8
	defaultMaxReceiptsPerBlock = 1024
	defaultBlockCacheSize      = 256
	defaultMempoolSize         = 1024
)

var errInvalidConfig = errors.New("invalid config")

// Config is the VM's runtime configuration, parsed from the config bytes
// handed to Initialize.
type Config struct {
	// ReceiptTimeout is the number of blocks an outbound call may wait in the
	// queue before it resolves as failed.
	ReceiptTimeout uint64 `json:"receiptTimeout"`
	// MaxReceiptsPerBlock caps how many queued receipts a block executes.
	MaxReceiptsPerBlock int `json:"maxReceiptsPerBlock"`
	BlockCacheSize      int `json:"blockCacheSize"`
	MempoolSize         int `json:"mempoolSize"`
}

func DefaultConfig() Config {
	return Config{
		ReceiptTimeout:      defaultReceiptTimeout,
		MaxReceiptsPerBlock: defaultMaxReceiptsPerBlock,
		BlockCacheSize:      defaultBlockCacheSize,
		MempoolSize:         defaultMempoolSize,
	}
}

// ParseConfig overrides the defaults with the fields set in [b].
// Empty input yields the defaults.
func ParseConfig(b []byte) (Config, error) {
	config := DefaultConfig()
	if len(bytes.TrimSpace(b)) == 0 {
		return config, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %s", errInvalidConfig, err)
	}
	return config, config.Verify()
}

func (c Config) Verify() error {
	switch {
	case c.ReceiptTimeout == 0:
		return fmt.Errorf("%w: receiptTimeout must be positive", errInvalidConfig)
	case c.MaxReceiptsPerBlock <= 0:
		return fmt.Errorf("%w: maxReceiptsPerBlock must be positive", errInvalidConfig)
	case c.BlockCacheSize <= 0:
		return fmt.Errorf("%w: blockCacheSize must be positive", errInvalidConfig)
	case c.MempoolSize <= 0:
		return fmt.Errorf("%w: mempoolSize must be positive", errInvalidConfig)
	}
	return nil
}
