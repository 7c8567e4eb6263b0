// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fungibletoken

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// MetadataSpec is the only metadata version this contract serves.
const MetadataSpec = "ft-1.0.0"

var (
	errMetadataSpec      = errors.New("unsupported metadata spec")
	errReferenceMismatch = errors.New("reference and reference_hash must be set together")
	errReferenceHash     = errors.New("reference_hash must be 32 bytes of base64")
)

// Metadata describes a fungible token.
type Metadata struct {
	Spec          string  `json:"spec"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Icon          *string `json:"icon"`
	Reference     *string `json:"reference"`
	ReferenceHash *string `json:"reference_hash"`
	Decimals      uint8   `json:"decimals"`
}

// Verify returns nil iff [m] is well formed.
func (m *Metadata) Verify() error {
	if m.Spec != MetadataSpec {
		return fmt.Errorf("%w: %q", errMetadataSpec, m.Spec)
	}
	if (m.Reference == nil) != (m.ReferenceHash == nil) {
		return errReferenceMismatch
	}
	if m.ReferenceHash != nil {
		hash, err := base64.StdEncoding.DecodeString(*m.ReferenceHash)
		if err != nil || len(hash) != 32 {
			return errReferenceHash
		}
	}
	return nil
}
