// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"
)

// StaticService builds and inspects genesis bytes without a running chain.
type StaticService struct {
	factory *Factory
}

func CreateStaticService(factory *Factory) *StaticService {
	return &StaticService{factory: factory}
}

// BuildGenesisArgs are arguments for BuildGenesis
type BuildGenesisArgs struct {
	Genesis  Genesis             `json:"genesis"`
	Encoding formatting.Encoding `json:"encoding"`
}

// BuildGenesisReply is the reply from BuildGenesis
type BuildGenesisReply struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// BuildGenesis verifies a genesis against the deployable contracts and
// returns its encoded bytes.
func (ss *StaticService) BuildGenesis(_ *http.Request, args *BuildGenesisArgs, reply *BuildGenesisReply) error {
	if err := args.Genesis.Verify(ss.factory.registry()); err != nil {
		return err
	}
	b, err := json.Marshal(&args.Genesis)
	if err != nil {
		return fmt.Errorf("couldn't marshal genesis: %w", err)
	}
	encoded, err := formatting.Encode(args.Encoding, b)
	if err != nil {
		return fmt.Errorf("couldn't encode genesis as string: %w", err)
	}
	reply.Bytes = encoded
	reply.Encoding = args.Encoding
	return nil
}

// DecodeGenesisArgs are arguments for DecodeGenesis
type DecodeGenesisArgs struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// DecodeGenesisReply is the reply from DecodeGenesis
type DecodeGenesisReply struct {
	Genesis Genesis `json:"genesis"`
}

func (ss *StaticService) DecodeGenesis(_ *http.Request, args *DecodeGenesisArgs, reply *DecodeGenesisReply) error {
	b, err := formatting.Decode(args.Encoding, args.Bytes)
	if err != nil {
		return fmt.Errorf("couldn't decode genesis bytes: %w", err)
	}
	genesis, err := ParseGenesis(b)
	if err != nil {
		return err
	}
	reply.Genesis = *genesis
	return nil
}
