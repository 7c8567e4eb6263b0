// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	singletonStatePrefix = []byte("singleton")
	blockStatePrefix     = []byte("block")
	heightIndexPrefix    = []byte("height")
	worldStatePrefix     = []byte("world")

	_ State = &state{}
)

// State is a wrapper around SingletonState and BlockState plus the world
// state that blocks execute against.
// State also exposes a few methods needed for managing database commits and close.
type State interface {
	SingletonState
	BlockState

	// World reads the world state as of the last commit or pending write.
	World() *worldState
	// NewLayer returns a versiondb over the world state. Committing the layer
	// writes its changes into this state, to be flushed by Commit.
	NewLayer() *versiondb.Database

	Commit() error
	Abort()
	Close() error
}

type state struct {
	SingletonState
	BlockState

	baseDB  *versiondb.Database
	worldDB database.Database
}

func NewState(db database.Database, blockCacheSize int) (State, error) {
	// create a new baseDB
	baseDB := versiondb.New(db)

	// create a prefixed "singletonDB" from baseDB
	singletonDB := prefixdb.New(singletonStatePrefix, baseDB)
	// create a prefixed "blockDB" and "heightDB" from baseDB
	blockDB := prefixdb.New(blockStatePrefix, baseDB)
	heightDB := prefixdb.New(heightIndexPrefix, baseDB)

	blockState, err := NewBlockState(blockDB, heightDB, blockCacheSize)
	if err != nil {
		return nil, err
	}

	// return state with created sub state components
	return &state{
		SingletonState: NewSingletonState(singletonDB),
		BlockState:     blockState,
		baseDB:         baseDB,
		worldDB:        prefixdb.New(worldStatePrefix, baseDB),
	}, nil
}

// World reads through a fresh layer. Every world state sits on a versiondb,
// so reads here address the same keys that layers write.
func (s *state) World() *worldState {
	return newWorldState(s.NewLayer())
}

func (s *state) NewLayer() *versiondb.Database {
	return versiondb.New(s.worldDB)
}

// Commit commits pending operations to baseDB
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort drops pending operations and any block cached since the last commit
func (s *state) Abort() {
	s.baseDB.Abort()
	s.ClearCache()
}

// Close closes the underlying base database
func (s *state) Close() error {
	return s.baseDB.Close()
}
