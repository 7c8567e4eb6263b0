// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	lru "github.com/hashicorp/golang-lru"
)

var _ BlockState = &blockState{}

// BlockState stores accepted blocks and indexes them by height.
type BlockState interface {
	GetBlock(blkID ids.ID) (*Block, error)
	PutBlock(blk *Block) error
	GetBlockIDAtHeight(height uint64) (ids.ID, error)

	ClearCache()
}

type blockState struct {
	blkCache    *lru.Cache
	blockDB     database.Database
	heightIndex database.Database
}

func NewBlockState(blockDB database.Database, heightIndex database.Database, cacheSize int) (BlockState, error) {
	blkCache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cache: %w", err)
	}
	return &blockState{
		blkCache:    blkCache,
		blockDB:     blockDB,
		heightIndex: heightIndex,
	}, nil
}

func (s *blockState) GetBlock(blkID ids.ID) (*Block, error) {
	if blk, ok := s.blkCache.Get(blkID); ok {
		return blk.(*Block), nil
	}

	blkBytes, err := s.blockDB.Get(blkID[:])
	if err != nil {
		return nil, err
	}

	blk, err := ParseBlock(blkBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse block from disk %s: %w", blkID, err)
	}
	// only accepted blocks are stored
	blk.status = choices.Accepted

	s.blkCache.Add(blkID, blk)
	return blk, nil
}

func (s *blockState) PutBlock(blk *Block) error {
	blkID := blk.ID()
	if err := s.heightIndex.Put(heightKey(blk.Height()), blkID[:]); err != nil {
		return fmt.Errorf("failed to put block %s into height index: %w", blkID, err)
	}
	if err := s.blockDB.Put(blkID[:], blk.Bytes()); err != nil {
		return fmt.Errorf("failed to put block %s into block index: %w", blkID, err)
	}
	s.blkCache.Add(blkID, blk)
	return nil
}

func (s *blockState) GetBlockIDAtHeight(height uint64) (ids.ID, error) {
	blkIDBytes, err := s.heightIndex.Get(heightKey(height))
	if err != nil {
		return ids.Empty, err
	}

	blkID, err := ids.ToID(blkIDBytes)
	if err != nil {
		return ids.Empty, fmt.Errorf("failed to parse blkIDBytes at height %d: %w", height, err)
	}
	return blkID, nil
}

func (s *blockState) ClearCache() {
	s.blkCache.Purge()
}
