// Package store provides the persistent and single-assignment
// collaborators the packet-handler core depends on but does not own:
// the block store, the block DAG view, the execution engine's
// narrow surface, and the LastApprovedBlock / MultiParentCasperRef
// option slots.
package store

import (
	"fmt"
	"sync"

	"github.com/casper-node/node/types"
	"github.com/cockroachdb/pebble"
)

// BlockStore persists blocks and their execution transforms, keyed by
// block hash, and serves BlockMessage replies for BlockRequest.
type BlockStore interface {
	Put(hash types.Root, block *types.Block, transforms *types.Transforms) error
	GetBlockMessage(hash types.Root) (*types.Packet, bool, error)
}

const (
	blockKeyPrefix      = "b:"
	transformsKeyPrefix = "t:"
)

// PebbleBlockStore is a BlockStore backed by a pebble LSM tree. Pebble is
// otherwise unused in this codebase upstream; here it becomes the
// persistence engine for exactly the two key spaces the core needs.
type PebbleBlockStore struct {
	db *pebble.DB
}

// OpenPebbleBlockStore opens (creating if absent) a pebble database at dir.
func OpenPebbleBlockStore(dir string) (*PebbleBlockStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open block store: %w", err)
	}
	return &PebbleBlockStore{db: db}, nil
}

func (s *PebbleBlockStore) Close() error {
	return s.db.Close()
}

func (s *PebbleBlockStore) Put(hash types.Root, block *types.Block, transforms *types.Transforms) error {
	blockBytes, err := block.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	if err := s.db.Set(append([]byte(blockKeyPrefix), hash[:]...), blockBytes, pebble.Sync); err != nil {
		return fmt.Errorf("store block: %w", err)
	}

	var transformBytes []byte
	if transforms != nil {
		transformBytes = transforms.Data
	}
	if err := s.db.Set(append([]byte(transformsKeyPrefix), hash[:]...), transformBytes, pebble.Sync); err != nil {
		return fmt.Errorf("store transforms: %w", err)
	}
	return nil
}

func (s *PebbleBlockStore) GetBlockMessage(hash types.Root) (*types.Packet, bool, error) {
	val, closer, err := s.db.Get(append([]byte(blockKeyPrefix), hash[:]...))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get block: %w", err)
	}
	defer closer.Close()

	var block types.Block
	if err := block.UnmarshalBinary(val); err != nil {
		return nil, false, fmt.Errorf("decode stored block: %w", err)
	}

	pkt, err := types.Encode(types.TypeBlockMessage, &types.BlockMessage{Block: block})
	if err != nil {
		return nil, false, fmt.Errorf("encode block message: %w", err)
	}
	return &pkt, true, nil
}

// MemoryBlockStore is an in-process BlockStore for tests and for nodes
// run without a data directory.
type MemoryBlockStore struct {
	mu         sync.RWMutex
	blocks     map[types.Root]*types.Block
	transforms map[types.Root]*types.Transforms
}

func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{
		blocks:     make(map[types.Root]*types.Block),
		transforms: make(map[types.Root]*types.Transforms),
	}
}

func (s *MemoryBlockStore) Put(hash types.Root, block *types.Block, transforms *types.Transforms) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[hash] = block
	s.transforms[hash] = transforms
	return nil
}

func (s *MemoryBlockStore) GetBlockMessage(hash types.Root) (*types.Packet, bool, error) {
	s.mu.RLock()
	block, ok := s.blocks[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	pkt, err := types.Encode(types.TypeBlockMessage, &types.BlockMessage{Block: *block})
	if err != nil {
		return nil, false, fmt.Errorf("encode block message: %w", err)
	}
	return &pkt, true, nil
}
