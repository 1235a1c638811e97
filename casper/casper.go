// Package casper is a thin stand-in for the multi-parent consensus
// object. Real fork-choice computation is out of scope (spec.md §1
// Non-goals); this type exists only so the packet-handler core has a
// concrete Casper to construct, query, and hand blocks to.
package casper

import (
	"sync"

	"github.com/casper-node/node/types"
)

// DoppelgangerCallback is invoked by AddBlock with the incoming block and
// this node's own validator public key; it is the dispatcher's hook for
// detecting another node signing with the same key.
type DoppelgangerCallback func(incoming *types.Block, ownPubkey types.Pubkey)

// Casper tracks the blocks this node has accepted and answers
// fork-choice-tip queries. HashSetCasper constructs one rooted at a
// genesis block.
type Casper struct {
	mu          sync.RWMutex
	shardID     string
	validatorID types.Pubkey
	blocks      map[types.Root]*types.Block
	tip         types.Root
}

// HashSetCasper constructs a Casper instance rooted at genesis, for the
// validatorId/shardId pair named in the node's configuration.
func HashSetCasper(validatorID types.Pubkey, genesis *types.Block, shardID string) *Casper {
	c := &Casper{
		shardID:     shardID,
		validatorID: validatorID,
		blocks:      make(map[types.Root]*types.Block),
		tip:         genesis.Hash,
	}
	c.blocks[genesis.Hash] = genesis
	return c
}

// Contains reports whether b has already been accepted.
func (c *Casper) Contains(b *types.Block) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.blocks[b.Hash]
	return ok
}

// AddBlock accepts a new block, naively advancing the tip to it, and
// invokes cb with the incoming block and this Casper's own validator
// public key so the caller can run doppelgänger detection.
func (c *Casper) AddBlock(b *types.Block, cb DoppelgangerCallback) {
	c.mu.Lock()
	c.blocks[b.Hash] = b
	c.tip = b.Hash
	c.mu.Unlock()

	if cb != nil {
		cb(b, c.validatorID)
	}
}

// ForkChoiceTip returns the current head block.
func (c *Casper) ForkChoiceTip() *types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[c.tip]
}

// ShardID returns the shard this instance was constructed for.
func (c *Casper) ShardID() string {
	return c.shardID
}
