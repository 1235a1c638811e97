package store

import (
	"sync"

	"github.com/casper-node/node/types"
)

// ExecutionEngineService is the narrow slice of the execution engine the
// core depends on: setting genesis bonds, and computing a block's
// effects against the current DAG view. Full deploy execution is out of
// scope (spec §1 Non-goals); effectsForBlock here is a placeholder that
// produces an empty Transforms value, which is sufficient for the
// packet-handler core's own invariants (it only stores and forwards
// whatever the engine returns).
type ExecutionEngineService interface {
	SetBonds(bonds []types.Bond)
	EffectsForBlock(block *types.Block, dag *BlockDagRepresentation) (*types.Transforms, error)
}

type engine struct {
	mu    sync.Mutex
	bonds []types.Bond
}

// NewExecutionEngineService returns an in-process engine stand-in.
func NewExecutionEngineService() ExecutionEngineService {
	return &engine{}
}

func (e *engine) SetBonds(bonds []types.Bond) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bonds = append([]types.Bond{}, bonds...)
}

func (e *engine) EffectsForBlock(block *types.Block, dag *BlockDagRepresentation) (*types.Transforms, error) {
	return &types.Transforms{}, nil
}
