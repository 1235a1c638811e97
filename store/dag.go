package store

import (
	"sync"

	"github.com/casper-node/node/types"
)

// BlockDagRepresentation is the opaque DAG view the execution engine
// consults when computing a block's effects. Its internal shape is an
// execution-engine concern; the core only ever asks for it and passes it
// through.
type BlockDagRepresentation struct {
	Tips []types.Root
}

// BlockDagStorage exposes the single operation the Transition Routine
// needs: the current DAG representation passed into effectsForBlock.
type BlockDagStorage interface {
	GetRepresentation() (*BlockDagRepresentation, error)
}

// MemoryBlockDagStorage keeps the set of current DAG tips in memory; it
// does not record parent/child edges. Real DAG persistence and fork
// structure live outside this core (spec §1 Non-goals); this
// collaborator hands back a representation of the tip set, and AddTip
// records a new tip in place of its parent.
type MemoryBlockDagStorage struct {
	mu   sync.RWMutex
	tips map[types.Root]struct{}
}

func NewMemoryBlockDagStorage() *MemoryBlockDagStorage {
	return &MemoryBlockDagStorage{tips: make(map[types.Root]struct{})}
}

func (d *MemoryBlockDagStorage) GetRepresentation() (*BlockDagRepresentation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tips := make([]types.Root, 0, len(d.tips))
	for t := range d.tips {
		tips = append(tips, t)
	}
	return &BlockDagRepresentation{Tips: tips}, nil
}

// AddTip records hash as a current DAG tip, replacing parent if present.
func (d *MemoryBlockDagStorage) AddTip(hash types.Root, parent types.Root) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tips, parent)
	d.tips[hash] = struct{}{}
}
