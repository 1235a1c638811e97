package transition

import (
	"fmt"
	"log/slog"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
)

// TransitionError wraps a failure computing effects or persisting an
// ApprovedBlock — distinct from validation rejection, which is not an
// error (spec §7: StorageError/ExecutionError vs ValidationRejected).
type TransitionError struct {
	Op  string
	Err error
}

func (e *TransitionError) Error() string { return fmt.Sprintf("transition: %s: %v", e.Op, e.Err) }
func (e *TransitionError) Unwrap() error { return e.Err }

// Deps bundles the collaborators OnApprovedBlockTransition needs. It is
// passed by reference; callers own its lifetime.
type Deps struct {
	BlockStore   store.BlockStore
	Dag          store.BlockDagStorage
	Engine       store.ExecutionEngineService
	LastApproved *store.LastApprovedBlockSlot
	Logger       *slog.Logger
}

// OnApprovedBlockTransition validates ab against validatorSet/requiredSigs
// and, if valid, computes effects, persists the block, publishes
// LastApprovedBlock, and constructs the Casper instance for validatorID
// on shardID. Returns (nil, nil) on validation rejection — no state
// change, not an error. A non-nil error indicates a TransitionError from
// the execution engine or block store; the caller does not transition.
func OnApprovedBlockTransition(deps Deps, ab *types.ApprovedBlock, validatorSet []types.Pubkey, requiredSigs uint64, validatorID types.Pubkey, shardID string) (*casper.Casper, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := ValidateApprovedBlock(ab, validatorSet, requiredSigs); err != nil {
		logger.Info("Invalid ApprovedBlock received; refusing to add", "error", err)
		return nil, nil
	}
	logger.Info("Valid ApprovedBlock received")

	block := ab.Block()

	dag, err := deps.Dag.GetRepresentation()
	if err != nil {
		return nil, &TransitionError{Op: "dag representation", Err: err}
	}

	transforms, err := deps.Engine.EffectsForBlock(block, dag)
	if err != nil {
		return nil, &TransitionError{Op: "effects for block", Err: err}
	}

	if err := deps.BlockStore.Put(block.Hash, block, transforms); err != nil {
		return nil, &TransitionError{Op: "store block", Err: err}
	}

	deps.LastApproved.Set(&types.ApprovedBlockWithTransforms{
		ApprovedBlock: ab,
		Transforms:    transforms,
	})

	return casper.HashSetCasper(validatorID, block, shardID), nil
}
