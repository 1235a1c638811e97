package store

import (
	"sync/atomic"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/types"
)

// LastApprovedBlockSlot is a single-assignment option slot: at most one
// write in the life of a node (the ApproveBlockProtocol, once enough
// approvals arrive in Standalone, or the Transition Routine, on
// GenesisValidator/Bootstrap exit). The approval loop only reads it.
type LastApprovedBlockSlot struct {
	v atomic.Pointer[types.ApprovedBlockWithTransforms]
}

func (s *LastApprovedBlockSlot) Get() (*types.ApprovedBlockWithTransforms, bool) {
	v := s.v.Load()
	return v, v != nil
}

func (s *LastApprovedBlockSlot) Set(v *types.ApprovedBlockWithTransforms) {
	s.v.Store(v)
}

// MultiParentCasperRefSlot is the single-assignment slot holding the
// Casper instance once it has been constructed.
type MultiParentCasperRefSlot struct {
	v atomic.Pointer[casper.Casper]
}

func (s *MultiParentCasperRefSlot) Set(c *casper.Casper) {
	s.v.Store(c)
}

func (s *MultiParentCasperRefSlot) Get() (*casper.Casper, bool) {
	v := s.v.Load()
	return v, v != nil
}
