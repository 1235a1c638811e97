package lifecycle

import (
	"context"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/protocol"
	"github.com/casper-node/node/types"
)

// Standalone is active on the node that constructs and circulates the
// genesis candidate. It exits only via the approval timing loop
// (spec.md §4.7), never via a dispatcher-observed ApprovedBlock — a
// Standalone node does not accept externally-delivered approved blocks.
type Standalone struct {
	handler.BaseHandler

	Approver *protocol.ApproveBlockProtocol
}

func (s *Standalone) HandleBlockApproval(ctx context.Context, msg *types.BlockApproval) {
	s.Approver.AddApproval(ctx, msg)
}
