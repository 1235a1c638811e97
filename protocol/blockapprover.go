// Package protocol implements the two genesis-ceremony collaborators
// named in the specification: BlockApproverProtocol, which signs a
// matching candidate on behalf of a validator, and ApproveBlockProtocol,
// which drives the standalone genesis constructor's broadcast/collect
// loop.
package protocol

import (
	"context"
	"log/slog"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// BlockApproverProtocol verifies an incoming UnapprovedBlock candidate
// against this validator's expected genesis parameters and, on a match,
// signs its hash and replies with a BlockApproval.
type BlockApproverProtocol struct {
	Identity  types.ValidatorIdentity
	Expected  *types.Candidate
	Transport handler.Transport
	Logger    *slog.Logger
}

func (b *BlockApproverProtocol) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// HandleUnapprovedBlock checks msg.Candidate against Expected and, if it
// matches, signs and streams a BlockApproval back to from.
func (b *BlockApproverProtocol) HandleUnapprovedBlock(ctx context.Context, from peer.ID, msg *types.UnapprovedBlock) {
	if !msg.Candidate.Matches(b.Expected) {
		b.logger().Debug("unapproved block candidate does not match expected genesis parameters", "peer", from)
		return
	}

	hash := msg.Candidate.Hash()
	sig := b.Identity.PrivateKey.Sign(hash[:])
	approval := &types.BlockApproval{
		CandidateHash: hash,
		Validator:     b.Identity.PublicKey,
		Sig:           sig,
	}

	pkt, err := types.Encode(types.TypeBlockApproval, approval)
	if err != nil {
		b.logger().Warn("encode block approval failed", "error", err)
		return
	}
	if err := b.Transport.Stream(ctx, []peer.ID{from}, pkt); err != nil {
		b.logger().Warn("send block approval failed", "peer", from, "error", err)
	}
}
