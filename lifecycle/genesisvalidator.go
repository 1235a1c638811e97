// Package lifecycle implements the four handler states the dispatcher
// routes through: GenesisValidator, Standalone, Bootstrap, and the
// terminal ApprovedBlockReceived.
package lifecycle

import (
	"context"
	"log/slog"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/protocol"
	"github.com/casper-node/node/transition"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// GenesisValidator is active while this node is a member of the
// genesis-approval committee: it signs matching candidates and, on
// receiving a sufficiently-signed ApprovedBlock, treats its own approval
// as authoritative for exiting this state.
type GenesisValidator struct {
	handler.BaseHandler

	Identity       types.ValidatorIdentity
	ShardID        string
	Approver       *protocol.BlockApproverProtocol
	TransitionDeps transition.Deps
}

func (g *GenesisValidator) HandleUnapprovedBlock(ctx context.Context, p peer.ID, msg *types.UnapprovedBlock) {
	g.Approver.HandleUnapprovedBlock(ctx, p, msg)
}

// HandleApprovedBlock runs the transition routine with validators
// restricted to this validator's own public key — only the self-signed
// approval is authoritative for exiting GenesisValidator (spec.md §4.4).
func (g *GenesisValidator) HandleApprovedBlock(ctx context.Context, msg *types.ApprovedBlockMsg) *casper.Casper {
	c, err := transition.OnApprovedBlockTransition(
		g.TransitionDeps,
		&msg.ApprovedBlock,
		[]types.Pubkey{g.Identity.PublicKey},
		1,
		g.Identity.PublicKey,
		g.ShardID,
	)
	if err != nil {
		g.logger().Warn("genesis validator transition failed", "error", err)
		return nil
	}
	return c
}

func (g *GenesisValidator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
