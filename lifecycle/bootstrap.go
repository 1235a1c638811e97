package lifecycle

import (
	"context"
	"log/slog"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/transition"
	"github.com/casper-node/node/types"

	"github.com/casper-node/node/handler"
)

// Bootstrap is active while this node is catching up: it requests an
// ApprovedBlock once, after a startup delay (via the bootstrap requester
// background task, not this type) and, on receiving one, runs the
// transition routine against the configured known-validators set.
type Bootstrap struct {
	handler.BaseHandler

	ShardID         string
	ValidatorID     types.Pubkey // zero value if this node has no signing identity
	KnownValidators []types.Pubkey
	RequiredSigs    uint64
	TransitionDeps  transition.Deps
}

// HandleApprovedBlock runs the transition routine against the
// configured known-validators set. The FIXME in spec.md §9 applies here:
// bonds are taken from local config, not from the validated approved
// block itself.
func (b *Bootstrap) HandleApprovedBlock(ctx context.Context, msg *types.ApprovedBlockMsg) *casper.Casper {
	c, err := transition.OnApprovedBlockTransition(
		b.TransitionDeps,
		&msg.ApprovedBlock,
		b.KnownValidators,
		b.RequiredSigs,
		b.ValidatorID,
		b.ShardID,
	)
	if err != nil {
		b.logger().Warn("bootstrap transition failed", "error", err)
		return nil
	}
	return c
}

func (b *Bootstrap) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
