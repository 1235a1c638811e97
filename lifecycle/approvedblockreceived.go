package lifecycle

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Metrics is the two-counter surface named in spec.md §6, scoped under a
// metrics source named "packet-handler".
type Metrics interface {
	IncBlocksReceived()
	IncBlocksReceivedAgain()
}

// ApprovedBlockReceived is the terminal, fully-participating state: it
// propagates blocks, answers fork-choice and approved-block requests,
// and runs doppelgänger detection. Absorbing — no write ever transitions
// out of it (future checkpoint re-approval is explicitly deferred).
type ApprovedBlockReceived struct {
	handler.BaseHandler

	Casper        *casper.Casper
	ApprovedBlock *types.ApprovedBlock
	BlockStore    store.BlockStore
	OwnPubkey     types.Pubkey // zero value if this node has no validator identity
	Metrics       Metrics

	blocksReceived      atomic.Int64
	blocksReceivedAgain atomic.Int64
}

func (a *ApprovedBlockReceived) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// HandleBlockMessage increments blocks-received, short-circuits on an
// already-known block (incrementing blocks-received-again instead), and
// otherwise adds the block to Casper with a doppelgänger-detection
// callback closed over the originating peer.
func (a *ApprovedBlockReceived) HandleBlockMessage(ctx context.Context, from peer.ID, msg *types.BlockMessage) {
	a.blocksReceived.Add(1)
	if a.Metrics != nil {
		a.Metrics.IncBlocksReceived()
	}

	if a.Casper.Contains(&msg.Block) {
		a.logger().Info("Received block again", "hash", msg.Block.Hash.Short(), "peer", from)
		a.blocksReceivedAgain.Add(1)
		if a.Metrics != nil {
			a.Metrics.IncBlocksReceivedAgain()
		}
		return
	}

	a.logger().Info("Received block", "hash", msg.Block.Hash.Short(), "peer", from)
	a.Casper.AddBlock(&msg.Block, func(incoming *types.Block, ownPubkey types.Pubkey) {
		if incoming.Sender == ownPubkey && !ownPubkey.IsZero() {
			a.logger().Warn("observed a block signed by our own validator key; another node may be using it", "peer", from)
		}
	})
}

// HandleBlockRequest streams the requested block back to peer if it is
// in the store, otherwise logs and does nothing further.
func (a *ApprovedBlockReceived) HandleBlockRequest(ctx context.Context, from peer.ID, msg *types.BlockRequest) {
	pkt, found, err := a.BlockStore.GetBlockMessage(msg.Hash)
	if err != nil {
		a.logger().Warn("block store lookup failed", "hash", msg.Hash.Short(), "error", err)
		return
	}
	if !found {
		a.logger().Info("No response given since block not found", "hash", msg.Hash.Short())
		return
	}
	if err := a.Transport.Stream(ctx, []peer.ID{from}, *pkt); err != nil {
		a.logger().Warn("send block message failed", "peer", from, "error", err)
		return
	}
	a.logger().Info("Response sent", "hash", msg.Hash.Short(), "peer", from)
}

// HandleForkChoiceTipRequest streams the current fork-choice tip block
// back to peer.
func (a *ApprovedBlockReceived) HandleForkChoiceTipRequest(ctx context.Context, from peer.ID, msg *types.ForkChoiceTipRequest) {
	tip := a.Casper.ForkChoiceTip()
	if tip == nil {
		return
	}
	pkt, err := types.Encode(types.TypeBlockMessage, &types.BlockMessage{Block: *tip})
	if err != nil {
		a.logger().Warn("encode fork-choice tip failed", "error", err)
		return
	}
	if err := a.Transport.Stream(ctx, []peer.ID{from}, pkt); err != nil {
		a.logger().Warn("send fork-choice tip failed", "peer", from, "error", err)
	}
}

// HandleApprovedBlockRequest streams the stored ApprovedBlock back to
// peer — this state has one, unlike the pre-transition states.
func (a *ApprovedBlockReceived) HandleApprovedBlockRequest(ctx context.Context, from peer.ID, msg *types.ApprovedBlockRequest) {
	pkt, err := types.Encode(types.TypeApprovedBlock, &types.ApprovedBlockMsg{ApprovedBlock: *a.ApprovedBlock})
	if err != nil {
		a.logger().Warn("encode approved block failed", "error", err)
		return
	}
	if err := a.Transport.Stream(ctx, []peer.ID{from}, pkt); err != nil {
		a.logger().Warn("send approved block failed", "peer", from, "error", err)
	}
}

// HandleApprovedBlock is inherited from BaseHandler's no-op default —
// the terminal state does not re-approve (future checkpoint extension).
