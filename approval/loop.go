// Package approval implements the background polling loop that promotes
// a Standalone node to ApprovedBlockReceived once LastApprovedBlock
// becomes populated (spec.md §4.7). It is the only path that transitions
// a node out of Standalone — the dispatcher never does, since a
// Standalone node does not accept externally-delivered approved blocks.
package approval

import (
	"context"
	"log/slog"
	"time"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/dispatcher"
	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/lifecycle"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
)

// Deps bundles the collaborators the timing loop needs to perform the
// Standalone→ApprovedBlockReceived transition and publish its effects.
type Deps struct {
	LastApproved   *store.LastApprovedBlockSlot
	BlockStore     store.BlockStore
	Cell           *dispatcher.Cell
	Transport      handler.Transport
	MultiParentRef *store.MultiParentCasperRefSlot
	Metrics        lifecycle.Metrics

	ValidatorID types.Pubkey // zero value if this node has no signing identity
	ShardID     string
	SelfID      string
	Logger      *slog.Logger
}

// Loop polls LastApprovedBlock every Interval and, once populated,
// performs the one-time transition described in spec.md §4.7's
// pseudocode: persist the genesis block, construct Casper, install
// ApprovedBlockReceived, and broadcast a ForkChoiceTipRequest.
type Loop struct {
	Deps
	Interval time.Duration
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Run blocks until ctx is cancelled or the transition completes,
// whichever comes first. It is intended to run as a long-lived
// background task, cancellable on process shutdown (spec.md §9).
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.tryTransition(ctx) {
				return
			}
		}
	}
}

// tryTransition reports whether the transition completed. A false
// result with no error means LastApprovedBlock was still empty; the
// loop continues polling.
func (l *Loop) tryTransition(ctx context.Context) bool {
	abt, ok := l.LastApproved.Get()
	if !ok {
		return false
	}

	block := abt.ApprovedBlock.Block() // invariant: always present once LastApprovedBlock is set

	if err := l.BlockStore.Put(block.Hash, block, abt.Transforms); err != nil {
		l.logger().Error("approval loop failed to persist approved block", "error", err)
		return false
	}

	c := casper.HashSetCasper(l.ValidatorID, block, l.ShardID)
	if l.MultiParentRef != nil {
		l.MultiParentRef.Set(c)
	}

	next := &lifecycle.ApprovedBlockReceived{
		BaseHandler: handler.BaseHandler{
			SelfID:    l.SelfID,
			Transport: l.Transport,
			Logger:    l.Logger,
		},
		Casper:        c,
		ApprovedBlock: abt.ApprovedBlock,
		BlockStore:    l.BlockStore,
		OwnPubkey:     l.ValidatorID,
		Metrics:       l.Metrics,
	}
	l.Cell.Set(next)
	l.logger().Info("standalone transitioned to ApprovedBlockReceived", "shard", l.ShardID)

	l.broadcastForkChoiceTipRequest(ctx)
	return true
}

func (l *Loop) broadcastForkChoiceTipRequest(ctx context.Context) {
	pkt, err := types.Encode(types.TypeForkChoiceTipRequest, &types.ForkChoiceTipRequest{})
	if err != nil {
		l.logger().Warn("encode fork-choice tip request failed", "error", err)
		return
	}
	if err := l.Transport.Broadcast(ctx, pkt); err != nil {
		l.logger().Warn("broadcast fork-choice tip request failed", "error", err)
	}
}
