// Package bootstrap implements the one-shot delayed task that emits an
// ApprovedBlockRequest while a node is catching up (spec.md §4.6).
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/types"
)

// Requester sends a single ApprovedBlockRequest to every connected peer
// after Delay has elapsed, unless ctx is cancelled first. It sends the
// request once and does not repeat it, whether or not a peer answers
// with an ApprovedBlock; peers that have none reply
// NoApprovedBlockAvailable.
type Requester struct {
	Transport  handler.Transport
	Delay      time.Duration
	Identifier string
	Logger     *slog.Logger
}

func (r *Requester) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run waits Delay, then streams an ApprovedBlockRequest to every
// currently connected peer.
func (r *Requester) Run(ctx context.Context) {
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	pkt, err := types.Encode(types.TypeApprovedBlockRequest, &types.ApprovedBlockRequest{Identifier: r.Identifier})
	if err != nil {
		r.logger().Warn("encode approved block request failed", "error", err)
		return
	}

	peers := r.Transport.ConnectedPeers()
	if len(peers) == 0 {
		r.logger().Debug("no connected peers to request approved block from")
		return
	}
	if err := r.Transport.Stream(ctx, peers, pkt); err != nil {
		r.logger().Warn("send approved block request failed", "error", err)
	}
}
