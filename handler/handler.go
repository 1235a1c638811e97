// Package handler defines the common interface every lifecycle state
// implements, the transport contract handlers reply through, and a
// BaseHandler embedding that supplies the specified no-op defaults.
package handler

import (
	"context"
	"log/slog"

	"github.com/casper-node/node/casper"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Transport is the minimum surface the core needs from the networking
// layer: stream a packet to a set of peers, broadcast a packet to the
// network, and list the currently connected peers. networking.Transport
// implements Broadcast by publishing on its gossipsub topic.
type Transport interface {
	Stream(ctx context.Context, peers []peer.ID, pkt types.Packet) error
	Broadcast(ctx context.Context, pkt types.Packet) error
	ConnectedPeers() []peer.ID
}

// Handler is implemented by each of the four lifecycle states. Default
// behavior for every non-applicable method is a no-op; BaseHandler
// supplies that default so each state only overrides what it cares
// about.
type Handler interface {
	HandleBlockMessage(ctx context.Context, peer peer.ID, msg *types.BlockMessage)
	HandleBlockRequest(ctx context.Context, peer peer.ID, msg *types.BlockRequest)
	HandleForkChoiceTipRequest(ctx context.Context, peer peer.ID, msg *types.ForkChoiceTipRequest)
	HandleApprovedBlock(ctx context.Context, msg *types.ApprovedBlockMsg) *casper.Casper
	HandleApprovedBlockRequest(ctx context.Context, peer peer.ID, msg *types.ApprovedBlockRequest)
	HandleUnapprovedBlock(ctx context.Context, peer peer.ID, msg *types.UnapprovedBlock)
	HandleBlockApproval(ctx context.Context, msg *types.BlockApproval)
	HandleNoApprovedBlockAvailable(ctx context.Context, msg *types.NoApprovedBlockAvailable)
}

// BaseHandler supplies the specified defaults: every method is a no-op
// except HandleNoApprovedBlockAvailable (always logs the originating
// node) and HandleApprovedBlockRequest (replies NoApprovedBlockAvailable
// before the genesis transition). States embed BaseHandler and override
// only what they need; HandleApprovedBlock has no meaningful default (it
// must report a decision), so BaseHandler's returns nil, meaning "no
// transition".
type BaseHandler struct {
	SelfID    string
	Transport Transport
	Logger    *slog.Logger
}

func (h *BaseHandler) HandleBlockMessage(ctx context.Context, p peer.ID, msg *types.BlockMessage) {}

func (h *BaseHandler) HandleBlockRequest(ctx context.Context, p peer.ID, msg *types.BlockRequest) {}

func (h *BaseHandler) HandleForkChoiceTipRequest(ctx context.Context, p peer.ID, msg *types.ForkChoiceTipRequest) {
}

func (h *BaseHandler) HandleApprovedBlock(ctx context.Context, msg *types.ApprovedBlockMsg) *casper.Casper {
	return nil
}

// HandleApprovedBlockRequest replies NoApprovedBlockAvailable — the
// default for every state before the genesis transition.
func (h *BaseHandler) HandleApprovedBlockRequest(ctx context.Context, p peer.ID, msg *types.ApprovedBlockRequest) {
	reply, err := types.Encode(types.TypeNoApprovedBlockAvailable, &types.NoApprovedBlockAvailable{
		Identifier: msg.Identifier,
		NodeID:     h.SelfID,
	})
	if err != nil {
		h.logger().Warn("encode NoApprovedBlockAvailable failed", "error", err)
		return
	}
	if err := h.Transport.Stream(ctx, []peer.ID{p}, reply); err != nil {
		h.logger().Warn("send NoApprovedBlockAvailable failed", "peer", p, "error", err)
	}
}

func (h *BaseHandler) HandleUnapprovedBlock(ctx context.Context, p peer.ID, msg *types.UnapprovedBlock) {}

func (h *BaseHandler) HandleBlockApproval(ctx context.Context, msg *types.BlockApproval) {}

// HandleNoApprovedBlockAvailable always logs — every state shares this
// behavior.
func (h *BaseHandler) HandleNoApprovedBlockAvailable(ctx context.Context, msg *types.NoApprovedBlockAvailable) {
	h.logger().Info("no approved block available", "identifier", msg.Identifier, "node", msg.NodeID)
}

func (h *BaseHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
