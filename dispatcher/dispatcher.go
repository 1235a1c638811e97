// Package dispatcher routes decoded packets to the currently active
// lifecycle handler and performs the one state transition it is
// responsible for: installing ApprovedBlockReceived once a handler
// reports a successful approved-block transition (spec.md §4.2).
package dispatcher

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/lifecycle"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Cell is the single-slot atomic box holding the currently active
// handler. Reads are frequent (every dispatched packet); writes are
// rare — at most once per lifecycle instance, from either the
// dispatcher (GenesisValidator/Bootstrap exit) or the approval loop
// (Standalone exit). Stores are sequentially consistent, which is all
// §5 requires since each install happens-after every side effect that
// produced it.
type Cell struct {
	v atomic.Pointer[handler.Handler]
}

// NewCell constructs a Cell holding the node's initial handler, chosen
// by role at startup.
func NewCell(h handler.Handler) *Cell {
	c := &Cell{}
	c.Set(h)
	return c
}

// Get returns the currently active handler.
func (c *Cell) Get() handler.Handler {
	p := c.v.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Set installs h as the active handler.
func (c *Cell) Set(h handler.Handler) {
	c.v.Store(&h)
}

// Dispatcher is the single entry point the transport calls for every
// inbound packet. It performs no validation of its own — it decodes,
// routes, and on a successful approved-block transition, swaps the
// handler cell and broadcasts a ForkChoiceTipRequest. The fields it
// carries are exactly what's needed to construct the terminal
// ApprovedBlockReceived handler; node wiring supplies them once at
// startup.
type Dispatcher struct {
	Cell           *Cell
	Transport      handler.Transport
	BlockStore     store.BlockStore
	MultiParentRef *store.MultiParentCasperRefSlot
	SelfID         string
	OwnPubkey      types.Pubkey // zero value if this node has no validator identity
	Metrics        lifecycle.Metrics
	Logger         *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Handle decodes pkt and forwards it to the active handler. If decoding
// fails (unrecognized typeId or malformed bytes for a known one), the
// packet is silently dropped — not this dispatcher's concern (spec.md
// §4.1, §7 PacketDecodeError).
func (d *Dispatcher) Handle(ctx context.Context, from peer.ID, pkt types.Packet) {
	msg, ok := types.Decode(pkt)
	if !ok {
		d.logger().Debug("dropping undecodable packet", "typeId", pkt.TypeID, "peer", from)
		return
	}

	h := d.Cell.Get()
	if h == nil {
		return
	}

	switch m := msg.(type) {
	case *types.BlockMessage:
		h.HandleBlockMessage(ctx, from, m)
	case *types.BlockRequest:
		h.HandleBlockRequest(ctx, from, m)
	case *types.ForkChoiceTipRequest:
		h.HandleForkChoiceTipRequest(ctx, from, m)
	case *types.ApprovedBlockMsg:
		d.handleApprovedBlock(ctx, h, m)
	case *types.ApprovedBlockRequest:
		h.HandleApprovedBlockRequest(ctx, from, m)
	case *types.UnapprovedBlock:
		h.HandleUnapprovedBlock(ctx, from, m)
	case *types.BlockApproval:
		h.HandleBlockApproval(ctx, m)
	case *types.NoApprovedBlockAvailable:
		h.HandleNoApprovedBlockAvailable(ctx, m)
	}
}

// handleApprovedBlock implements the dispatcher's one piece of
// transition logic (spec.md §4.2 step 4): on a non-nil Casper,
// atomically publish it to MultiParentCasperRef, install
// ApprovedBlockReceived, log the transition, and broadcast a
// ForkChoiceTipRequest; otherwise do nothing further.
func (d *Dispatcher) handleApprovedBlock(ctx context.Context, h handler.Handler, m *types.ApprovedBlockMsg) {
	c := h.HandleApprovedBlock(ctx, m)
	if c == nil {
		return
	}

	if d.MultiParentRef != nil {
		d.MultiParentRef.Set(c)
	}

	ab := m.ApprovedBlock
	next := &lifecycle.ApprovedBlockReceived{
		BaseHandler: handler.BaseHandler{
			SelfID:    d.SelfID,
			Transport: d.Transport,
			Logger:    d.Logger,
		},
		Casper:        c,
		ApprovedBlock: &ab,
		BlockStore:    d.BlockStore,
		OwnPubkey:     d.OwnPubkey,
		Metrics:       d.Metrics,
	}
	d.Cell.Set(next)
	d.logger().Info("transitioned to ApprovedBlockReceived", "shard", c.ShardID())

	d.broadcastForkChoiceTipRequest(ctx)
}

func (d *Dispatcher) broadcastForkChoiceTipRequest(ctx context.Context) {
	pkt, err := types.Encode(types.TypeForkChoiceTipRequest, &types.ForkChoiceTipRequest{})
	if err != nil {
		d.logger().Warn("encode fork-choice tip request failed", "error", err)
		return
	}
	if err := d.Transport.Broadcast(ctx, pkt); err != nil {
		d.logger().Warn("broadcast fork-choice tip request failed", "error", err)
	}
}
