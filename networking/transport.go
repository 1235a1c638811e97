package networking

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
)

// HostConfig holds the construction parameters for the libp2p host
// backing a Transport: its identity key and listen addresses.
type HostConfig struct {
	PrivateKey  crypto.PrivKey
	ListenAddrs []string
}

// NewHost constructs the libp2p host the packet Transport runs over. A
// fresh secp256k1 identity is generated when cfg carries none; the
// default listen address is QUIC on UDP port 9000, matching this
// module's default CLI flag.
func NewHost(ctx context.Context, cfg HostConfig) (host.Host, error) {
	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Secp256k1, 256, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
	}

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{"/ip4/0.0.0.0/udp/9000/quic-v1"}
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("create host: %w", err)
	}
	return h, nil
}

// ParseBootnodes parses the node's configured bootnode addresses into
// peer.AddrInfo. ENR-encoded entries ("enr:...") aren't decodable by
// this transport — which speaks multiaddrs, not discv5 — so they're
// skipped rather than treated as a parse error; unparseable multiaddr
// strings are skipped the same way.
func ParseBootnodes(addrs []string) ([]peer.AddrInfo, error) {
	var peers []peer.AddrInfo
	for _, addr := range addrs {
		if len(addr) >= 4 && addr[:4] == "enr:" {
			continue
		}
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			continue
		}
		pi, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			continue
		}
		peers = append(peers, *pi)
	}
	return peers, nil
}

// PacketProtocolID is the direct-stream protocol used by Stream for
// packets addressed to specific peers (BlockMessage in response to
// BlockRequest, BlockApproval, ApprovedBlock replies, and so on), one
// stream per peer. Broadcast-style sends (UnapprovedBlock,
// ForkChoiceTipRequest) do not use it: Broadcast publishes them on the
// PacketTopic gossipsub topic.
const PacketProtocolID protocol.ID = "/casper/packet/1.0.0"

const maxPacketFrameSize = 16 << 20 // 16MiB, generous upper bound for an approved-block payload

// PacketHandlerFunc is invoked for every packet received, either over a
// direct stream or via the gossip topic.
type PacketHandlerFunc func(ctx context.Context, from peer.ID, pkt types.Packet)

// Transport implements handler.Transport: streaming packets to one or
// more peers over direct libp2p connections, plus a gossipsub topic for
// efficient broadcast. Both paths frame payloads with the same
// length-prefixed encoding, described at encodeFrame below.
type Transport struct {
	host   host.Host
	ps     *pubsub.PubSub
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	logger *slog.Logger

	onPacket PacketHandlerFunc
}

// NewTransport joins the packet gossip topic and registers the direct
// stream protocol handler on h.
func NewTransport(ctx context.Context, h host.Host, logger *slog.Logger) (*Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ps, err := NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	topic, err := ps.Join(PacketTopic)
	if err != nil {
		return nil, fmt.Errorf("join packet topic: %w", err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe packet topic: %w", err)
	}

	t := &Transport{host: h, ps: ps, topic: topic, sub: sub, logger: logger}
	h.SetStreamHandler(PacketProtocolID, t.handleIncomingStream)
	return t, nil
}

// OnPacket registers the callback invoked for every decoded inbound
// packet, from either transport path. Must be set before Start.
func (t *Transport) OnPacket(fn PacketHandlerFunc) {
	t.onPacket = fn
}

// Start begins consuming the gossip subscription in the background.
func (t *Transport) Start(ctx context.Context) {
	go t.readGossip(ctx)
}

func (t *Transport) readGossip(ctx context.Context) {
	for {
		msg, err := t.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Error("gossip subscription error", "error", err)
			continue
		}
		if msg.ReceivedFrom == t.host.ID() {
			continue
		}
		pkt, err := decodeFrame(msg.Data)
		if err != nil {
			t.logger.Debug("dropping malformed gossip frame", "error", err)
			continue
		}
		if t.onPacket != nil {
			t.onPacket(ctx, msg.ReceivedFrom, pkt)
		}
	}
}

func (t *Transport) handleIncomingStream(s network.Stream) {
	defer s.Close()
	from := s.Conn().RemotePeer()

	pkt, err := readFrame(s)
	if err != nil {
		t.logger.Debug("dropping malformed direct-stream frame", "peer", from, "error", err)
		return
	}
	if t.onPacket != nil {
		t.onPacket(context.Background(), from, pkt)
	}
}

// Stream sends pkt to every peer in peers over a direct stream.
// Send failures are logged per-peer and do not abort the remaining
// sends (spec §7: TransportSendError is non-fatal, no retry at this layer).
func (t *Transport) Stream(ctx context.Context, peers []peer.ID, pkt types.Packet) error {
	frame := encodeFrame(pkt)
	var firstErr error
	for _, p := range peers {
		if err := t.streamTo(ctx, p, frame); err != nil {
			t.logger.Warn("stream send failed", "peer", p, "typeId", pkt.TypeID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *Transport) streamTo(ctx context.Context, p peer.ID, frame []byte) error {
	s, err := t.host.NewStream(ctx, p, PacketProtocolID)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer s.Close()
	if _, err := s.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Broadcast publishes pkt to the gossip topic.
func (t *Transport) Broadcast(ctx context.Context, pkt types.Packet) error {
	return t.topic.Publish(ctx, encodeFrame(pkt))
}

// ConnectedPeers returns every peer the host currently has a live
// connection to — the set the bootstrap requester streams its
// ApprovedBlockRequest to.
func (t *Transport) ConnectedPeers() []peer.ID {
	return t.host.Network().Peers()
}

func (t *Transport) Close() error {
	t.sub.Cancel()
	return t.host.Close()
}

// encodeFrame/readFrame/decodeFrame implement the wire framing for a
// types.Packet sent over a direct stream or gossip message: an 8-byte
// length-prefixed typeId string followed by an 8-byte length-prefixed
// content blob (already snappy-compressed by types.Encode).
func encodeFrame(pkt types.Packet) []byte {
	buf := make([]byte, 0, 16+len(pkt.TypeID)+len(pkt.Content))
	buf = appendLenPrefixed(buf, []byte(pkt.TypeID))
	buf = appendLenPrefixed(buf, pkt.Content)
	return buf
}

func appendLenPrefixed(dst, b []byte) []byte {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, b...)
}

func decodeFrame(data []byte) (types.Packet, error) {
	typeID, rest, err := readLenPrefixed(data)
	if err != nil {
		return types.Packet{}, fmt.Errorf("frame typeId: %w", err)
	}
	content, _, err := readLenPrefixed(rest)
	if err != nil {
		return types.Packet{}, fmt.Errorf("frame content: %w", err)
	}
	return types.Packet{TypeID: string(typeID), Content: content}, nil
}

func readLenPrefixed(src []byte) (data, rest []byte, err error) {
	if len(src) < 8 {
		return nil, nil, fmt.Errorf("short frame header")
	}
	n := binary.LittleEndian.Uint64(src[:8])
	src = src[8:]
	if n > maxPacketFrameSize || uint64(len(src)) < n {
		return nil, nil, fmt.Errorf("frame length %d out of bounds", n)
	}
	return src[:n], src[n:], nil
}

func readFrame(r io.Reader) (types.Packet, error) {
	br := bufio.NewReader(r)
	typeID, err := readLenPrefixedReader(br)
	if err != nil {
		return types.Packet{}, fmt.Errorf("read typeId: %w", err)
	}
	content, err := readLenPrefixedReader(br)
	if err != nil {
		return types.Packet{}, fmt.Errorf("read content: %w", err)
	}
	return types.Packet{TypeID: string(typeID), Content: content}, nil
}

func readLenPrefixedReader(r *bufio.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	if n > maxPacketFrameSize {
		return nil, fmt.Errorf("frame length %d exceeds maximum", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
