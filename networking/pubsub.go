package networking

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/golang/snappy"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/host"
)

// PacketTopic is the single gossipsub topic the packet-handler core
// broadcasts on. Unlike a beacon-chain node's per-kind topics, every
// wire packet variant here shares one topic: the typeId inside the
// packet envelope (see types.Packet) discriminates the payload, not the
// topic name.
const PacketTopic = "/casper/packets/ssz_snappy"

// Message domains for gossipsub message ID computation, matching the
// convention other lean-consensus clients on this mesh use so message
// IDs are computed identically across implementations.
var (
	messageDomainInvalidSnappy = [4]byte{0x00, 0x00, 0x00, 0x00}
	messageDomainValidSnappy   = [4]byte{0x01, 0x00, 0x00, 0x00}
)

const seenMessagesTTL = 24 * time.Second

// NewGossipSub creates a gossipsub instance for packet broadcast.
func NewGossipSub(ctx context.Context, h host.Host) (*pubsub.PubSub, error) {
	gsParams := pubsub.DefaultGossipSubParams()
	gsParams.D = 8
	gsParams.Dlo = 6
	gsParams.Dhi = 12
	gsParams.Dlazy = 6
	gsParams.HeartbeatInterval = time.Duration(0.7 * float64(time.Second))
	gsParams.FanoutTTL = 60 * time.Second
	gsParams.HistoryLength = 6
	gsParams.HistoryGossip = 3

	opts := []pubsub.Option{
		pubsub.WithMessageIdFn(computePubsubMessageID),
		pubsub.WithGossipSubParams(gsParams),
		pubsub.WithSeenMessagesTTL(seenMessagesTTL),
		pubsub.WithMessageSignaturePolicy(pubsub.StrictNoSign),
		pubsub.WithFloodPublish(false),
	}

	return pubsub.NewGossipSub(ctx, h, opts...)
}

// computePubsubMessageID computes the 20-byte message ID for gossipsub
// deduplication: ID = SHA256(domain + len(topic) + topic + data)[:20].
func computePubsubMessageID(msg *pb.Message) string {
	var domain [4]byte
	var data []byte

	decoded, err := snappy.Decode(nil, msg.Data)
	if err == nil {
		domain = messageDomainValidSnappy
		data = decoded
	} else {
		domain = messageDomainInvalidSnappy
		data = msg.Data
	}

	topicBytes := []byte(msg.GetTopic())
	topicLen := make([]byte, 8)
	binary.LittleEndian.PutUint64(topicLen, uint64(len(topicBytes)))

	h := sha256.New()
	h.Write(domain[:])
	h.Write(topicLen)
	h.Write(topicBytes)
	h.Write(data)

	return string(h.Sum(nil)[:20])
}
