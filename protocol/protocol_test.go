package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

type fakeTransport struct {
	streamed   []types.Packet
	streamedTo [][]peer.ID
	broadcast  []types.Packet
}

func (f *fakeTransport) Stream(ctx context.Context, peers []peer.ID, pkt types.Packet) error {
	f.streamed = append(f.streamed, pkt)
	f.streamedTo = append(f.streamedTo, peers)
	return nil
}

func (f *fakeTransport) Broadcast(ctx context.Context, pkt types.Packet) error {
	f.broadcast = append(f.broadcast, pkt)
	return nil
}

func (f *fakeTransport) ConnectedPeers() []peer.ID { return nil }

func genKey(t *testing.T) (types.PrivateKey, types.Pubkey) {
	t.Helper()
	sk, pk, err := types.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return sk, pk
}

func TestBlockApproverProtocol_SignsMatchingCandidate(t *testing.T) {
	sk, pk := genKey(t)
	ft := &fakeTransport{}
	expected := &types.Candidate{ShardID: "root", MinimumBond: 1, MaximumBond: 100}
	b := &BlockApproverProtocol{
		Identity:  types.ValidatorIdentity{PrivateKey: sk, PublicKey: pk},
		Expected:  expected,
		Transport: ft,
	}

	incoming := types.Candidate{ShardID: "root", MinimumBond: 1, MaximumBond: 100}
	b.HandleUnapprovedBlock(context.Background(), peer.ID("peer-1"), &types.UnapprovedBlock{Candidate: incoming})

	if len(ft.streamed) != 1 {
		t.Fatalf("expected exactly one BlockApproval reply, got %d", len(ft.streamed))
	}
	decoded, ok := types.Decode(ft.streamed[0])
	if !ok {
		t.Fatal("reply did not decode")
	}
	approval, ok := decoded.(*types.BlockApproval)
	if !ok {
		t.Fatalf("expected *types.BlockApproval, got %T", decoded)
	}
	hash := incoming.Hash()
	if approval.CandidateHash != hash {
		t.Fatal("approval does not cover the candidate's hash")
	}
	if !types.Verify(approval.Validator, hash[:], approval.Sig) {
		t.Fatal("approval signature does not verify")
	}
}

func TestBlockApproverProtocol_IgnoresNonMatchingCandidate(t *testing.T) {
	sk, pk := genKey(t)
	ft := &fakeTransport{}
	expected := &types.Candidate{ShardID: "root"}
	b := &BlockApproverProtocol{
		Identity:  types.ValidatorIdentity{PrivateKey: sk, PublicKey: pk},
		Expected:  expected,
		Transport: ft,
	}

	incoming := types.Candidate{ShardID: "other-shard"}
	b.HandleUnapprovedBlock(context.Background(), peer.ID("peer-1"), &types.UnapprovedBlock{Candidate: incoming})

	if len(ft.streamed) != 0 {
		t.Fatal("expected no reply for a non-matching candidate")
	}
}

func TestApproveBlockProtocol_BroadcastsImmediatelyAndOnInterval(t *testing.T) {
	ft := &fakeTransport{}
	candidate := &types.Candidate{ShardID: "root"}
	p := NewApproveBlockProtocol(candidate, 2, 20*time.Millisecond, ApproveBlockProtocolDeps{
		Transport:    ft,
		Engine:       store.NewExecutionEngineService(),
		Dag:          store.NewMemoryBlockDagStorage(),
		LastApproved: &store.LastApprovedBlockSlot{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	if len(ft.broadcast) < 2 {
		t.Fatalf("expected at least 2 broadcasts within the window, got %d", len(ft.broadcast))
	}
}

// TestApproveBlockProtocol_PublishesOnceThresholdReached covers spec.md
// §4.5/§8: once requiredSigs distinct valid signatures arrive, the
// protocol publishes LastApprovedBlock exactly once, and ignores further
// approvals.
func TestApproveBlockProtocol_PublishesOnceThresholdReached(t *testing.T) {
	sk1, pk1 := genKey(t)
	sk2, pk2 := genKey(t)
	sk3, pk3 := genKey(t)
	ft := &fakeTransport{}
	candidate := &types.Candidate{ShardID: "root"}
	lastApproved := &store.LastApprovedBlockSlot{}
	p := NewApproveBlockProtocol(candidate, 2, time.Hour, ApproveBlockProtocolDeps{
		Transport:    ft,
		Engine:       store.NewExecutionEngineService(),
		Dag:          store.NewMemoryBlockDagStorage(),
		LastApproved: lastApproved,
	})

	hash := candidate.Hash()
	p.AddApproval(context.Background(), &types.BlockApproval{CandidateHash: hash, Validator: pk1, Sig: sk1.Sign(hash[:])})
	if _, ok := lastApproved.Get(); ok {
		t.Fatal("must not publish before requiredSigs is reached")
	}

	p.AddApproval(context.Background(), &types.BlockApproval{CandidateHash: hash, Validator: pk2, Sig: sk2.Sign(hash[:])})
	abt, ok := lastApproved.Get()
	if !ok {
		t.Fatal("expected LastApprovedBlock to be published once requiredSigs is reached")
	}
	if len(abt.ApprovedBlock.Signatures) != 2 {
		t.Fatalf("expected 2 signatures in the published approved block, got %d", len(abt.ApprovedBlock.Signatures))
	}

	// A third, later approval must not replace the already-published value.
	p.AddApproval(context.Background(), &types.BlockApproval{CandidateHash: hash, Validator: pk3, Sig: sk3.Sign(hash[:])})
	abt2, _ := lastApproved.Get()
	if abt2 != abt {
		t.Fatal("expected LastApprovedBlock to publish exactly once")
	}
}

func TestApproveBlockProtocol_RejectsInvalidSignature(t *testing.T) {
	_, pk1 := genKey(t)
	ft := &fakeTransport{}
	candidate := &types.Candidate{ShardID: "root"}
	lastApproved := &store.LastApprovedBlockSlot{}
	p := NewApproveBlockProtocol(candidate, 1, time.Hour, ApproveBlockProtocolDeps{
		Transport:    ft,
		Engine:       store.NewExecutionEngineService(),
		Dag:          store.NewMemoryBlockDagStorage(),
		LastApproved: lastApproved,
	})

	hash := candidate.Hash()
	var badSig types.Signature
	p.AddApproval(context.Background(), &types.BlockApproval{CandidateHash: hash, Validator: pk1, Sig: badSig})

	if _, ok := lastApproved.Get(); ok {
		t.Fatal("an invalid signature must not count toward requiredSigs")
	}
}
