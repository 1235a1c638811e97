package dispatcher

import (
	"context"
	"testing"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/lifecycle"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/transition"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

type fakeTransport struct {
	streamed  []types.Packet
	broadcast []types.Packet
	peers     []peer.ID
}

func (f *fakeTransport) Stream(ctx context.Context, peers []peer.ID, pkt types.Packet) error {
	f.streamed = append(f.streamed, pkt)
	return nil
}

func (f *fakeTransport) Broadcast(ctx context.Context, pkt types.Packet) error {
	f.broadcast = append(f.broadcast, pkt)
	return nil
}

func (f *fakeTransport) ConnectedPeers() []peer.ID { return f.peers }

func genKey(t *testing.T) (types.PrivateKey, types.Pubkey) {
	t.Helper()
	sk, pk, err := types.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return sk, pk
}

func signedApprovedBlock(candidate types.Candidate, signers ...types.PrivateKey) *types.ApprovedBlock {
	hash := candidate.Hash()
	ab := &types.ApprovedBlock{Candidate: candidate}
	for _, sk := range signers {
		ab.Signatures = append(ab.Signatures, types.ApprovalSig{Validator: sk.Public(), Sig: sk.Sign(hash[:])})
	}
	return ab
}

func newTransitionDeps() transition.Deps {
	return transition.Deps{
		BlockStore:   store.NewMemoryBlockStore(),
		Dag:          store.NewMemoryBlockDagStorage(),
		Engine:       store.NewExecutionEngineService(),
		LastApproved: &store.LastApprovedBlockSlot{},
	}
}

// TestDispatcher_ApprovedBlockTransitionInstallsTerminalHandler covers
// spec.md §8 scenario S1 end-to-end through the dispatcher: a
// sufficiently-signed ApprovedBlock transitions Bootstrap into
// ApprovedBlockReceived and broadcasts a ForkChoiceTipRequest.
func TestDispatcher_ApprovedBlockTransitionInstallsTerminalHandler(t *testing.T) {
	sk1, pk1 := genKey(t)
	sk2, pk2 := genKey(t)
	candidate := types.Candidate{ShardID: "root"}
	ab := signedApprovedBlock(candidate, sk1, sk2)

	bootstrap := &lifecycle.Bootstrap{
		ShardID:         "root",
		KnownValidators: []types.Pubkey{pk1, pk2},
		RequiredSigs:    2,
		TransitionDeps:  newTransitionDeps(),
	}

	ft := &fakeTransport{}
	cell := NewCell(bootstrap)
	bs := store.NewMemoryBlockStore()
	ref := &store.MultiParentCasperRefSlot{}
	d := &Dispatcher{Cell: cell, Transport: ft, BlockStore: bs, MultiParentRef: ref, SelfID: "self"}

	pkt, err := types.Encode(types.TypeApprovedBlock, &types.ApprovedBlockMsg{ApprovedBlock: *ab})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d.Handle(context.Background(), peer.ID("peer-1"), pkt)

	installed, ok := cell.Get().(*lifecycle.ApprovedBlockReceived)
	if !ok {
		t.Fatalf("expected the cell to hold *lifecycle.ApprovedBlockReceived, got %T", cell.Get())
	}
	if len(ft.broadcast) != 1 {
		t.Fatalf("expected exactly one broadcast (ForkChoiceTipRequest), got %d", len(ft.broadcast))
	}
	decoded, ok := types.Decode(ft.broadcast[0])
	if !ok {
		t.Fatal("broadcast packet did not decode")
	}
	if _, ok := decoded.(*types.ForkChoiceTipRequest); !ok {
		t.Fatalf("expected *types.ForkChoiceTipRequest, got %T", decoded)
	}

	gotCasper, ok := ref.Get()
	if !ok {
		t.Fatal("expected MultiParentCasperRef to be set after a successful transition")
	}
	if gotCasper != installed.Casper {
		t.Fatal("expected MultiParentCasperRef to hold the same Casper instance installed into the cell")
	}
}

// TestDispatcher_RejectedApprovedBlockStaysInSameState covers spec.md §8
// scenario S2: an insufficiently-signed ApprovedBlock leaves the handler
// cell untouched and broadcasts nothing.
func TestDispatcher_RejectedApprovedBlockStaysInSameState(t *testing.T) {
	sk1, pk1 := genKey(t)
	_, pk2 := genKey(t)
	candidate := types.Candidate{ShardID: "root"}
	ab := signedApprovedBlock(candidate, sk1)

	bootstrap := &lifecycle.Bootstrap{
		ShardID:         "root",
		KnownValidators: []types.Pubkey{pk1, pk2},
		RequiredSigs:    2,
		TransitionDeps:  newTransitionDeps(),
	}

	ft := &fakeTransport{}
	cell := NewCell(bootstrap)
	d := &Dispatcher{Cell: cell, Transport: ft, BlockStore: store.NewMemoryBlockStore(), SelfID: "self"}

	pkt, err := types.Encode(types.TypeApprovedBlock, &types.ApprovedBlockMsg{ApprovedBlock: *ab})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d.Handle(context.Background(), peer.ID("peer-1"), pkt)

	if cell.Get() != handler.Handler(bootstrap) {
		t.Fatal("expected the handler cell to remain unchanged after a rejected transition")
	}
	if len(ft.broadcast) != 0 {
		t.Fatal("expected no broadcast after a rejected transition")
	}
}

// TestDispatcher_DropsUndecodablePacket covers the PacketDecodeError
// drop path (spec.md §7): an unrecognized typeId must not reach the
// active handler or panic the dispatcher.
func TestDispatcher_DropsUndecodablePacket(t *testing.T) {
	ft := &fakeTransport{}
	cell := NewCell(&lifecycle.Standalone{})
	d := &Dispatcher{Cell: cell, Transport: ft, BlockStore: store.NewMemoryBlockStore(), SelfID: "self"}

	pkt := types.Packet{TypeID: "not-a-real-type", Content: []byte("garbage")}
	d.Handle(context.Background(), peer.ID("peer-1"), pkt)

	if len(ft.streamed) != 0 || len(ft.broadcast) != 0 {
		t.Fatal("expected no transport activity for an undecodable packet")
	}
}

// TestDispatcher_MonotonicityOnceTerminal covers spec.md §8 property 2:
// once ApprovedBlockReceived is installed, a further ApprovedBlock never
// writes the cell back out of it.
func TestDispatcher_MonotonicityOnceTerminal(t *testing.T) {
	var genesisHash types.Root
	genesisHash[0] = 1
	var vpub types.Pubkey
	vpub[0] = 9

	terminal := &lifecycle.ApprovedBlockReceived{
		BaseHandler: handler.BaseHandler{SelfID: "self"},
	}
	ft := &fakeTransport{}
	cell := NewCell(terminal)
	d := &Dispatcher{Cell: cell, Transport: ft, BlockStore: store.NewMemoryBlockStore(), SelfID: "self"}

	sk1, _ := genKey(t)
	candidate := types.Candidate{ShardID: "root"}
	ab := signedApprovedBlock(candidate, sk1)
	pkt, err := types.Encode(types.TypeApprovedBlock, &types.ApprovedBlockMsg{ApprovedBlock: *ab})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	d.Handle(context.Background(), peer.ID("peer-1"), pkt)

	if cell.Get() != handler.Handler(terminal) {
		t.Fatal("the terminal state must never be replaced by a further ApprovedBlock")
	}
}
