package types

import (
	"bytes"
	"testing"

	"github.com/golang/snappy"
)

func testCandidate() Candidate {
	var v1, v2 Pubkey
	v1[0], v2[0] = 1, 2
	return Candidate{
		ShardID: "root",
		Timestamp: 1000,
		Bonds: []Bond{
			{Validator: v1, Stake: 10},
			{Validator: v2, Stake: 20},
		},
		MinimumBond: 1,
		MaximumBond: 100,
		HasFaucet:   true,
	}
}

func testBlock() Block {
	c := testCandidate()
	var hash, parent, sender Root
	hash[0] = 0xAB
	parent[0] = 0xCD
	sender[0] = 0xEF
	return Block{
		Hash:       hash,
		ParentHash: parent,
		Sender:     sender,
		Timestamp:  42,
		Candidate:  &c,
	}
}

// Each variant round-trips through its own MarshalBinary/UnmarshalBinary
// pair, and through the Decode dispatch keyed on typeId (spec.md §8
// property 1).
func TestRoundTrip(t *testing.T) {
	block := testBlock()
	var sig Signature
	sig[0] = 7
	var pub Pubkey
	pub[0] = 9

	cases := []struct {
		name   string
		typeID string
		msg    Message
	}{
		{"BlockMessage", TypeBlockMessage, &BlockMessage{Block: block}},
		{"BlockRequest", TypeBlockRequest, &BlockRequest{Hash: block.Hash}},
		{"ForkChoiceTipRequest", TypeForkChoiceTipRequest, &ForkChoiceTipRequest{}},
		{"ApprovedBlock", TypeApprovedBlock, &ApprovedBlockMsg{ApprovedBlock: ApprovedBlock{
			Candidate:  testCandidate(),
			Signatures: []ApprovalSig{{Validator: pub, Sig: sig}},
		}}},
		{"ApprovedBlockRequest", TypeApprovedBlockRequest, &ApprovedBlockRequest{Identifier: "peer-1"}},
		{"UnapprovedBlock", TypeUnapprovedBlock, &UnapprovedBlock{Candidate: testCandidate(), Timestamp: 99}},
		{"BlockApproval", TypeBlockApproval, &BlockApproval{CandidateHash: block.Hash, Validator: pub, Sig: sig}},
		{"NoApprovedBlockAvailable", TypeNoApprovedBlockAvailable, &NoApprovedBlockAvailable{Identifier: "id", NodeID: "node"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := Encode(tc.typeID, tc.msg)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if pkt.TypeID != tc.typeID {
				t.Fatalf("TypeID = %q, want %q", pkt.TypeID, tc.typeID)
			}

			decoded, ok := Decode(pkt)
			if !ok {
				t.Fatalf("Decode returned ok=false")
			}

			reencoded, err := decoded.(Message).MarshalBinary()
			if err != nil {
				t.Fatalf("re-marshal decoded value: %v", err)
			}
			original, err := tc.msg.MarshalBinary()
			if err != nil {
				t.Fatalf("marshal original: %v", err)
			}
			if !bytes.Equal(reencoded, original) {
				t.Fatalf("decoded value does not round-trip: got %x, want %x", reencoded, original)
			}
		})
	}
}

func TestDecodeUnknownTypeID(t *testing.T) {
	pkt := Packet{TypeID: "not-a-real-type", Content: []byte("garbage")}
	if _, ok := Decode(pkt); ok {
		t.Fatal("Decode should reject an unrecognized typeId")
	}
}

func TestDecodeMalformedBytes(t *testing.T) {
	pkt, err := Encode(TypeBlockApproval, &BlockApproval{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Truncate the decompressed content by re-encoding a too-short payload
	// under the same typeId: a BlockApproval needs 128 bytes, one byte
	// is not enough.
	pkt.Content = snappy.Encode(nil, []byte{0x01})
	if _, ok := Decode(pkt); ok {
		t.Fatal("Decode should reject malformed bytes for a known typeId")
	}
}

// TestReplyIdempotence covers spec.md §8 property 3: encoding the same
// BlockMessage twice yields bit-identical payloads.
func TestReplyIdempotence(t *testing.T) {
	block := testBlock()
	p1, err := Encode(TypeBlockMessage, &BlockMessage{Block: block})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p2, err := Encode(TypeBlockMessage, &BlockMessage{Block: block})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(p1.Content, p2.Content) {
		t.Fatal("repeated encodes of the same block are not bit-identical")
	}
}
