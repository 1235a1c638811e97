package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

// Bond is a validator's staked amount at genesis.
type Bond struct {
	Validator Pubkey
	Stake     uint64
}

// Candidate is the genesis (or checkpoint) block a committee of
// validators signs off on. It intentionally omits the block's DAG body:
// block-body validation beyond signature counting is out of scope
// (spec.md §1 Non-goals).
type Candidate struct {
	ShardID     string
	Timestamp   uint64
	Bonds       []Bond
	MinimumBond uint64
	MaximumBond uint64
	HasFaucet   bool
}

// Hash returns the deterministic content hash used as the candidate's
// identity and as the payload validators sign over.
func (c *Candidate) Hash() Root {
	var buf bytes.Buffer
	buf.WriteString(c.ShardID)
	writeUint64(&buf, c.Timestamp)
	writeUint64(&buf, uint64(len(c.Bonds)))
	for _, b := range c.Bonds {
		buf.Write(b.Validator[:])
		writeUint64(&buf, b.Stake)
	}
	writeUint64(&buf, c.MinimumBond)
	writeUint64(&buf, c.MaximumBond)
	if c.HasFaucet {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return sha256.Sum256(buf.Bytes())
}

// Matches reports whether this candidate was built from the same genesis
// parameters as other — the check a GenesisValidator performs before
// signing an UnapprovedBlock.
func (c *Candidate) Matches(other *Candidate) bool {
	if c.ShardID != other.ShardID {
		return false
	}
	if c.MinimumBond != other.MinimumBond || c.MaximumBond != other.MaximumBond {
		return false
	}
	if c.HasFaucet != other.HasFaucet {
		return false
	}
	if len(c.Bonds) != len(other.Bonds) {
		return false
	}
	want := make(map[Pubkey]uint64, len(c.Bonds))
	for _, b := range c.Bonds {
		want[b.Validator] = b.Stake
	}
	for _, b := range other.Bonds {
		stake, ok := want[b.Validator]
		if !ok || stake != b.Stake {
			return false
		}
	}
	return true
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// Block is the minimal shape the packet-handler core needs to store,
// hash, and forward. Full block-body semantics belong to the block DAG
// storage and execution engine collaborators (out of scope, spec.md §1).
type Block struct {
	Hash       Root
	ParentHash Root
	Sender     Pubkey
	Timestamp  uint64
	Candidate  *Candidate // non-nil only for the genesis block
}

// Transforms is the state-delta representation produced by executing a
// block against the execution engine, stored alongside the block.
type Transforms struct {
	Data []byte
}

// ApprovedBlock is a candidate genesis block together with the
// signatures a committee produced over its hash.
type ApprovedBlock struct {
	Candidate  Candidate
	Signatures []ApprovalSig
}

// ApprovalSig is one validator's signature over an ApprovedBlock's
// candidate hash.
type ApprovalSig struct {
	Validator Pubkey
	Sig       Signature
}

// Block returns the genesis Block implied by this approved candidate.
func (ab *ApprovedBlock) Block() *Block {
	h := ab.Candidate.Hash()
	return &Block{
		Hash:      h,
		Timestamp: ab.Candidate.Timestamp,
		Candidate: &ab.Candidate,
	}
}

// ApprovedBlockWithTransforms pairs a validated ApprovedBlock with the
// state transforms its contained block produced. Stored once in the
// LastApprovedBlock slot.
type ApprovedBlockWithTransforms struct {
	ApprovedBlock *ApprovedBlock
	Transforms    *Transforms
}
