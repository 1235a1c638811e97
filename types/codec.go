package types

import (
	"fmt"

	ssz "github.com/ferranbt/fastssz"
)

// This codec is a hand-written, length-prefixed binary encoding rather
// than a full sszgen-generated container: the only variable-length
// fields in this message set are homogeneous lists (bonds, signatures)
// and short identifier strings, so an 8-byte element count (or byte
// length, for strings) plus fixed-size elements is sufficient and avoids
// the offset-table machinery sszgen emits for arbitrarily nested
// variable fields. Counts, lengths and uint64 fields all go through
// fastssz's own MarshalUint64/UnmarshallUint64 helpers, so they use
// SSZ's little-endian uint64 layout.

func marshalU64(dst []byte, v uint64) []byte {
	return ssz.MarshalUint64(dst, v)
}

func unmarshalU64(src []byte) (uint64, error) {
	if len(src) < 8 {
		return 0, errShortBuffer
	}
	return ssz.UnmarshallUint64(src[:8]), nil
}

var errShortBuffer = fmt.Errorf("casper/types: buffer too short")

func writeBytes(dst []byte, b []byte) []byte {
	dst = marshalU64(dst, uint64(len(b)))
	return append(dst, b...)
}

func readBytes(src []byte) (data []byte, rest []byte, err error) {
	n, err := unmarshalU64(src)
	if err != nil {
		return nil, nil, err
	}
	src = src[8:]
	if uint64(len(src)) < n {
		return nil, nil, errShortBuffer
	}
	return src[:n], src[n:], nil
}

func writeString(dst []byte, s string) []byte {
	return writeBytes(dst, []byte(s))
}

func readString(src []byte) (string, []byte, error) {
	b, rest, err := readBytes(src)
	if err != nil {
		return "", nil, err
	}
	return string(b), rest, nil
}

// --- Bond ---

func (b Bond) marshalTo(dst []byte) []byte {
	dst = append(dst, b.Validator[:]...)
	dst = marshalU64(dst, b.Stake)
	return dst
}

func (b *Bond) unmarshal(src []byte) ([]byte, error) {
	if len(src) < 40 {
		return nil, errShortBuffer
	}
	copy(b.Validator[:], src[:32])
	stake, err := unmarshalU64(src[32:40])
	if err != nil {
		return nil, err
	}
	b.Stake = stake
	return src[40:], nil
}

// --- Candidate ---

// MarshalBinary encodes a Candidate as: shardID (len-prefixed) ||
// timestamp(8) || bond count(8) || bonds || minBond(8) ||
// maxBond(8) || hasFaucet(1).
func (c *Candidate) MarshalBinary() ([]byte, error) {
	dst := make([]byte, 0, 64+len(c.Bonds)*40)
	dst = writeString(dst, c.ShardID)
	dst = marshalU64(dst, c.Timestamp)
	dst = marshalU64(dst, uint64(len(c.Bonds)))
	for _, b := range c.Bonds {
		dst = b.marshalTo(dst)
	}
	dst = marshalU64(dst, c.MinimumBond)
	dst = marshalU64(dst, c.MaximumBond)
	if c.HasFaucet {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	return dst, nil
}

func (c *Candidate) unmarshal(src []byte) ([]byte, error) {
	shardID, rest, err := readString(src)
	if err != nil {
		return nil, fmt.Errorf("candidate shard id: %w", err)
	}
	c.ShardID = shardID

	ts, err := unmarshalU64(rest)
	if err != nil {
		return nil, fmt.Errorf("candidate timestamp: %w", err)
	}
	c.Timestamp = ts
	rest = rest[8:]

	count, err := unmarshalU64(rest)
	if err != nil {
		return nil, fmt.Errorf("candidate bond count: %w", err)
	}
	rest = rest[8:]
	c.Bonds = make([]Bond, count)
	for i := range c.Bonds {
		rest, err = c.Bonds[i].unmarshal(rest)
		if err != nil {
			return nil, fmt.Errorf("candidate bond %d: %w", i, err)
		}
	}

	minBond, err := unmarshalU64(rest)
	if err != nil {
		return nil, fmt.Errorf("candidate min bond: %w", err)
	}
	c.MinimumBond = minBond
	rest = rest[8:]

	maxBond, err := unmarshalU64(rest)
	if err != nil {
		return nil, fmt.Errorf("candidate max bond: %w", err)
	}
	c.MaximumBond = maxBond
	rest = rest[8:]

	if len(rest) < 1 {
		return nil, errShortBuffer
	}
	c.HasFaucet = rest[0] != 0
	return rest[1:], nil
}

// UnmarshalBinary decodes a Candidate produced by MarshalBinary.
func (c *Candidate) UnmarshalBinary(data []byte) error {
	_, err := c.unmarshal(data)
	return err
}

// --- Block ---

func (b *Block) MarshalBinary() ([]byte, error) {
	dst := make([]byte, 0, 128)
	dst = append(dst, b.Hash[:]...)
	dst = append(dst, b.ParentHash[:]...)
	dst = append(dst, b.Sender[:]...)
	dst = marshalU64(dst, b.Timestamp)
	if b.Candidate != nil {
		dst = append(dst, 1)
		cbytes, err := b.Candidate.MarshalBinary()
		if err != nil {
			return nil, err
		}
		dst = writeBytes(dst, cbytes)
	} else {
		dst = append(dst, 0)
	}
	return dst, nil
}

func (b *Block) UnmarshalBinary(data []byte) error {
	if len(data) < 96+8+1 {
		return errShortBuffer
	}
	copy(b.Hash[:], data[0:32])
	copy(b.ParentHash[:], data[32:64])
	copy(b.Sender[:], data[64:96])
	ts, err := unmarshalU64(data[96:104])
	if err != nil {
		return err
	}
	b.Timestamp = ts
	rest := data[104:]
	hasCandidate := rest[0]
	rest = rest[1:]
	if hasCandidate != 0 {
		cbytes, _, err := readBytes(rest)
		if err != nil {
			return fmt.Errorf("block candidate: %w", err)
		}
		var cand Candidate
		if err := cand.UnmarshalBinary(cbytes); err != nil {
			return fmt.Errorf("block candidate: %w", err)
		}
		b.Candidate = &cand
	} else {
		b.Candidate = nil
	}
	return nil
}

// --- ApprovalSig ---

func (a ApprovalSig) marshalTo(dst []byte) []byte {
	dst = append(dst, a.Validator[:]...)
	dst = append(dst, a.Sig[:]...)
	return dst
}

func (a *ApprovalSig) unmarshal(src []byte) ([]byte, error) {
	if len(src) < 32+64 {
		return nil, errShortBuffer
	}
	copy(a.Validator[:], src[:32])
	copy(a.Sig[:], src[32:96])
	return src[96:], nil
}

// --- ApprovedBlock ---

func (ab *ApprovedBlock) MarshalBinary() ([]byte, error) {
	cbytes, err := ab.Candidate.MarshalBinary()
	if err != nil {
		return nil, err
	}
	dst := writeBytes(nil, cbytes)
	dst = marshalU64(dst, uint64(len(ab.Signatures)))
	for _, s := range ab.Signatures {
		dst = s.marshalTo(dst)
	}
	return dst, nil
}

func (ab *ApprovedBlock) UnmarshalBinary(data []byte) error {
	cbytes, rest, err := readBytes(data)
	if err != nil {
		return fmt.Errorf("approved block candidate: %w", err)
	}
	if err := ab.Candidate.UnmarshalBinary(cbytes); err != nil {
		return fmt.Errorf("approved block candidate: %w", err)
	}
	count, err := unmarshalU64(rest)
	if err != nil {
		return fmt.Errorf("approved block sig count: %w", err)
	}
	rest = rest[8:]
	ab.Signatures = make([]ApprovalSig, count)
	for i := range ab.Signatures {
		rest, err = ab.Signatures[i].unmarshal(rest)
		if err != nil {
			return fmt.Errorf("approved block sig %d: %w", i, err)
		}
	}
	return nil
}
