package types

import (
	"fmt"

	"github.com/golang/snappy"
)

// --- BlockMessage ---

func (m *BlockMessage) MarshalBinary() ([]byte, error) { return m.Block.MarshalBinary() }

func (m *BlockMessage) UnmarshalBinary(data []byte) error { return m.Block.UnmarshalBinary(data) }

// --- BlockRequest ---

func (m *BlockRequest) MarshalBinary() ([]byte, error) {
	return append([]byte{}, m.Hash[:]...), nil
}

func (m *BlockRequest) UnmarshalBinary(data []byte) error {
	if len(data) < 32 {
		return errShortBuffer
	}
	copy(m.Hash[:], data[:32])
	return nil
}

// --- ForkChoiceTipRequest ---

func (m *ForkChoiceTipRequest) MarshalBinary() ([]byte, error) { return nil, nil }

func (m *ForkChoiceTipRequest) UnmarshalBinary(data []byte) error { return nil }

// --- ApprovedBlockMsg ---

func (m *ApprovedBlockMsg) MarshalBinary() ([]byte, error) { return m.ApprovedBlock.MarshalBinary() }

func (m *ApprovedBlockMsg) UnmarshalBinary(data []byte) error {
	return m.ApprovedBlock.UnmarshalBinary(data)
}

// --- ApprovedBlockRequest ---

func (m *ApprovedBlockRequest) MarshalBinary() ([]byte, error) {
	return writeString(nil, m.Identifier), nil
}

func (m *ApprovedBlockRequest) UnmarshalBinary(data []byte) error {
	id, _, err := readString(data)
	if err != nil {
		return err
	}
	m.Identifier = id
	return nil
}

// --- UnapprovedBlock ---

func (m *UnapprovedBlock) MarshalBinary() ([]byte, error) {
	cbytes, err := m.Candidate.MarshalBinary()
	if err != nil {
		return nil, err
	}
	dst := writeBytes(nil, cbytes)
	dst = marshalU64(dst, m.Timestamp)
	return dst, nil
}

func (m *UnapprovedBlock) UnmarshalBinary(data []byte) error {
	cbytes, rest, err := readBytes(data)
	if err != nil {
		return fmt.Errorf("unapproved block candidate: %w", err)
	}
	if err := m.Candidate.UnmarshalBinary(cbytes); err != nil {
		return fmt.Errorf("unapproved block candidate: %w", err)
	}
	ts, err := unmarshalU64(rest)
	if err != nil {
		return fmt.Errorf("unapproved block timestamp: %w", err)
	}
	m.Timestamp = ts
	return nil
}

// --- BlockApproval ---

func (m *BlockApproval) MarshalBinary() ([]byte, error) {
	dst := make([]byte, 0, 32+32+64)
	dst = append(dst, m.CandidateHash[:]...)
	dst = append(dst, m.Validator[:]...)
	dst = append(dst, m.Sig[:]...)
	return dst, nil
}

func (m *BlockApproval) UnmarshalBinary(data []byte) error {
	if len(data) < 32+32+64 {
		return errShortBuffer
	}
	copy(m.CandidateHash[:], data[0:32])
	copy(m.Validator[:], data[32:64])
	copy(m.Sig[:], data[64:128])
	return nil
}

// --- NoApprovedBlockAvailable ---

func (m *NoApprovedBlockAvailable) MarshalBinary() ([]byte, error) {
	dst := writeString(nil, m.Identifier)
	dst = writeString(dst, m.NodeID)
	return dst, nil
}

func (m *NoApprovedBlockAvailable) UnmarshalBinary(data []byte) error {
	id, rest, err := readString(data)
	if err != nil {
		return err
	}
	node, _, err := readString(rest)
	if err != nil {
		return err
	}
	m.Identifier = id
	m.NodeID = node
	return nil
}

// Message is implemented by every decoded protocol message variant.
// It exists only to give Encode a bound on what it accepts; decoding
// returns `any` since each typeId decodes to a distinct concrete type.
type Message interface {
	MarshalBinary() ([]byte, error)
}

// Encode compresses and wraps msg into a wire Packet under typeID.
func Encode(typeID string, msg Message) (Packet, error) {
	raw, err := msg.MarshalBinary()
	if err != nil {
		return Packet{}, fmt.Errorf("marshal %s: %w", typeID, err)
	}
	return Packet{TypeID: typeID, Content: snappy.Encode(nil, raw)}, nil
}

// Decode converts a wire packet into one of the eight protocol message
// variants. It returns (nil, false) for an unrecognized typeId or for
// bytes that fail to parse as the corresponding message — both cases
// are silently-dropped packets from the dispatcher's point of view
// (spec.md §4.1, §7 PacketDecodeError).
func Decode(pkt Packet) (any, bool) {
	content, err := snappy.Decode(nil, pkt.Content)
	if err != nil {
		return nil, false
	}

	switch pkt.TypeID {
	case TypeBlockMessage:
		var m BlockMessage
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeBlockRequest:
		var m BlockRequest
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeForkChoiceTipRequest:
		var m ForkChoiceTipRequest
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeApprovedBlock:
		var m ApprovedBlockMsg
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeApprovedBlockRequest:
		var m ApprovedBlockRequest
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeUnapprovedBlock:
		var m UnapprovedBlock
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeBlockApproval:
		var m BlockApproval
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	case TypeNoApprovedBlockAvailable:
		var m NoApprovedBlockAvailable
		if m.UnmarshalBinary(content) != nil {
			return nil, false
		}
		return &m, true
	default:
		return nil, false
	}
}
