package types

// Packet is the transport-layer envelope: a typed identifier plus its
// snappy-compressed binary encoding. The eight recognized TypeID values map
// one-to-one onto the message variants below.
type Packet struct {
	TypeID  string
	Content []byte
}

// Wire type identifiers. These must match the transport layer's
// registered identifiers exactly — they are part of the wire contract.
const (
	TypeBlockMessage             = "casper/block-message/v1"
	TypeBlockRequest             = "casper/block-request/v1"
	TypeForkChoiceTipRequest     = "casper/fork-choice-tip-request/v1"
	TypeApprovedBlock            = "casper/approved-block/v1"
	TypeApprovedBlockRequest     = "casper/approved-block-request/v1"
	TypeUnapprovedBlock          = "casper/unapproved-block/v1"
	TypeBlockApproval            = "casper/block-approval/v1"
	TypeNoApprovedBlockAvailable = "casper/no-approved-block-available/v1"
)

// BlockMessage carries a full block, broadcast or sent in reply to a
// BlockRequest/ForkChoiceTipRequest.
type BlockMessage struct {
	Block Block
}

// BlockRequest asks a peer for the block with the given hash.
type BlockRequest struct {
	Hash Root
}

// ForkChoiceTipRequest asks a peer to reply with its current fork-choice
// tip block.
type ForkChoiceTipRequest struct{}

// ApprovedBlockMsg carries an approved genesis (or checkpoint) candidate
// with its signatures. Named with a Msg suffix to distinguish the wire
// message from the types.ApprovedBlock value it carries.
type ApprovedBlockMsg struct {
	ApprovedBlock ApprovedBlock
}

// ApprovedBlockRequest asks a peer for its stored approved block.
type ApprovedBlockRequest struct {
	Identifier string
}

// UnapprovedBlock circulates a candidate genesis block for validators to
// sign.
type UnapprovedBlock struct {
	Candidate Candidate
	Timestamp uint64
}

// BlockApproval is a single validator's signature over a candidate.
type BlockApproval struct {
	CandidateHash Root
	Validator     Pubkey
	Sig           Signature
}

// NoApprovedBlockAvailable is sent in reply to an ApprovedBlockRequest
// before this node has transitioned past genesis approval.
type NoApprovedBlockAvailable struct {
	Identifier string
	NodeID     string
}
