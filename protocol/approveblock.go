package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/types"
)

// ApproveBlockProtocolDeps bundles the collaborators ApproveBlockProtocol
// needs: a transport to broadcast UnapprovedBlock over, an execution
// engine to compute the genesis block's transforms once enough
// signatures arrive, and the LastApprovedBlock slot it publishes to.
type ApproveBlockProtocolDeps struct {
	Transport    handler.Transport
	Engine       store.ExecutionEngineService
	Dag          store.BlockDagStorage
	LastApproved *store.LastApprovedBlockSlot
	Logger       *slog.Logger
}

// ApproveBlockProtocol drives the standalone genesis constructor:
// broadcasting the candidate every interval until requiredSigs distinct
// valid signatures have been collected or the overall deadline expires,
// and publishing the resulting ApprovedBlockWithTransforms to
// LastApprovedBlock. It does not itself swap the handler cell — that is
// the approval timing loop's job (spec.md §4.7).
type ApproveBlockProtocol struct {
	deps         ApproveBlockProtocolDeps
	candidate    *types.Candidate
	requiredSigs uint64
	interval     time.Duration

	mu        sync.Mutex
	approvals map[types.Pubkey]types.Signature
	done      bool
}

// NewApproveBlockProtocol constructs the protocol primed with candidate.
func NewApproveBlockProtocol(candidate *types.Candidate, requiredSigs uint64, interval time.Duration, deps ApproveBlockProtocolDeps) *ApproveBlockProtocol {
	return &ApproveBlockProtocol{
		deps:         deps,
		candidate:    candidate,
		requiredSigs: requiredSigs,
		interval:     interval,
		approvals:    make(map[types.Pubkey]types.Signature),
	}
}

func (p *ApproveBlockProtocol) logger() *slog.Logger {
	if p.deps.Logger != nil {
		return p.deps.Logger
	}
	return slog.Default()
}

// Run broadcasts UnapprovedBlock immediately and then every interval
// until ctx is cancelled (the caller is expected to derive ctx with the
// overall approveGenesisDuration deadline) or enough approvals arrive.
func (p *ApproveBlockProtocol) Run(ctx context.Context) {
	p.broadcastOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.isDone() {
				return
			}
			p.broadcastOnce(ctx)
		}
	}
}

func (p *ApproveBlockProtocol) isDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *ApproveBlockProtocol) broadcastOnce(ctx context.Context) {
	pkt, err := types.Encode(types.TypeUnapprovedBlock, &types.UnapprovedBlock{
		Candidate: *p.candidate,
		Timestamp: p.candidate.Timestamp,
	})
	if err != nil {
		p.logger().Warn("encode unapproved block failed", "error", err)
		return
	}
	if err := p.deps.Transport.Broadcast(ctx, pkt); err != nil {
		p.logger().Warn("broadcast unapproved block failed", "error", err)
	}
}

// AddApproval records a BlockApproval. Once requiredSigs distinct valid
// signatures over this candidate's hash have been collected, it
// computes the genesis block's transforms and publishes
// LastApprovedBlock exactly once; later calls are no-ops.
func (p *ApproveBlockProtocol) AddApproval(ctx context.Context, approval *types.BlockApproval) {
	hash := p.candidate.Hash()
	if approval.CandidateHash != hash {
		return
	}
	if !types.Verify(approval.Validator, hash[:], approval.Sig) {
		p.logger().Debug("dropping block approval with invalid signature", "validator", approval.Validator)
		return
	}

	var ab *types.ApprovedBlock
	p.mu.Lock()
	if !p.done {
		p.approvals[approval.Validator] = approval.Sig
		if uint64(len(p.approvals)) >= p.requiredSigs {
			sigs := make([]types.ApprovalSig, 0, len(p.approvals))
			for pub, sig := range p.approvals {
				sigs = append(sigs, types.ApprovalSig{Validator: pub, Sig: sig})
			}
			ab = &types.ApprovedBlock{Candidate: *p.candidate, Signatures: sigs}
			p.done = true
		}
	}
	p.mu.Unlock()

	if ab == nil {
		return
	}

	if err := p.publish(ab); err != nil {
		p.logger().Warn("approve-block protocol failed to publish approved block", "error", err)
	}
}

func (p *ApproveBlockProtocol) publish(ab *types.ApprovedBlock) error {
	block := ab.Block()

	dag, err := p.deps.Dag.GetRepresentation()
	if err != nil {
		return fmt.Errorf("dag representation: %w", err)
	}
	transforms, err := p.deps.Engine.EffectsForBlock(block, dag)
	if err != nil {
		return fmt.Errorf("effects for block: %w", err)
	}

	p.deps.LastApproved.Set(&types.ApprovedBlockWithTransforms{
		ApprovedBlock: ab,
		Transforms:    transforms,
	})
	return nil
}
