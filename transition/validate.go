// Package transition implements the onApprovedBlockTransition routine
// shared by the GenesisValidator and Bootstrap handler states.
package transition

import "github.com/casper-node/node/types"

// ErrInsufficientSignatures is returned when an ApprovedBlock does not
// carry enough valid, distinct signatures from the given validator set.
type ErrInsufficientSignatures struct {
	Got, Required uint64
}

func (e *ErrInsufficientSignatures) Error() string {
	return "transition: insufficient signatures on approved block"
}

// ValidateApprovedBlock checks that ab's candidate is signed by at least
// requiredSigs distinct members of validatorSet, with signatures that
// verify over the candidate's hash.
func ValidateApprovedBlock(ab *types.ApprovedBlock, validatorSet []types.Pubkey, requiredSigs uint64) error {
	allowed := make(map[types.Pubkey]struct{}, len(validatorSet))
	for _, v := range validatorSet {
		allowed[v] = struct{}{}
	}

	hash := ab.Candidate.Hash()
	seen := make(map[types.Pubkey]struct{}, len(ab.Signatures))
	var valid uint64
	for _, sig := range ab.Signatures {
		if _, ok := allowed[sig.Validator]; !ok {
			continue
		}
		if _, dup := seen[sig.Validator]; dup {
			continue
		}
		if !types.Verify(sig.Validator, hash[:], sig.Sig) {
			continue
		}
		seen[sig.Validator] = struct{}{}
		valid++
	}

	if valid < requiredSigs {
		return &ErrInsufficientSignatures{Got: valid, Required: requiredSigs}
	}
	return nil
}
