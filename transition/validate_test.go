package transition

import (
	"errors"
	"testing"

	"github.com/casper-node/node/types"
)

func genKey(t *testing.T) (types.PrivateKey, types.Pubkey) {
	t.Helper()
	sk, pk, err := types.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return sk, pk
}

func TestValidateApprovedBlock_SufficientSignatures(t *testing.T) {
	sk1, pk1 := genKey(t)
	sk2, pk2 := genKey(t)
	_, pk3 := genKey(t)

	ab := &types.ApprovedBlock{Candidate: types.Candidate{ShardID: "root"}}
	hash := ab.Candidate.Hash()

	ab.Signatures = []types.ApprovalSig{
		{Validator: pk1, Sig: sk1.Sign(hash[:])},
		{Validator: pk2, Sig: sk2.Sign(hash[:])},
	}

	if err := ValidateApprovedBlock(ab, []types.Pubkey{pk1, pk2, pk3}, 2); err != nil {
		t.Fatalf("expected valid approved block, got: %v", err)
	}
}

// TestValidateApprovedBlock_InsufficientSignatures covers spec.md §8
// scenario S2 and property 6: fewer than requiredSigs valid signatures
// from validatorSet rejects the block.
func TestValidateApprovedBlock_InsufficientSignatures(t *testing.T) {
	sk1, pk1 := genKey(t)
	_, pk2 := genKey(t)

	ab := &types.ApprovedBlock{Candidate: types.Candidate{ShardID: "root"}}
	hash := ab.Candidate.Hash()
	ab.Signatures = []types.ApprovalSig{{Validator: pk1, Sig: sk1.Sign(hash[:])}}

	err := ValidateApprovedBlock(ab, []types.Pubkey{pk1, pk2}, 2)
	if err == nil {
		t.Fatal("expected insufficient-signatures error")
	}
	var insufficient *ErrInsufficientSignatures
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected *ErrInsufficientSignatures, got %T", err)
	}
	if insufficient.Got != 1 || insufficient.Required != 2 {
		t.Fatalf("got %d/%d, want 1/2", insufficient.Got, insufficient.Required)
	}
}

func TestValidateApprovedBlock_RejectsOutsideValidatorSet(t *testing.T) {
	sk1, pk1 := genKey(t)
	_, pk2 := genKey(t)

	ab := &types.ApprovedBlock{Candidate: types.Candidate{ShardID: "root"}}
	hash := ab.Candidate.Hash()
	ab.Signatures = []types.ApprovalSig{{Validator: pk1, Sig: sk1.Sign(hash[:])}}

	// pk1 signed, but validatorSet only contains pk2 — not authoritative.
	if err := ValidateApprovedBlock(ab, []types.Pubkey{pk2}, 1); err == nil {
		t.Fatal("expected rejection: signer is not in validatorSet")
	}
}

func TestValidateApprovedBlock_RejectsDuplicateSignerAndBadSig(t *testing.T) {
	sk1, pk1 := genKey(t)

	ab := &types.ApprovedBlock{Candidate: types.Candidate{ShardID: "root"}}
	hash := ab.Candidate.Hash()
	goodSig := sk1.Sign(hash[:])

	var badSig types.Signature // zero signature, does not verify
	ab.Signatures = []types.ApprovalSig{
		{Validator: pk1, Sig: goodSig},
		{Validator: pk1, Sig: goodSig}, // duplicate signer, does not count twice
		{Validator: pk1, Sig: badSig},  // same signer again, bad sig, already counted/rejected
	}

	if err := ValidateApprovedBlock(ab, []types.Pubkey{pk1}, 2); err == nil {
		t.Fatal("expected rejection: only one distinct valid signer present")
	}
}
