package genesis

import "github.com/casper-node/node/types"

// CandidateParams are the genesis-construction inputs named in the node's
// role configuration (spec §6 Configuration inputs).
type CandidateParams struct {
	ShardID         string
	DeployTimestamp uint64
	BondsFile       string
	WalletsFile     string
	MinimumBond     uint64
	MaximumBond     uint64
	HasFaucet       bool
}

// BuildCandidate loads bonds (and, if HasFaucet, wallets) and assembles
// the genesis Candidate the Standalone role circulates for signing.
// Wallets are appended to Bonds with their balance as Stake, so they
// participate in the candidate hash and in Matches like any bond. The
// candidate does not record which entries came from the wallets file.
func BuildCandidate(p CandidateParams) (*types.Candidate, error) {
	bonds, err := LoadBonds(p.BondsFile)
	if err != nil {
		return nil, err
	}

	if p.HasFaucet {
		wallets, err := LoadWallets(p.WalletsFile)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, wallets...)
	}

	return &types.Candidate{
		ShardID:     p.ShardID,
		Timestamp:   p.DeployTimestamp,
		Bonds:       bonds,
		MinimumBond: p.MinimumBond,
		MaximumBond: p.MaximumBond,
		HasFaucet:   p.HasFaucet,
	}, nil
}
