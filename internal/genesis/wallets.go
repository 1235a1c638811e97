package genesis

import (
	"fmt"
	"os"

	"github.com/casper-node/node/types"
	"gopkg.in/yaml.v3"
)

// walletEntry is one pre-funded account in a wallets.yaml file. The
// execution engine, not this package, decides what balance means;
// genesis only needs the set of addresses to fold into the candidate
// hash so every validator signs over identical genesis parameters.
type walletEntry struct {
	Address string `yaml:"address"`
	Balance uint64 `yaml:"balance"`
}

// LoadWallets reads a wallets.yaml file. Returns a nil slice and no
// error when path is empty — faucet wallets are only meaningful when the
// candidate's HasFaucet flag is set.
func LoadWallets(path string) ([]types.Bond, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallets file: %w", err)
	}

	var entries []walletEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse wallets file: %w", err)
	}

	wallets := make([]types.Bond, len(entries))
	for i, e := range entries {
		pub, err := parsePubkey(e.Address)
		if err != nil {
			return nil, fmt.Errorf("wallet %d address: %w", i, err)
		}
		wallets[i] = types.Bond{Validator: pub, Stake: e.Balance}
	}
	return wallets, nil
}

// LoadKnownValidators reads a known-validators file: one hex pubkey per
// YAML list entry. Used by the Bootstrap state to build the validator
// set an ApprovedBlock is checked against.
func LoadKnownValidators(path string) ([]types.Pubkey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read known-validators file: %w", err)
	}

	var hexKeys []string
	if err := yaml.Unmarshal(data, &hexKeys); err != nil {
		return nil, fmt.Errorf("parse known-validators file: %w", err)
	}

	keys := make([]types.Pubkey, len(hexKeys))
	for i, s := range hexKeys {
		pub, err := parsePubkey(s)
		if err != nil {
			return nil, fmt.Errorf("known validator %d: %w", i, err)
		}
		keys[i] = pub
	}
	return keys, nil
}
