// Package genesis builds the genesis candidate block a committee of
// validators signs off on, from the bonds and wallets files named in the
// node's configuration.
package genesis

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/casper-node/node/types"
	"gopkg.in/yaml.v3"
)

// bondEntry is the on-disk shape of one line of a bonds file.
type bondEntry struct {
	Validator string `yaml:"validator"`
	Stake     uint64 `yaml:"stake"`
}

// LoadBonds reads a bonds.yaml file into the wire Bond list passed to the
// execution engine and baked into the genesis candidate.
func LoadBonds(path string) ([]types.Bond, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bonds file: %w", err)
	}

	var entries []bondEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse bonds file: %w", err)
	}

	bonds := make([]types.Bond, len(entries))
	for i, e := range entries {
		pub, err := parsePubkey(e.Validator)
		if err != nil {
			return nil, fmt.Errorf("bond %d validator: %w", i, err)
		}
		bonds[i] = types.Bond{Validator: pub, Stake: e.Stake}
	}
	return bonds, nil
}

// parsePubkey decodes a hex-encoded (optionally 0x-prefixed) ed25519
// public key.
func parsePubkey(s string) (types.Pubkey, error) {
	s = strings.TrimPrefix(s, "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("decode hex: %w", err)
	}
	if len(decoded) != len(types.Pubkey{}) {
		return types.Pubkey{}, fmt.Errorf("invalid pubkey length: got %d bytes, want %d", len(decoded), len(types.Pubkey{}))
	}
	var pub types.Pubkey
	copy(pub[:], decoded)
	return pub, nil
}
