// Package config defines the node's startup configuration: its role in
// the genesis ceremony, the genesis-construction parameters, and the
// bootnode list.
package config

import (
	"fmt"
	"time"

	"github.com/casper-node/node/types"
)

// Role discriminates the three startup roles a node can take. Exactly
// one is selected by the CLI/config collaborator.
type Role int

const (
	// RoleDefault is the ordinary catching-up node (lifecycle.Bootstrap).
	RoleDefault Role = iota
	// RoleApproveGenesis signs the genesis candidate (lifecycle.GenesisValidator).
	RoleApproveGenesis
	// RoleStandalone constructs and circulates the genesis candidate
	// (lifecycle.Standalone).
	RoleStandalone
)

func (r Role) String() string {
	switch r {
	case RoleApproveGenesis:
		return "approve-genesis"
	case RoleStandalone:
		return "standalone"
	default:
		return "default"
	}
}

// NodeRoleConfiguration is the immutable configuration read at startup
// that selects the initial handler state and parameterizes it.
type NodeRoleConfiguration struct {
	Role Role

	ShardID           string
	ValidatorIdentity *types.ValidatorIdentity // nil unless this node signs

	RequiredSigs uint64
	MinimumBond  uint64
	MaximumBond  uint64
	HasFaucet    bool

	DeployTimestamp uint64
	WalletsFile     string
	BondsFile       string
	GenesisPath     string

	KnownValidatorsFile string

	ApproveGenesisDuration time.Duration
	ApproveGenesisInterval time.Duration

	// BootstrapRequestDelay is how long the Bootstrap state waits before
	// emitting its first ApprovedBlockRequest.
	BootstrapRequestDelay time.Duration
}

// Validate checks the cross-field invariants the role discriminator
// implies (e.g. ApproveGenesis requires a validator identity).
func (c *NodeRoleConfiguration) Validate() error {
	if c.Role == RoleApproveGenesis && c.ValidatorIdentity == nil {
		return fmt.Errorf("config: approve-genesis role requires a validator identity")
	}
	if c.RequiredSigs == 0 {
		return fmt.Errorf("config: requiredSigs must be greater than zero")
	}
	if c.ShardID == "" {
		return fmt.Errorf("config: shardId must not be empty")
	}
	return nil
}
