package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/casper-node/node/config"
	"github.com/casper-node/node/node"
	"github.com/casper-node/node/types"
)

func main() {
	role := flag.String("role", "default", "Node role: approve-genesis, standalone, or default")
	shardID := flag.String("shard-id", "root", "Shard identifier bound into the genesis candidate")
	validatorKeyHex := flag.String("validator-key", "", "Hex-encoded ed25519 private key (required for approve-genesis; optional otherwise)")
	requiredSigs := flag.Uint64("required-sigs", 1, "Number of distinct validator signatures required on the approved block")
	minimumBond := flag.Uint64("minimum-bond", 0, "Minimum bond accepted at genesis")
	maximumBond := flag.Uint64("maximum-bond", 0, "Maximum bond accepted at genesis")
	hasFaucet := flag.Bool("has-faucet", false, "Whether the genesis candidate includes a faucet wallet set")
	deployTimestamp := flag.Uint64("deploy-timestamp", 0, "Genesis deploy timestamp. Defaults to now.")
	walletsFile := flag.String("wallets-file", "", "Path to the wallets YAML file (used when has-faucet is set)")
	bondsFile := flag.String("bonds-file", "", "Path to the bonds YAML file")
	knownValidatorsFile := flag.String("known-validators-file", "", "Path to the known-validators YAML file (default role)")
	approveGenesisDuration := flag.Duration("approve-genesis-duration", 5*time.Minute, "Overall deadline for the standalone genesis-approval ceremony")
	approveGenesisInterval := flag.Duration("approve-genesis-interval", 5*time.Second, "Re-broadcast interval for the standalone genesis-approval ceremony")
	bootstrapRequestDelay := flag.Duration("bootstrap-request-delay", 10*time.Second, "Delay before a bootstrapping node emits its first ApprovedBlockRequest")
	listen := flag.String("listen", "/ip4/0.0.0.0/udp/9000/quic-v1", "Listen multiaddr (QUIC)")
	bootnodes := flag.String("bootnodes", "", "Comma-separated bootnode multiaddrs")
	dataDir := flag.String("data-dir", "", "Block store data directory. Empty uses an in-memory store.")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level := slog.LevelInfo
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	roleCfg := config.NodeRoleConfiguration{
		Role:                   parseRole(*role),
		ShardID:                *shardID,
		RequiredSigs:           *requiredSigs,
		MinimumBond:            *minimumBond,
		MaximumBond:            *maximumBond,
		HasFaucet:              *hasFaucet,
		WalletsFile:            *walletsFile,
		BondsFile:              *bondsFile,
		KnownValidatorsFile:    *knownValidatorsFile,
		ApproveGenesisDuration: *approveGenesisDuration,
		ApproveGenesisInterval: *approveGenesisInterval,
		BootstrapRequestDelay:  *bootstrapRequestDelay,
	}

	roleCfg.DeployTimestamp = *deployTimestamp
	if roleCfg.DeployTimestamp == 0 {
		roleCfg.DeployTimestamp = uint64(time.Now().Unix())
	}

	if *validatorKeyHex != "" {
		identity, err := loadValidatorIdentity(*validatorKeyHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		roleCfg.ValidatorIdentity = identity
	}

	if err := roleCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var bootnodesSlice []string
	if *bootnodes != "" {
		bootnodesSlice = strings.Split(*bootnodes, ",")
	}

	logger.Info("config",
		"role", roleCfg.Role,
		"shard_id", roleCfg.ShardID,
		"required_sigs", roleCfg.RequiredSigs,
		"bootnodes", len(bootnodesSlice),
	)

	nodeCfg := &node.Config{
		Role:        roleCfg,
		ListenAddrs: []string{*listen},
		Bootnodes:   bootnodesSlice,
		DataDir:     *dataDir,
		Logger:      logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	n, err := node.New(ctx, nodeCfg)
	if err != nil {
		logger.Error("failed to create node", "error", err)
		cancel()
		os.Exit(1)
	}

	n.Start()
	logger.Info("casper-node running", "peers", n.PeerCount())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	n.Stop()
	cancel()
}

func parseRole(s string) config.Role {
	switch s {
	case "approve-genesis":
		return config.RoleApproveGenesis
	case "standalone":
		return config.RoleStandalone
	default:
		return config.RoleDefault
	}
}

func loadValidatorIdentity(hexKey string) (*types.ValidatorIdentity, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode validator key: %w", err)
	}
	if len(raw) != len(types.PrivateKey{}) {
		return nil, fmt.Errorf("validator key: got %d bytes, want %d", len(raw), len(types.PrivateKey{}))
	}
	var sk types.PrivateKey
	copy(sk[:], raw)
	return &types.ValidatorIdentity{PrivateKey: sk, PublicKey: sk.Public()}, nil
}
