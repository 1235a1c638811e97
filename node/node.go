// Package node wires the role configuration, collaborators, dispatcher,
// transport, and background tasks together into a runnable Casper
// packet-handler node, the way the teacher's own node package
// orchestrates its subsystems at startup.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casper-node/node/approval"
	"github.com/casper-node/node/bootstrap"
	"github.com/casper-node/node/config"
	"github.com/casper-node/node/dispatcher"
	"github.com/casper-node/node/handler"
	"github.com/casper-node/node/internal/genesis"
	"github.com/casper-node/node/lifecycle"
	"github.com/casper-node/node/metrics"
	"github.com/casper-node/node/networking"
	"github.com/casper-node/node/protocol"
	"github.com/casper-node/node/store"
	"github.com/casper-node/node/transition"
	"github.com/casper-node/node/types"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/prometheus/client_golang/prometheus"
)

// Config bundles the role configuration with the process-level knobs
// that are this node's alone: listen addresses, bootnodes, the data
// directory backing its block store (empty selects an in-memory block
// store), the logger, and the metrics registerer.
type Config struct {
	Role config.NodeRoleConfiguration

	ListenAddrs []string
	Bootnodes   []string
	DataDir     string

	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Node is the running packet-handler core: a transport, a dispatcher
// reading from a handler cell, and whatever background tasks the
// node's role requires.
type Node struct {
	host      host.Host
	transport *networking.Transport
	cell      *dispatcher.Cell

	blockStore     store.BlockStore
	closeStore     func() error
	multiParentRef *store.MultiParentCasperRefSlot

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// backgroundTask is a long-lived task cancellable via its context,
// matching the teacher's goroutine-plus-WaitGroup shutdown pattern.
type backgroundTask func(ctx context.Context)

// New constructs a Node for cfg.Role, spawns the background tasks its
// role requires, and dials the configured bootnodes. It does not start
// consuming the transport's gossip subscription — call Start for that.
func New(ctx context.Context, cfg *Config) (*Node, error) {
	if err := cfg.Role.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)

	h, err := networking.NewHost(ctx, networking.HostConfig{ListenAddrs: cfg.ListenAddrs})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}

	transport, err := networking.NewTransport(ctx, h, logger)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("create transport: %w", err)
	}

	blockStore, closeStore, err := openBlockStore(cfg.DataDir)
	if err != nil {
		cancel()
		transport.Close()
		return nil, fmt.Errorf("open block store: %w", err)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metricsSink := metrics.NewPacketHandler(registry)

	dag := store.NewMemoryBlockDagStorage()
	engine := store.NewExecutionEngineService()
	lastApproved := &store.LastApprovedBlockSlot{}
	multiParentRef := &store.MultiParentCasperRefSlot{}

	transitionDeps := transition.Deps{
		BlockStore:   blockStore,
		Dag:          dag,
		Engine:       engine,
		LastApproved: lastApproved,
		Logger:       logger,
	}

	selfID := h.ID().String()
	var ownPubkey types.Pubkey
	if cfg.Role.ValidatorIdentity != nil {
		ownPubkey = cfg.Role.ValidatorIdentity.PublicKey
	}

	n := &Node{
		host:           h,
		transport:      transport,
		blockStore:     blockStore,
		closeStore:     closeStore,
		multiParentRef: multiParentRef,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}

	// The initial handler is chosen by role; n.cell must exist before
	// building any background task, since the approval loop (Standalone
	// only) needs to write to it on exit.
	initial, err := buildInitialHandler(cfg.Role, transport, selfID, logger)
	if err != nil {
		cancel()
		transport.Close()
		closeStore()
		return nil, err
	}
	n.cell = dispatcher.NewCell(initial)

	tasks, err := buildBackgroundTasks(n.cell, cfg.Role, transport, transitionDeps, engine, dag, lastApproved, multiParentRef, metricsSink, selfID, logger)
	if err != nil {
		cancel()
		transport.Close()
		closeStore()
		return nil, err
	}

	disp := &dispatcher.Dispatcher{
		Cell:           n.cell,
		Transport:      transport,
		BlockStore:     blockStore,
		MultiParentRef: multiParentRef,
		SelfID:         selfID,
		OwnPubkey:      ownPubkey,
		Metrics:        metricsSink,
		Logger:         logger,
	}
	transport.OnPacket(disp.Handle)

	for _, task := range tasks {
		n.spawn(task)
	}

	connectBootnodes(ctx, h, cfg.Bootnodes, logger)

	return n, nil
}

func (n *Node) spawn(task backgroundTask) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		task(n.ctx)
	}()
}

// buildInitialHandler constructs the lifecycle handler selected by
// role.Role — the state a fresh node starts in (spec.md §3 Lifecycle).
func buildInitialHandler(role config.NodeRoleConfiguration, transport handler.Transport, selfID string, logger *slog.Logger) (handler.Handler, error) {
	base := handler.BaseHandler{SelfID: selfID, Transport: transport, Logger: logger}

	switch role.Role {
	case config.RoleApproveGenesis:
		candidate, err := genesis.BuildCandidate(candidateParams(role))
		if err != nil {
			return nil, fmt.Errorf("build expected genesis candidate: %w", err)
		}
		return &lifecycle.GenesisValidator{
			BaseHandler: base,
			Identity:    *role.ValidatorIdentity,
			ShardID:     role.ShardID,
			Approver: &protocol.BlockApproverProtocol{
				Identity:  *role.ValidatorIdentity,
				Expected:  candidate,
				Transport: transport,
				Logger:    logger,
			},
		}, nil

	case config.RoleStandalone:
		// Only the bare handler is built here. Standalone's handler needs
		// no TransitionDeps, just a reference to the running protocol to
		// forward BlockApproval messages to (spec.md §4.5);
		// buildBackgroundTasks builds the candidate and the
		// ApproveBlockProtocol, sets it on this handler, and returns the
		// protocol's broadcast loop as a task.
		return &lifecycle.Standalone{BaseHandler: base}, nil

	default: // config.RoleDefault
		knownValidators, err := genesis.LoadKnownValidators(role.KnownValidatorsFile)
		if err != nil {
			return nil, fmt.Errorf("load known validators: %w", err)
		}
		var ownPubkey types.Pubkey
		if role.ValidatorIdentity != nil {
			ownPubkey = role.ValidatorIdentity.PublicKey
		}
		return &lifecycle.Bootstrap{
			BaseHandler:     base,
			ShardID:         role.ShardID,
			ValidatorID:     ownPubkey,
			KnownValidators: knownValidators,
			RequiredSigs:    role.RequiredSigs,
		}, nil
	}
}

// buildBackgroundTasks constructs the long-lived tasks role.Role
// requires (spec.md §9): the approve-block broadcaster and approval
// timing loop for Standalone, the bootstrap requester for the default
// role. GenesisValidator starts no background task of its own — it only
// reacts to UnapprovedBlock and ApprovedBlock packets.
//
// For Standalone, this also wires the running ApproveBlockProtocol into
// the handler built by buildInitialHandler, sets each lifecycle
// handler's TransitionDeps where applicable, and sets the execution
// engine's bonds from the locally configured genesis files.
func buildBackgroundTasks(
	cell *dispatcher.Cell,
	role config.NodeRoleConfiguration,
	transport handler.Transport,
	transitionDeps transition.Deps,
	engine store.ExecutionEngineService,
	dag store.BlockDagStorage,
	lastApproved *store.LastApprovedBlockSlot,
	multiParentRef *store.MultiParentCasperRefSlot,
	metricsSink lifecycle.Metrics,
	selfID string,
	logger *slog.Logger,
) ([]backgroundTask, error) {
	switch role.Role {
	case config.RoleApproveGenesis:
		gv := cell.Get().(*lifecycle.GenesisValidator)
		gv.TransitionDeps = transitionDeps
		engine.SetBonds(gv.Approver.Expected.Bonds)
		return nil, nil

	case config.RoleStandalone:
		candidate, err := genesis.BuildCandidate(candidateParams(role))
		if err != nil {
			return nil, fmt.Errorf("build genesis candidate: %w", err)
		}
		engine.SetBonds(candidate.Bonds)

		approveProto := protocol.NewApproveBlockProtocol(candidate, role.RequiredSigs, role.ApproveGenesisInterval, protocol.ApproveBlockProtocolDeps{
			Transport:    transport,
			Engine:       engine,
			Dag:          dag,
			LastApproved: lastApproved,
			Logger:       logger,
		})
		standalone := cell.Get().(*lifecycle.Standalone)
		standalone.Approver = approveProto

		var ownPubkey types.Pubkey
		if role.ValidatorIdentity != nil {
			ownPubkey = role.ValidatorIdentity.PublicKey
		}
		loop := &approval.Loop{
			Deps: approval.Deps{
				LastApproved:   lastApproved,
				BlockStore:     transitionDeps.BlockStore,
				Cell:           cell,
				Transport:      transport,
				MultiParentRef: multiParentRef,
				Metrics:        metricsSink,
				ValidatorID:    ownPubkey,
				ShardID:        role.ShardID,
				SelfID:         selfID,
				Logger:         logger,
			},
			Interval: role.ApproveGenesisInterval,
		}

		return []backgroundTask{
			func(ctx context.Context) {
				deadline, cancel := context.WithTimeout(ctx, role.ApproveGenesisDuration)
				defer cancel()
				approveProto.Run(deadline)
			},
			loop.Run,
		}, nil

	default: // config.RoleDefault
		bs := cell.Get().(*lifecycle.Bootstrap)
		bs.TransitionDeps = transitionDeps

		// Bonds come from the local genesis files, not from the approved
		// block the transition later validates.
		if role.BondsFile != "" {
			candidate, err := genesis.BuildCandidate(candidateParams(role))
			if err != nil {
				return nil, fmt.Errorf("load local bonds: %w", err)
			}
			engine.SetBonds(candidate.Bonds)
		}

		requester := &bootstrap.Requester{
			Transport:  transport,
			Delay:      role.BootstrapRequestDelay,
			Identifier: selfID,
			Logger:     logger,
		}
		return []backgroundTask{requester.Run}, nil
	}
}

func candidateParams(role config.NodeRoleConfiguration) genesis.CandidateParams {
	return genesis.CandidateParams{
		ShardID:         role.ShardID,
		DeployTimestamp: role.DeployTimestamp,
		BondsFile:       role.BondsFile,
		WalletsFile:     role.WalletsFile,
		MinimumBond:     role.MinimumBond,
		MaximumBond:     role.MaximumBond,
		HasFaucet:       role.HasFaucet,
	}
}

func openBlockStore(dataDir string) (store.BlockStore, func() error, error) {
	if dataDir == "" {
		return store.NewMemoryBlockStore(), func() error { return nil }, nil
	}
	s, err := store.OpenPebbleBlockStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

func connectBootnodes(ctx context.Context, h host.Host, addrs []string, logger *slog.Logger) {
	peers, err := networking.ParseBootnodes(addrs)
	if err != nil {
		logger.Warn("parsing bootnodes failed", "error", err)
		return
	}
	for _, p := range peers {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := h.Connect(dialCtx, p)
		cancel()
		if err != nil {
			logger.Warn("failed to connect to bootnode", "peer", p.ID, "error", err)
		}
	}
}

// Start begins consuming the transport's gossip subscription. The
// role's background tasks are already running, spawned by New.
func (n *Node) Start() {
	n.transport.Start(n.ctx)
	n.logger.Info("node started", "peer_id", n.host.ID())
}

// Stop cancels all background tasks, waits for them to exit, and closes
// the transport and block store.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()
	if err := n.transport.Close(); err != nil {
		n.logger.Warn("transport close failed", "error", err)
	}
	if err := n.closeStore(); err != nil {
		n.logger.Warn("block store close failed", "error", err)
	}
	n.logger.Info("node stopped")
}

// PeerCount returns the number of peers the host currently holds a live
// connection to.
func (n *Node) PeerCount() int {
	return len(n.transport.ConnectedPeers())
}

// Handler returns the currently active lifecycle handler — exposed for
// tests and diagnostics.
func (n *Node) Handler() handler.Handler {
	return n.cell.Get()
}
