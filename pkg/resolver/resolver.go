// Package resolver is the consumer-facing facade (spec §6): sync(),
// query() and network_height(), wiring together the storage layer,
// header chain, peer registry, discovery, sync orchestrator and query
// pipeline behind the three operations a DNS front-end actually calls.
package resolver

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/chain"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/config"
	"github.com/hnsresolver/hns-spv/pkg/discovery"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/query"
	"github.com/hnsresolver/hns-spv/pkg/storage"
	"github.com/hnsresolver/hns-spv/pkg/syncmgr"
)

const networkHeightTable = "resolver-network-height"

var networkHeightKey = []byte("max")

// SyncResult mirrors syncmgr.Result at the facade boundary (spec §6).
type SyncResult struct {
	Success       bool
	NetworkHeight uint32
}

// NameQueryResult mirrors query.Result at the facade boundary.
type NameQueryResult struct {
	Outcome   query.Outcome
	Records   [][]byte
	ProofBlob []byte
}

// Resolver is the top-level SPV client: the chain, peer registry and
// sync/query engines, plus a persisted best-known network height so
// network_height() survives a restart between sync() calls (spec §9
// supplemented feature).
type Resolver struct {
	store      *storage.Store
	chain      *chain.Chain
	addrs      *addrmgr.Manager
	sync       *syncmgr.Manager
	query      *query.Manager
	networkTbl *storage.Table
	log        *zap.Logger
}

// Open builds a Resolver backed by cfg, opening (and creating, if
// absent) the on-disk data directory's bbolt database.
func Open(cfg config.Config, log *zap.Logger) (*Resolver, error) {
	store, err := storage.Open(cfg.Network.DataDir + "/hns-spv.db")
	if err != nil {
		return nil, fmt.Errorf("resolver: open storage: %w", err)
	}

	c, err := chain.New(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolver: open chain: %w", err)
	}
	if err := c.InitFromCheckpoint(); err != nil {
		store.Close()
		return nil, fmt.Errorf("resolver: init checkpoint: %w", err)
	}

	addrs, err := addrmgr.New(store, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolver: open addrmgr: %w", err)
	}

	networkTbl, err := store.Table(networkHeightTable)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolver: open network-height table: %w", err)
	}

	magic := cfg.Network.Magic
	if magic == 0 {
		magic = chaincfg.MagicMainnet
	}
	seeds := cfg.Network.Seeds
	if len(seeds) == 0 {
		seeds = chaincfg.MainnetSeeds
	}

	discoveryTimeout := time.Duration(cfg.P2P.DiscoveryTimeoutSeconds) * time.Second
	finder := discovery.New(seeds, chaincfg.DefaultP2PPort, addrs, log)

	peerOpts := peer.Options{
		Magic:             magic,
		ProtocolVersion:   chaincfg.ProtocolVersion,
		Agent:             "/hns-spv:0.1.0/",
		Services:          0,
		ConnectTimeout:    time.Duration(cfg.P2P.ConnectTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.P2P.ReadTimeoutSeconds) * time.Second,
		HandshakeTimeout:  time.Duration(cfg.P2P.HandshakeTimeoutSeconds) * time.Second,
		HandshakeAttempts: cfg.P2P.HandshakeMaxAttempts,
	}

	syncMgr := syncmgr.New(syncmgr.Config{
		PeerOptions:       peerOpts,
		DiscoveryBudget:   time.Duration(cfg.P2P.SyncDiscoveryBudget) * time.Second,
		MaxConnectRetries: cfg.P2P.MaxConnectRetries,
		BackoffBase:       time.Duration(cfg.P2P.BackoffBaseSeconds) * time.Second,
	}, c, addrs, finder, log)

	queryMgr := query.New(query.Config{
		PeerOptions:     peerOpts,
		DiscoveryBudget: discoveryTimeout,
	}, addrs, finder, log)

	return &Resolver{
		store:      store,
		chain:      c,
		addrs:      addrs,
		sync:       syncMgr,
		query:      queryMgr,
		networkTbl: networkTbl,
		log:        log.With(zap.String("component", "resolver")),
	}, nil
}

// Close releases the backing storage.
func (r *Resolver) Close() error {
	return r.store.Close()
}

// Sync drives the header chain forward by one full sync attempt and
// persists the observed network height (spec §4.F, §6).
func (r *Resolver) Sync(ctx context.Context) (SyncResult, error) {
	result := r.sync.Sync(ctx)
	if err := r.recordNetworkHeight(result.NetworkHeight); err != nil {
		return SyncResult{}, fmt.Errorf("resolver: persist network height: %w", err)
	}
	r.log.Info("sync finished", zap.Bool("success", result.Success), zap.Uint32("network_height", result.NetworkHeight))
	return SyncResult{Success: result.Success, NetworkHeight: result.NetworkHeight}, nil
}

// Query resolves a single name hash against the chain's current
// name-root (spec §4.G, §6).
func (r *Resolver) Query(ctx context.Context, nameHash [32]byte) (NameQueryResult, error) {
	root, err := r.chain.CurrentNameRoot()
	if err != nil {
		return NameQueryResult{}, fmt.Errorf("resolver: current name root: %w", err)
	}
	height, err := r.chain.TipHeight()
	if err != nil {
		return NameQueryResult{}, fmt.Errorf("resolver: tip height: %w", err)
	}

	var networkHeightRef *uint32
	if nh, ok, err := r.loadNetworkHeight(); err != nil {
		return NameQueryResult{}, fmt.Errorf("resolver: load network height: %w", err)
	} else if ok {
		networkHeightRef = &nh
	}

	result := r.query.Query(ctx, nameHash, root, height, networkHeightRef)
	return NameQueryResult{Outcome: result.Outcome, Records: result.Records, ProofBlob: result.ProofBlob}, nil
}

// NetworkHeight returns the best-known network height observed across
// past sync() calls, if any has ever been recorded.
func (r *Resolver) NetworkHeight() (uint32, bool, error) {
	return r.loadNetworkHeight()
}

// ChainHeight returns the local header chain's current tip height.
func (r *Resolver) ChainHeight() (uint32, error) {
	return r.chain.TipHeight()
}

// Peers returns the persisted verified-peer addresses, for an
// operator console's "peers" command.
func (r *Resolver) Peers() []string {
	return r.addrs.VerifiedPeers()
}

func (r *Resolver) recordNetworkHeight(height uint32) error {
	existing, ok, err := r.loadNetworkHeight()
	if err != nil {
		return err
	}
	if ok && existing >= height {
		return nil
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, height)
	return r.networkTbl.Put(networkHeightKey, buf)
}

func (r *Resolver) loadNetworkHeight() (uint32, bool, error) {
	raw, err := r.networkTbl.Get(networkHeightKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return binary.BigEndian.Uint32(raw), true, nil
}
