// Package query implements the name-proof query pipeline (spec §4.G):
// selecting an eligible full-node peer, issuing a root-first getproof
// request against the current chain's name-tree root, and consuming
// intermixed liveness traffic until a proof or a 3-peer-confirmed
// not-found arrives. Grounded on the same two cdnsd Peer shapes as
// pkg/syncmgr, reusing pkg/peer for the wire exchange.
package query

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/discovery"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// heightToleranceBlocks bounds how far a candidate peer's reported
// height may diverge from our own chain height, or our chain height
// from the best-known network height, before the peer is rejected as
// unsynchronized (spec §4.G step 2).
const heightToleranceBlocks = 2

// notFoundThreshold is the number of distinct peers that must report
// notfound before query() itself returns NotFound (spec §4.G step 2-3,
// flagged in spec §9 as capable of masking a missing name as Error on
// small candidate sets — carried as specified, not "fixed").
const notFoundThreshold = 3

// earlyDrainMessages and earlyDrainPerMessage bound the drain after
// the post-handshake greeting (spec §4.G step 2, §5 "drain after
// handshake: 5x100ms").
const (
	earlyDrainMessages  = 5
	earlyDrainPerMessage = 100 * time.Millisecond
)

// Outcome is the tri-state result of Query (spec §4.G, §6).
type Outcome int

const (
	// OutcomeSuccess carries a populated Result.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound means >= notFoundThreshold peers confirmed the
	// name does not exist.
	OutcomeNotFound
	// OutcomeError means insufficient evidence: no candidates, every
	// peer errored or was rejected, or not enough notfound votes.
	OutcomeError
)

// Result is the outcome of Query; Records and ProofBlob are set only
// when Outcome is OutcomeSuccess.
type Result struct {
	Outcome   Outcome
	Records   [][]byte
	ProofBlob []byte
}

// CandidateSource supplies full-node candidate addresses, implemented
// by *addrmgr.Manager in production.
type CandidateSource interface {
	VerifiedPeers() []string
}

// Manager runs the name-query pipeline against a candidate source,
// falling back to full discovery when the persisted list is empty
// (spec §4.G step 1).
type Manager struct {
	cfg    Config
	addrs  CandidateSource
	finder *discovery.Discoverer
	log    *zap.Logger
}

// Config carries the peer dial/handshake options and the discovery
// budget a Manager queries with. The network-height reference is
// passed to each Query call instead.
type Config struct {
	PeerOptions     peer.Options
	DiscoveryBudget time.Duration
}

// New builds a Manager.
func New(cfg Config, addrs *addrmgr.Manager, finder *discovery.Discoverer, log *zap.Logger) *Manager {
	return &Manager{cfg: cfg, addrs: addrs, finder: finder, log: log.With(zap.String("component", "query"))}
}

// Query runs the full candidate loop for one name hash against root,
// given the caller's current chain height and, if known, the
// best-known network height (spec §4.G).
func (m *Manager) Query(ctx context.Context, nameHash, root [32]byte, chainHeight uint32, networkHeight *uint32) Result {
	queryID := uuid.New().String()
	log := m.log.With(zap.String("query", queryID))

	candidates := m.addrs.VerifiedPeers()
	if len(candidates) == 0 {
		log.Info("verified peer list empty, falling back to discovery")
		candidates = m.finder.Discover(ctx, m.cfg.DiscoveryBudget)
	}
	if len(candidates) == 0 {
		log.Warn("no candidates available for query")
		return Result{Outcome: OutcomeError}
	}

	notFoundVotes := 0
	for _, addr := range candidates {
		outcome, result := m.queryPeer(addr, nameHash, root, chainHeight, networkHeight, log)
		switch outcome {
		case OutcomeSuccess:
			return result
		case OutcomeNotFound:
			notFoundVotes++
			if notFoundVotes >= notFoundThreshold {
				return Result{Outcome: OutcomeNotFound}
			}
		}
	}

	if notFoundVotes > 0 {
		log.Info("not-found votes below threshold", zap.Int("votes", notFoundVotes))
	}
	return Result{Outcome: OutcomeError}
}

// queryPeer dials one candidate, applies the eligibility filter, and
// performs the getproof round trip.
func (m *Manager) queryPeer(addr string, nameHash, root [32]byte, chainHeight uint32, networkHeight *uint32, log *zap.Logger) (Outcome, Result) {
	log = log.With(zap.String("peer", addr))

	p, err := peer.Dial(addr, m.cfg.PeerOptions, log)
	if err != nil {
		log.Debug("dial failed", zap.Error(err))
		return OutcomeError, Result{}
	}
	defer p.Close()

	hs, err := p.Handshake()
	if err != nil || !hs.Success {
		log.Debug("handshake failed", zap.Error(err))
		return OutcomeError, Result{}
	}

	if !eligible(hs, chainHeight, networkHeight) {
		log.Debug("peer rejected, not eligible to serve proofs",
			zap.Uint32("peer_height", hs.PeerHeight), zap.Bool("has_network", hs.HasNetwork()))
		return OutcomeError, Result{}
	}

	if err := p.SendSendHeaders(); err != nil {
		return OutcomeError, Result{}
	}
	if err := p.SendGetAddr(); err != nil {
		return OutcomeError, Result{}
	}
	if _, err := p.GetHeaders(&payload.GetHeaders{}); err != nil {
		return OutcomeError, Result{}
	}
	p.DrainEarly(earlyDrainMessages, earlyDrainPerMessage)

	// The 20-message read cap (spec §4.G step 2) is absorbed by
	// pkg/peer's recvLoop: ping/pong/addr/inv never reach GetProof's
	// wait, so there is nothing left to count past proof or notfound.
	proofResult, err := p.GetProof(root, nameHash)
	if err != nil {
		log.Debug("getproof failed", zap.Error(err))
		return OutcomeError, Result{}
	}
	if proofResult.NotFound {
		return OutcomeNotFound, Result{}
	}
	if proofResult.Proof == nil || proofResult.Proof.IsEmpty() {
		log.Debug("peer returned empty proof payload")
		return OutcomeError, Result{}
	}

	return OutcomeSuccess, Result{
		Outcome:   OutcomeSuccess,
		Records:   proofResult.Proof.Records,
		ProofBlob: proofResult.Proof.ProofBlob,
	}
}

// eligible implements spec §4.G step 2's peer filter: the peer must
// have answered with a height, advertise NETWORK, track our chain
// height within tolerance, and (if a network-height reference exists)
// our chain must itself be within tolerance of the network.
func eligible(hs peer.HandshakeResult, chainHeight uint32, networkHeight *uint32) bool {
	if !hs.Success {
		return false
	}
	if !hs.HasNetwork() {
		return false
	}
	if absDiff(hs.PeerHeight, chainHeight) > heightToleranceBlocks {
		return false
	}
	if networkHeight != nil && absDiff(chainHeight, *networkHeight) > heightToleranceBlocks {
		return false
	}
	return true
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
