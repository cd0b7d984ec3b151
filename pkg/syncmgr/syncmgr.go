// Package syncmgr drives the header sync loop (spec §4.F): discovery,
// peer-reputation filtering, per-peer connect/handshake retry with
// backoff, the locator descent loop, and the checkpoint-era
// genesis-locator fallback. Grounded on the teacher's
// connmgr.Connmgr.failed exponential-backoff idiom, generalized to
// the spec's fixed "up to 3 attempts, exponential backoff starting at
// 1s" rule, and on the two cdnsd Peer implementations for the
// getheaders request/response shape.
package syncmgr

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/chain"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/discovery"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// checkpointBootstrapHeight is the one-shot "genesis locator"
// workaround height named in spec §4.F step 4 and flagged as fragile
// in §9 ("document it; do not generalize").
const checkpointBootstrapHeight = chaincfg.CheckpointHeight + 149

// exclusionRerunThreshold is the fraction of excluded candidates that
// triggers a fresh discovery round (spec §4.F step 2).
const exclusionRerunThreshold = 0.5

// Config carries the timeouts and retry policy a Manager runs with.
type Config struct {
	PeerOptions       peer.Options
	DiscoveryBudget   time.Duration
	MaxConnectRetries int
	BackoffBase       time.Duration
}

// Manager is the sync orchestrator.
type Manager struct {
	cfg    Config
	chain  *chain.Chain
	addrs  *addrmgr.Manager
	finder *discovery.Discoverer
	log    *zap.Logger
}

// New builds a Manager over the given chain, peer registry and
// discoverer.
func New(cfg Config, c *chain.Chain, addrs *addrmgr.Manager, finder *discovery.Discoverer, log *zap.Logger) *Manager {
	return &Manager{cfg: cfg, chain: c, addrs: addrs, finder: finder, log: log.With(zap.String("component", "syncmgr"))}
}

// Result is the top-level sync() outcome (spec §4.F, §6).
type Result struct {
	Success        bool
	NetworkHeight  uint32
}

// Sync runs one full sync attempt across discovered candidates,
// stopping at the first peer that completes a successful header
// exchange (spec §4.F steps 1-5).
func (m *Manager) Sync(ctx context.Context) Result {
	attemptID := uuid.New().String()
	log := m.log.With(zap.String("attempt", attemptID))

	candidates := m.finder.Discover(ctx, m.cfg.DiscoveryBudget)
	candidates = distinct(candidates)

	candidates = m.applyExclusionPolicy(ctx, candidates, log)

	var maxNetworkHeight uint32
	for _, addr := range candidates {
		outcome := m.connectAndSync(addr, log)
		if outcome.PeerHeight > maxNetworkHeight {
			maxNetworkHeight = outcome.PeerHeight
		}
		if outcome.WasError {
			m.addrs.RecordError(addr)
			continue
		}
		if outcome.HeadersReceived {
			m.addrs.RecordVerifiedFullNode(addr)
			log.Info("sync succeeded", zap.String("peer", addr), zap.Uint32("network_height", maxNetworkHeight))
			return Result{Success: true, NetworkHeight: maxNetworkHeight}
		}
	}

	log.Info("sync exhausted candidates without success", zap.Uint32("network_height", maxNetworkHeight))
	return Result{Success: false, NetworkHeight: maxNetworkHeight}
}

// applyExclusionPolicy implements spec §4.F step 2: re-run discovery
// once if at least half the candidates are excluded, or clear all
// errors and retry the full set if every candidate would be excluded.
func (m *Manager) applyExclusionPolicy(ctx context.Context, candidates []string, log *zap.Logger) []string {
	if len(candidates) == 0 {
		return candidates
	}

	excluded := 0
	kept := make([]string, 0, len(candidates))
	for _, addr := range candidates {
		if m.addrs.ShouldExclude(addr) {
			excluded++
			continue
		}
		kept = append(kept, addr)
	}

	if len(kept) == 0 {
		log.Warn("every candidate excluded, clearing error counts and retrying full set")
		m.addrs.ClearAllErrors()
		return candidates
	}

	ratio := float64(excluded) / float64(len(candidates))
	if ratio >= exclusionRerunThreshold {
		log.Info("exclusion ratio high, re-running discovery", zap.Float64("ratio", ratio))
		fresh := distinct(m.finder.Discover(ctx, m.cfg.DiscoveryBudget))
		for _, addr := range fresh {
			if !contains(candidates, addr) {
				m.addrs.ResetErrors(addr)
			}
		}
		rebuilt := make([]string, 0, len(fresh))
		for _, addr := range fresh {
			if !m.addrs.ShouldExclude(addr) {
				rebuilt = append(rebuilt, addr)
			}
		}
		if len(rebuilt) > 0 {
			return rebuilt
		}
	}

	return kept
}

func distinct(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// peerOutcome classifies one connect_and_sync attempt (spec §4.F
// step 5, §7).
type peerOutcome struct {
	WasError        bool
	HeadersReceived bool
	PeerHeight      uint32
}

// connectAndSync dials, retries the handshake with exponential
// backoff, and on success drives the locator descent loop.
func (m *Manager) connectAndSync(addr string, log *zap.Logger) peerOutcome {
	log = log.With(zap.String("peer", addr))

	var p *peer.Peer
	var hs peer.HandshakeResult
	var err error

	backoff := m.cfg.BackoffBase
	for attempt := 1; attempt <= m.cfg.MaxConnectRetries+1; attempt++ {
		p, hs, err = m.dialAndHandshake(addr)
		if err == nil && hs.Success {
			break
		}
		if p != nil {
			_ = p.Close()
			p = nil
		}
		if attempt > m.cfg.MaxConnectRetries {
			log.Warn("handshake failed, abandoning peer", zap.Int("attempts", attempt), zap.Error(err))
			return peerOutcome{WasError: true}
		}
		log.Debug("handshake attempt failed, backing off", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
		time.Sleep(backoff)
		backoff *= 2
	}
	defer p.Close()

	if hs.HasNetwork() {
		m.addrs.RecordVerifiedFullNode(addr)
	}

	return m.runLocatorDescent(p, hs, log)
}

func (m *Manager) dialAndHandshake(addr string) (*peer.Peer, peer.HandshakeResult, error) {
	p, err := peer.Dial(addr, m.cfg.PeerOptions, m.log)
	if err != nil {
		return nil, peer.HandshakeResult{}, err
	}
	hs, err := p.Handshake()
	if err != nil {
		return p, peer.HandshakeResult{}, err
	}
	return p, hs, nil
}

// locatorDescentAttempts bounds the loop in runLocatorDescent (spec
// §4.F "up to 10 attempts").
const locatorDescentAttempts = 10

func (m *Manager) runLocatorDescent(p *peer.Peer, hs peer.HandshakeResult, log *zap.Logger) peerOutcome {
	startHeight, err := m.chain.TipHeight()
	if err != nil {
		return peerOutcome{WasError: true, PeerHeight: hs.PeerHeight}
	}

	locator, err := m.chain.Locator()
	if err != nil {
		return peerOutcome{WasError: true, PeerHeight: hs.PeerHeight}
	}

	if err := p.SendSendHeaders(); err != nil {
		return peerOutcome{WasError: true, PeerHeight: hs.PeerHeight}
	}
	if err := p.SendGetAddr(); err != nil {
		return peerOutcome{WasError: true, PeerHeight: hs.PeerHeight}
	}

	headersReceived := false
	for locatorIndex := 0; locatorIndex < locatorDescentAttempts && locatorIndex < len(locator); locatorIndex++ {
		var req *payload.GetHeaders
		if locatorIndex == 0 {
			req = &payload.GetHeaders{Locator: locator}
		} else {
			req = &payload.GetHeaders{Locator: [][32]byte{locator[locatorIndex]}}
		}

		recv, err := m.receiveHeaders(p, req, log)
		if err != nil {
			return peerOutcome{WasError: true, PeerHeight: hs.PeerHeight}
		}

		if recv.hasValidHeaders {
			headersReceived = true
			break
		}
		if recv.receivedAnyHeaders {
			// Peer has nothing newer than what we already hold.
			break
		}
		// notfound: advance to the next, older locator hash.
	}

	if !headersReceived && startHeight == checkpointBootstrapHeight && locator[0] != ([32]byte{}) {
		recv, err := m.receiveHeaders(p, &payload.GetHeaders{}, log)
		if err == nil && recv.hasValidHeaders {
			headersReceived = true
		}
	}

	return peerOutcome{WasError: false, HeadersReceived: headersReceived, PeerHeight: hs.PeerHeight}
}
