package syncmgr

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/internal/fakepeer"
	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/chain"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/discovery"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/storage"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

const testMagic uint32 = 0xfeedface

func openTestStore(t *testing.T, name string) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestChain(t *testing.T) *chain.Chain {
	t.Helper()
	c, err := chain.New(openTestStore(t, "chain.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitFromCheckpoint())
	return c
}

func newTestAddrmgr(t *testing.T) *addrmgr.Manager {
	t.Helper()
	mgr, err := addrmgr.New(openTestStore(t, "addrmgr.db"), zap.NewNop())
	require.NoError(t, err)
	return mgr
}

func testConfig() Config {
	return Config{
		PeerOptions: peer.Options{
			Magic:             testMagic,
			ProtocolVersion:   4,
			Agent:             "/hns-spv-test/",
			Services:          payload.ServiceNetwork,
			Height:            0,
			ConnectTimeout:    time.Second,
			ReadTimeout:       2 * time.Second,
			HandshakeTimeout:  2 * time.Second,
			HandshakeAttempts: 20,
		},
		DiscoveryBudget:   time.Second,
		MaxConnectRetries: 2,
		BackoffBase:       10 * time.Millisecond,
	}
}

// startFakePeer listens on a loopback port and runs script against
// every accepted connection, returning the dialable address.
func startFakePeer(t *testing.T, script fakepeer.Script) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go fakepeer.Run(conn, script)
		}
	}()
	return ln.Addr().String()
}

func chainAfter(tip [32]byte, n int) []*payload.BlockHeader {
	headers := make([]*payload.BlockHeader, n)
	prev := tip
	for i := 0; i < n; i++ {
		h := &payload.BlockHeader{PrevBlock: prev, Nonce: uint32(1000 + i)}
		headers[i] = h
		prev = h.Hash()
	}
	return headers
}

func TestSyncSucceedsAgainstFakePeer(t *testing.T) {
	c := newTestChain(t)
	tipHash, err := c.TipHash()
	require.NoError(t, err)

	addr := startFakePeer(t, fakepeer.Script{
		Magic:         testMagic,
		Height:        chaincfg.CheckpointHeight + 200,
		Services:      payload.ServiceNetwork,
		HeaderBatches: [][]*payload.BlockHeader{chainAfter(tipHash, 5)},
		NotFoundAfter: 1,
	})

	addrs := newTestAddrmgr(t)
	addrs.Add([]string{addr})
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())

	mgr := New(testConfig(), c, addrs, finder, zap.NewNop())
	result := mgr.Sync(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, uint32(chaincfg.CheckpointHeight+200), result.NetworkHeight)

	newTip, err := c.TipHeight()
	require.NoError(t, err)
	assert.Greater(t, newTip, uint32(chaincfg.CheckpointHeight+149))
}

func TestSyncFailsWhenNoCandidates(t *testing.T) {
	c := newTestChain(t)
	addrs := newTestAddrmgr(t)
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())

	mgr := New(testConfig(), c, addrs, finder, zap.NewNop())
	result := mgr.Sync(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, uint32(0), result.NetworkHeight)
}

func TestConnectAndSyncRetriesThenGivesUpOnDeadPeer(t *testing.T) {
	c := newTestChain(t)
	addrs := newTestAddrmgr(t)
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())

	// A closed listener address: connection refused every attempt.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := testConfig()
	cfg.MaxConnectRetries = 2
	mgr := New(cfg, c, addrs, finder, zap.NewNop())

	outcome := mgr.connectAndSync(deadAddr, zap.NewNop())
	assert.True(t, outcome.WasError)
}

func TestApplyExclusionPolicyKeepsCandidatesBelowThreshold(t *testing.T) {
	c := newTestChain(t)
	addrs := newTestAddrmgr(t)
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())
	mgr := New(testConfig(), c, addrs, finder, zap.NewNop())

	candidates := []string{"a:1", "b:1", "c:1"}
	kept := mgr.applyExclusionPolicy(context.Background(), candidates, zap.NewNop())
	assert.ElementsMatch(t, candidates, kept)
}

func TestApplyExclusionPolicyClearsErrorsWhenAllExcluded(t *testing.T) {
	c := newTestChain(t)
	addrs := newTestAddrmgr(t)
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())
	mgr := New(testConfig(), c, addrs, finder, zap.NewNop())

	candidates := []string{"a:1", "b:1"}
	for i := 0; i < 8; i++ {
		addrs.RecordError("a:1")
		addrs.RecordError("b:1")
	}
	require.True(t, addrs.ShouldExclude("a:1"))
	require.True(t, addrs.ShouldExclude("b:1"))

	kept := mgr.applyExclusionPolicy(context.Background(), candidates, zap.NewNop())
	assert.ElementsMatch(t, candidates, kept)
	assert.False(t, addrs.ShouldExclude("a:1"))
	assert.False(t, addrs.ShouldExclude("b:1"))
}

func TestApplyExclusionPolicyReRunsDiscoveryAboveThreshold(t *testing.T) {
	c := newTestChain(t)
	addrs := newTestAddrmgr(t)
	// Only "fresh:1" remains a viable verified candidate once discovery reruns.
	addrs.Add([]string{"fresh:1"})
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())
	mgr := New(testConfig(), c, addrs, finder, zap.NewNop())

	candidates := []string{"bad1:1", "bad2:1", "bad3:1"}
	for _, a := range candidates {
		for i := 0; i < 8; i++ {
			addrs.RecordError(a)
		}
	}

	kept := mgr.applyExclusionPolicy(context.Background(), candidates, zap.NewNop())
	assert.Contains(t, kept, "fresh:1")
}

func TestDistinctAndContains(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, distinct([]string{"a", "a", "b"}))
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
}
